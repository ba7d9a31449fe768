package models

import "time"

// Состояния сделки. Терминальные состояния не мутируются:
// сделка перемещается в историю.
const (
	TradePending   = "PENDING"
	TradeAcquiring = "ACQUIRING"
	TradeAcquired  = "ACQUIRED"
	TradeBridging  = "BRIDGING"
	TradeBridged   = "BRIDGED"
	TradeDisposing = "DISPOSING"
	TradeSettled   = "SETTLED"
	TradeFailed    = "FAILED"
	TradeCancelled = "CANCELLED"
)

// IsTerminalState сообщает, является ли состояние терминальным
func IsTerminalState(state string) bool {
	switch state {
	case TradeSettled, TradeFailed, TradeCancelled:
		return true
	}
	return false
}

// LegResult представляет результат одной ноги сделки
type LegResult struct {
	Action          string     `json:"action"` // acquire, bridge, dispose
	Chain           string     `json:"chain"`
	Venue           string     `json:"venue,omitempty"`
	RequestedAmount float64    `json:"requested_amount"`
	ReceivedAmount  float64    `json:"received_amount"` // после slippage/комиссий
	ReferenceID     string     `json:"reference_id,omitempty"`
	Success         bool       `json:"success"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// StrandedPosition представляет капитал, застрявший в промежуточном
// токене/сети после неудачной ноги. Восстанавливается только явной
// операцией, автоматический откат не выполняется.
type StrandedPosition struct {
	Chain  string  `json:"chain"`
	Token  string  `json:"token"`
	Amount float64 `json:"amount"`
}

// Trade представляет запись исполнения принятой возможности.
// Мутируется только координатором исполнения.
type Trade struct {
	ID             string               `json:"id"`
	Fingerprint    string               `json:"fingerprint"`
	Opportunity    *Opportunity         `json:"opportunity"`
	State          string               `json:"state"`
	Legs           []LegResult          `json:"legs"`
	RealizedProfit *float64             `json:"realized_profit,omitempty"` // известен только после dispose
	Stranded       *StrandedPosition    `json:"stranded,omitempty"`
	FailureReason  string               `json:"failure_reason,omitempty"`
	RecoveryOf     string               `json:"recovery_of,omitempty"` // ID исходной сделки для disposal-only восстановления
	Transitions    map[string]time.Time `json:"transitions"`           // state -> момент перехода
	CreatedAt      time.Time            `json:"created_at"`
	ClosedAt       *time.Time           `json:"closed_at,omitempty"`
}

// IsTerminal сообщает, достигла ли сделка терминального состояния
func (t *Trade) IsTerminal() bool {
	return IsTerminalState(t.State)
}

// LastReceived возвращает полученную сумму последней успешной ноги.
// Сумма ноги n+1 ограничена суммой ноги n: стоимость не растёт
// при переносе между сетями.
func (t *Trade) LastReceived() float64 {
	for i := len(t.Legs) - 1; i >= 0; i-- {
		if t.Legs[i].Success {
			return t.Legs[i].ReceivedAmount
		}
	}
	return 0
}

// LastLeg возвращает последнюю записанную ногу или nil
func (t *Trade) LastLeg() *LegResult {
	if len(t.Legs) == 0 {
		return nil
	}
	return &t.Legs[len(t.Legs)-1]
}

// Clone возвращает глубокую копию сделки для читателей реестра
func (t *Trade) Clone() *Trade {
	cp := *t
	cp.Legs = make([]LegResult, len(t.Legs))
	copy(cp.Legs, t.Legs)
	cp.Transitions = make(map[string]time.Time, len(t.Transitions))
	for state, at := range t.Transitions {
		cp.Transitions[state] = at
	}
	if t.Opportunity != nil {
		cp.Opportunity = t.Opportunity.Clone()
	}
	if t.RealizedProfit != nil {
		profit := *t.RealizedProfit
		cp.RealizedProfit = &profit
	}
	if t.Stranded != nil {
		stranded := *t.Stranded
		cp.Stranded = &stranded
	}
	if t.ClosedAt != nil {
		closed := *t.ClosedAt
		cp.ClosedAt = &closed
	}
	return &cp
}
