package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Ошибки валидации возможности
var (
	ErrEmptyTokenPair    = errors.New("token pair must not be empty")
	ErrInvalidCapital    = errors.New("required capital must be positive")
	ErrInvalidPrice      = errors.New("leg price must be positive")
	ErrEmptyChain        = errors.New("chain identifier must not be empty")
	ErrEmptyVenue        = errors.New("venue identifier must not be empty")
	ErrInconsistentPlan  = errors.New("execution plan is inconsistent with legs")
)

// Действия шагов исполнения
const (
	StepAcquire = "acquire" // покупка на исходной площадке
	StepBridge  = "bridge"  // перенос стоимости между сетями
	StepDispose = "dispose" // продажа на целевой площадке
)

// TokenPair представляет упорядоченную торговую пару (BASE/QUOTE).
// Порядок одинаков для исходной и целевой ноги.
type TokenPair struct {
	Base  string `json:"base"`  // ETH
	Quote string `json:"quote"` // USDC
}

// String возвращает каноническое представление пары
func (p TokenPair) String() string {
	return p.Base + "/" + p.Quote
}

// IsZero проверяет, заполнена ли пара
func (p TokenPair) IsZero() bool {
	return p.Base == "" || p.Quote == ""
}

// ExecutionStep представляет один шаг плана исполнения
type ExecutionStep struct {
	Action string `json:"action"` // acquire, bridge, dispose
	Chain  string `json:"chain"`
	Venue  string `json:"venue,omitempty"` // пусто для bridge
}

// RiskResult представляет результат оценки риска.
// Аннотирует возможность, не заменяя её.
type RiskResult struct {
	Accept      bool      `json:"accept"`
	Score       float64   `json:"score"` // [0,1]
	Reasons     []string  `json:"reasons,omitempty"`
	Narrative   string    `json:"narrative,omitempty"` // пояснение advisory-сервиса
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Opportunity представляет обнаруженное ценовое расхождение между
// двумя площадками. После передачи координатору не мутируется:
// повторная оценка порождает новую возможность.
type Opportunity struct {
	ID               string             `json:"id"`
	SourceChain      string             `json:"source_chain"`
	TargetChain      string             `json:"target_chain"`
	SourceVenue      string             `json:"source_venue"`
	TargetVenue      string             `json:"target_venue"`
	Pair             TokenPair          `json:"pair"`
	SourcePrice      float64            `json:"source_price"`
	TargetPrice      float64            `json:"target_price"`
	GrossSpreadPct   float64            `json:"gross_spread_pct"`
	NetProfitPct     float64            `json:"net_profit_pct"`     // производное, пересчитывается при изменении цен
	EstimatedProfit  float64            `json:"estimated_profit"`   // USD
	RequiredCapital  float64            `json:"required_capital"`   // USD
	Plan             []ExecutionStep    `json:"plan"`
	GasCosts         map[string]float64 `json:"gas_costs"` // chain -> USD
	BridgeFeePct     float64            `json:"bridge_fee_pct"`
	SlippagePct      float64            `json:"slippage_pct"`
	DiscoveredAt     time.Time          `json:"discovered_at"`
	Risk             *RiskResult        `json:"risk,omitempty"`
}

// CrossChain сообщает, требуется ли мост между сетями
func (o *Opportunity) CrossChain() bool {
	return o.SourceChain != o.TargetChain
}

// TotalGasCost возвращает суммарную стоимость газа по всем ногам
func (o *Opportunity) TotalGasCost() float64 {
	var total float64
	for _, cost := range o.GasCosts {
		total += cost
	}
	return total
}

// IsStale проверяет, устарели ли ценовые данные.
// Устаревшая возможность отбрасывается и никогда не исполняется.
func (o *Opportunity) IsStale(now time.Time, window time.Duration) bool {
	return now.Sub(o.DiscoveredAt) > window
}

// Validate проверяет все поля при создании.
// Возможность с нулевым или отрицательным капиталом считается некорректной.
func (o *Opportunity) Validate() error {
	if o.Pair.IsZero() {
		return ErrEmptyTokenPair
	}
	if o.SourceChain == "" || o.TargetChain == "" {
		return ErrEmptyChain
	}
	if o.SourceVenue == "" || o.TargetVenue == "" {
		return ErrEmptyVenue
	}
	if o.SourcePrice <= 0 || o.TargetPrice <= 0 {
		return ErrInvalidPrice
	}
	if o.RequiredCapital <= 0 {
		return ErrInvalidCapital
	}
	if err := o.validatePlan(); err != nil {
		return err
	}
	return nil
}

// validatePlan проверяет порядок шагов: acquire, затем bridge (только для
// кроссчейна), затем dispose. Ногу нельзя пропустить.
func (o *Opportunity) validatePlan() error {
	want := []string{StepAcquire, StepDispose}
	if o.CrossChain() {
		want = []string{StepAcquire, StepBridge, StepDispose}
	}
	if len(o.Plan) != len(want) {
		return fmt.Errorf("%w: expected %d steps, got %d", ErrInconsistentPlan, len(want), len(o.Plan))
	}
	for i, step := range o.Plan {
		if step.Action != want[i] {
			return fmt.Errorf("%w: step %d is %q, expected %q", ErrInconsistentPlan, i, step.Action, want[i])
		}
		if step.Chain == "" {
			return ErrEmptyChain
		}
	}
	return nil
}

// Ширина ценовой корзины для фингерпринта (~0.1%)
const fingerprintBucketWidth = 1.001

// Fingerprint возвращает детерминированный ключ дедупликации:
// одна и та же возможность, обнаруженная в соседних циклах сканирования,
// даёт одинаковый ключ. Цена источника огрубляется логарифмической
// корзиной, чтобы микродвижения цены не порождали новый ключ.
func (o *Opportunity) Fingerprint() string {
	bucket := int64(0)
	if o.SourcePrice > 0 {
		bucket = int64(math.Round(math.Log(o.SourcePrice) / math.Log(fingerprintBucketWidth)))
	}
	var b strings.Builder
	b.WriteString(o.SourceChain)
	b.WriteByte('|')
	b.WriteString(o.TargetChain)
	b.WriteByte('|')
	b.WriteString(o.Pair.String())
	b.WriteByte('|')
	fmt.Fprintf(&b, "%d", bucket)
	return b.String()
}

// Clone возвращает глубокую копию возможности
func (o *Opportunity) Clone() *Opportunity {
	cp := *o
	cp.Plan = make([]ExecutionStep, len(o.Plan))
	copy(cp.Plan, o.Plan)
	cp.GasCosts = make(map[string]float64, len(o.GasCosts))
	for chain, cost := range o.GasCosts {
		cp.GasCosts[chain] = cost
	}
	if o.Risk != nil {
		risk := *o.Risk
		risk.Reasons = make([]string, len(o.Risk.Reasons))
		copy(risk.Reasons, o.Risk.Reasons)
		cp.Risk = &risk
	}
	return &cp
}
