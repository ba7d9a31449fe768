package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chainarb/internal/bridge"
	"chainarb/internal/models"
	"chainarb/internal/registry"
	"chainarb/internal/venue"
)

// TradeArchiver сохраняет терминальные сделки в постоянное хранилище.
// Вызывается после переноса в историю, ошибка записи не влияет
// на результат сделки.
type TradeArchiver interface {
	Archive(trade *models.Trade) error
}

// CoordinatorConfig — таймауты исполнения
type CoordinatorConfig struct {
	LegTimeout      time.Duration // покупка и продажа
	BridgeTimeout   time.Duration // перенос между сетями идёт минутами
	StalenessWindow time.Duration
}

// Coordinator управляет трёхногим исполнением принятых возможностей.
//
// Гарантии:
//   - не более одной нетерминальной сделки на фингерпринт (реестр);
//   - количество одновременных исполнений ограничено счётчиком;
//   - нога никогда не повторяется внутри исполнения: повтор исполненной
//     заявки удваивает позицию;
//   - отказ после разворота капитала фиксирует застрявшую позицию,
//     автоматический откат не выполняется;
//   - отмена применяется только в безопасных точках между ногами,
//     отправленная нога всегда довыполняется или истекает по таймауту.
type Coordinator struct {
	registry *registry.Registry
	venues   map[string]venue.Venue // name -> venue
	bridge   bridge.Bridge
	archiver TradeArchiver              // nil = без персистентности
	onUpdate func(*models.Trade)        // nil-safe, рассылка по WebSocket
	notifications chan *models.Notification
	cfg      CoordinatorConfig
	log      *zap.Logger

	maxConcurrent atomic.Int64
	activeCount   atomic.Int64
	stopped       atomic.Bool
	wg            sync.WaitGroup

	cancelMu        sync.Mutex
	cancelRequested map[string]bool // fingerprint -> запрошена отмена
}

// NewCoordinator создает координатора исполнения
func NewCoordinator(reg *registry.Registry, venues []venue.Venue, br bridge.Bridge, cfg CoordinatorConfig, log *zap.Logger) *Coordinator {
	byName := make(map[string]venue.Venue, len(venues))
	for _, v := range venues {
		byName[v.Name()] = v
	}
	c := &Coordinator{
		registry:        reg,
		venues:          byName,
		bridge:          br,
		cfg:             cfg,
		log:             log,
		cancelRequested: make(map[string]bool),
	}
	c.maxConcurrent.Store(3)
	return c
}

// SetArchiver подключает постоянное хранилище терминальных сделок
func (c *Coordinator) SetArchiver(a TradeArchiver) { c.archiver = a }

// SetOnUpdate подключает обработчик изменений сделки
func (c *Coordinator) SetOnUpdate(fn func(*models.Trade)) { c.onUpdate = fn }

// SetNotifications подключает канал уведомлений
func (c *Coordinator) SetNotifications(ch chan *models.Notification) { c.notifications = ch }

// SetMaxConcurrent обновляет лимит одновременных исполнений.
// Применяется к новым сделкам, исполняющиеся не затрагивает.
func (c *Coordinator) SetMaxConcurrent(n int) {
	if n > 0 {
		c.maxConcurrent.Store(int64(n))
	}
}

// Stop запрещает приём новых исполнений и дожидается завершения
// текущих: отправленные ноги довыполняются, принудительного
// прерывания нет
func (c *Coordinator) Stop() {
	c.stopped.Store(true)
	c.wg.Wait()
}

// ============================================================
// Приём возможности
// ============================================================

// Execute исполняет принятую возможность синхронно и возвращает
// терминальный снимок сделки. Дубликат по фингерпринту, устаревшие
// данные и исчерпанный лимит отклоняются до разворота капитала.
func (c *Coordinator) Execute(ctx context.Context, opp *models.Opportunity) (*models.Trade, error) {
	if c.stopped.Load() {
		return nil, ErrStopped
	}
	if err := opp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOpportunity, err)
	}
	if opp.IsStale(time.Now(), c.cfg.StalenessWindow) {
		RecordTrade("rejected", 0)
		return nil, ErrStaleOpportunity
	}
	if !c.tryAcquireSlot() {
		RecordTrade("rejected", 0)
		return nil, ErrExecutionLimit
	}

	trade := newTrade(opp)
	if err := c.registry.BeginTrade(trade); err != nil {
		c.releaseSlot()
		if errors.Is(err, registry.ErrConflict) {
			DuplicateRejections.Inc()
			return nil, ErrDuplicateInFlight
		}
		return nil, err
	}

	c.wg.Add(1)
	defer c.wg.Done()
	defer c.releaseSlot()

	c.notify(models.NotificationTypeTradeOpen, models.SeverityInfo, trade.ID,
		fmt.Sprintf("Исполнение %s: %s -> %s", opp.Pair.String(), opp.SourceVenue, opp.TargetVenue))

	c.run(trade.Fingerprint, trade.Opportunity)
	return c.registry.GetTrade(trade.ID)
}

// newTrade создает сделку в состоянии PENDING
func newTrade(opp *models.Opportunity) *models.Trade {
	now := time.Now()
	return &models.Trade{
		ID:          uuid.Must(uuid.NewRandom()).String(),
		Fingerprint: opp.Fingerprint(),
		Opportunity: opp,
		State:       models.TradePending,
		Transitions: map[string]time.Time{models.TradePending: now},
		CreatedAt:   now,
	}
}

// tryAcquireSlot атомарно занимает слот исполнения
func (c *Coordinator) tryAcquireSlot() bool {
	for {
		cur := c.activeCount.Load()
		if cur >= c.maxConcurrent.Load() {
			return false
		}
		if c.activeCount.CompareAndSwap(cur, cur+1) {
			ActiveExecutions.Set(float64(cur + 1))
			return true
		}
	}
}

func (c *Coordinator) releaseSlot() {
	ActiveExecutions.Set(float64(c.activeCount.Add(-1)))
}

// ============================================================
// Исполнение ног
// ============================================================

// run проводит сделку через все ноги плана. Ноги исполняются на
// собственных таймаутах, а не на контексте запроса: сигнал остановки
// не должен прерывать отправленную в сеть операцию.
func (c *Coordinator) run(fp string, opp *models.Opportunity) {
	// Безопасная точка: капитал ещё не развёрнут
	if c.takeCancel(fp) {
		c.finishCancelled(fp, nil)
		return
	}

	// ============ Нога 1: покупка ============

	c.transition(fp, models.TradeAcquiring)
	acquireFill, err := c.acquireLeg(fp, opp)
	if err != nil {
		// Капитал не развёрнут, застрявшей позиции нет
		c.finishFailed(fp, &LegError{Leg: models.StepAcquire, Err: err}, nil)
		return
	}
	c.transition(fp, models.TradeAcquired)
	amount := acquireFill.ReceivedAmount

	// Безопасная точка: позиция уже в базовом токене, отмена фиксирует её
	if c.takeCancel(fp) {
		c.finishCancelled(fp, &models.StrandedPosition{
			Chain: opp.SourceChain, Token: opp.Pair.Base, Amount: amount,
		})
		return
	}

	// ============ Нога 2: мост (только кроссчейн) ============

	if opp.CrossChain() {
		c.transition(fp, models.TradeBridging)
		receipt, err := c.bridgeLeg(fp, opp, amount)
		if err != nil {
			c.finishFailed(fp, &LegError{Leg: models.StepBridge, Err: err}, &models.StrandedPosition{
				Chain: opp.SourceChain, Token: opp.Pair.Base, Amount: amount,
			})
			return
		}
		c.transition(fp, models.TradeBridged)
		// Стоимость не растёт при переносе
		if receipt.ReceivedAmount < amount {
			amount = receipt.ReceivedAmount
		}

		if c.takeCancel(fp) {
			c.finishCancelled(fp, &models.StrandedPosition{
				Chain: opp.TargetChain, Token: opp.Pair.Base, Amount: amount,
			})
			return
		}
	}

	// ============ Нога 3: продажа ============

	c.transition(fp, models.TradeDisposing)
	disposeFill, err := c.disposeLeg(fp, opp, amount)
	if err != nil {
		c.finishFailed(fp, &LegError{Leg: models.StepDispose, Err: err}, &models.StrandedPosition{
			Chain: opp.TargetChain, Token: opp.Pair.Base, Amount: amount,
		})
		return
	}

	profit := disposeFill.ReceivedAmount - opp.RequiredCapital
	c.finishSettled(fp, profit)
}

// acquireLeg покупает базовый токен на исходной площадке.
// Без повторов: повторная отправка исполненной заявки удваивает позицию.
func (c *Coordinator) acquireLeg(fp string, opp *models.Opportunity) (*venue.Fill, error) {
	v, ok := c.venues[opp.SourceVenue]
	if !ok {
		return nil, ErrVenueNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.LegTimeout)
	defer cancel()

	started := time.Now()
	c.recordLegStart(fp, models.LegResult{
		Action:          models.StepAcquire,
		Chain:           opp.SourceChain,
		Venue:           opp.SourceVenue,
		RequestedAmount: opp.RequiredCapital,
		StartedAt:       started,
	})

	fill, err := v.Buy(ctx, opp.Pair, opp.RequiredCapital)
	LegLatency.WithLabelValues(models.StepAcquire).Observe(float64(time.Since(started).Milliseconds()))
	c.recordLegResult(fp, fill, err)
	return fill, err
}

// bridgeLeg переносит купленный токен на целевую сеть
func (c *Coordinator) bridgeLeg(fp string, opp *models.Opportunity, amount float64) (*bridge.Receipt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.BridgeTimeout)
	defer cancel()

	started := time.Now()
	c.recordLegStart(fp, models.LegResult{
		Action:          models.StepBridge,
		Chain:           opp.TargetChain,
		RequestedAmount: amount,
		StartedAt:       started,
	})

	receipt, err := c.bridge.Transfer(ctx, opp.SourceChain, opp.TargetChain, opp.Pair.Base, amount)
	LegLatency.WithLabelValues(models.StepBridge).Observe(float64(time.Since(started).Milliseconds()))

	var fill *venue.Fill
	if receipt != nil {
		fill = &venue.Fill{
			ReceivedAmount: receipt.ReceivedAmount,
			ReferenceID:    receipt.ReferenceID,
			ExecutedAt:     receipt.CompletedAt,
		}
	}
	c.recordLegResult(fp, fill, err)
	return receipt, err
}

// disposeLeg продаёт токен на целевой площадке
func (c *Coordinator) disposeLeg(fp string, opp *models.Opportunity, amount float64) (*venue.Fill, error) {
	v, ok := c.venues[opp.TargetVenue]
	if !ok {
		return nil, ErrVenueNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.LegTimeout)
	defer cancel()

	started := time.Now()
	c.recordLegStart(fp, models.LegResult{
		Action:          models.StepDispose,
		Chain:           opp.TargetChain,
		Venue:           opp.TargetVenue,
		RequestedAmount: amount,
		StartedAt:       started,
	})

	fill, err := v.Sell(ctx, opp.Pair, amount)
	LegLatency.WithLabelValues(models.StepDispose).Observe(float64(time.Since(started).Milliseconds()))
	c.recordLegResult(fp, fill, err)
	return fill, err
}

// recordLegStart фиксирует начало ноги до отправки заявки
func (c *Coordinator) recordLegStart(fp string, leg models.LegResult) {
	c.update(fp, func(t *models.Trade) {
		t.Legs = append(t.Legs, leg)
	})
}

// recordLegResult дописывает результат в последнюю ногу
func (c *Coordinator) recordLegResult(fp string, fill *venue.Fill, err error) {
	now := time.Now()
	c.update(fp, func(t *models.Trade) {
		leg := t.LastLeg()
		if leg == nil {
			return
		}
		leg.FinishedAt = &now
		if err != nil {
			leg.Error = err.Error()
			return
		}
		leg.Success = true
		if fill != nil {
			leg.ReceivedAmount = fill.ReceivedAmount
			leg.ReferenceID = fill.ReferenceID
		}
	})
}

// ============================================================
// Отмена
// ============================================================

// Cancel запрашивает отмену активной сделки по фингерпринту.
// Запрос применяется в ближайшей безопасной точке между ногами,
// исполняющаяся нога не прерывается. После начала ноги
// распоряжения отменять нечего.
func (c *Coordinator) Cancel(fingerprint string) error {
	t := c.registry.GetActiveByFingerprint(fingerprint)
	if t == nil {
		return registry.ErrTradeNotFound
	}
	switch t.State {
	case models.TradeDisposing, models.TradeSettled, models.TradeFailed, models.TradeCancelled:
		return ErrNotCancellable
	}

	c.cancelMu.Lock()
	c.cancelRequested[fingerprint] = true
	c.cancelMu.Unlock()

	c.log.Info("cancellation requested, will apply at next safe point",
		zap.String("trade_id", t.ID),
		zap.String("state", t.State))
	return nil
}

// takeCancel атомарно изымает запрос отмены
func (c *Coordinator) takeCancel(fp string) bool {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if c.cancelRequested[fp] {
		delete(c.cancelRequested, fp)
		return true
	}
	return false
}

func (c *Coordinator) clearCancel(fp string) {
	c.cancelMu.Lock()
	delete(c.cancelRequested, fp)
	c.cancelMu.Unlock()
}

// ============================================================
// Завершение
// ============================================================

// transition переводит сделку в новое состояние с проверкой допустимости
func (c *Coordinator) transition(fp, to string) {
	c.update(fp, func(t *models.Trade) {
		if !CanTransition(t.State, to) {
			// Недопустимый переход — ошибка программиста, не данных
			c.log.Error("invalid state transition",
				zap.String("trade_id", t.ID),
				zap.String("from", t.State),
				zap.String("to", to))
			return
		}
		t.State = to
		t.Transitions[to] = time.Now()
	})
	c.broadcast(fp)
}

func (c *Coordinator) update(fp string, fn func(*models.Trade)) {
	if err := c.registry.UpdateTrade(fp, fn); err != nil {
		c.log.Error("trade update failed", zap.String("fingerprint", fp), zap.Error(err))
	}
}

// finishSettled завершает сделку с зафиксированной прибылью
func (c *Coordinator) finishSettled(fp string, profit float64) {
	var tradeID string
	c.update(fp, func(t *models.Trade) {
		t.State = models.TradeSettled
		t.Transitions[models.TradeSettled] = time.Now()
		t.RealizedProfit = &profit
		now := time.Now()
		t.ClosedAt = &now
		tradeID = t.ID
	})
	RecordTrade("settled", profit)
	c.notify(models.NotificationTypeTradeSettled, models.SeverityInfo, tradeID,
		fmt.Sprintf("Сделка завершена, прибыль $%.2f", profit))
	c.finalize(fp)
}

// finishFailed завершает сделку отказом ноги. Если капитал уже
// развёрнут, фиксируется застрявшая позиция.
func (c *Coordinator) finishFailed(fp string, legErr *LegError, stranded *models.StrandedPosition) {
	var tradeID string
	c.update(fp, func(t *models.Trade) {
		t.State = models.TradeFailed
		t.Transitions[models.TradeFailed] = time.Now()
		t.FailureReason = legErr.Error()
		t.Stranded = stranded
		now := time.Now()
		t.ClosedAt = &now
		tradeID = t.ID
	})
	RecordTrade("failed", 0)

	c.log.Warn("trade failed",
		zap.String("trade_id", tradeID),
		zap.String("leg", legErr.Leg),
		zap.Error(legErr.Err))
	c.notify(models.NotificationTypeTradeFailed, models.SeverityError, tradeID,
		fmt.Sprintf("Нога %s не исполнилась: %v", legErr.Leg, legErr.Err))

	if stranded != nil {
		RecordStranded(stranded.Chain)
		c.notify(models.NotificationTypeStranded, models.SeverityError, tradeID,
			fmt.Sprintf("Застрявшая позиция: %.6f %s на %s", stranded.Amount, stranded.Token, stranded.Chain))
	}
	c.finalize(fp)
}

// finishCancelled завершает сделку отменой. Отмена после разворота
// капитала фиксирует удерживаемую позицию так же, как отказ.
func (c *Coordinator) finishCancelled(fp string, held *models.StrandedPosition) {
	var tradeID string
	c.update(fp, func(t *models.Trade) {
		t.State = models.TradeCancelled
		t.Transitions[models.TradeCancelled] = time.Now()
		t.Stranded = held
		now := time.Now()
		t.ClosedAt = &now
		tradeID = t.ID
	})
	RecordTrade("cancelled", 0)
	c.notify(models.NotificationTypeCancelled, models.SeverityWarn, tradeID, "Сделка отменена")

	if held != nil {
		RecordStranded(held.Chain)
		c.notify(models.NotificationTypeStranded, models.SeverityWarn, tradeID,
			fmt.Sprintf("Позиция после отмены: %.6f %s на %s", held.Amount, held.Token, held.Chain))
	}
	c.finalize(fp)
}

// finalize переносит терминальную сделку в историю, архивирует
// и рассылает финальный снимок
func (c *Coordinator) finalize(fp string) {
	c.clearCancel(fp)
	c.broadcast(fp)

	snapshot := c.registry.GetActiveByFingerprint(fp)
	if err := c.registry.MoveToHistory(fp); err != nil {
		c.log.Error("move to history failed", zap.String("fingerprint", fp), zap.Error(err))
	}
	if snapshot != nil && c.archiver != nil {
		if err := c.archiver.Archive(snapshot); err != nil {
			c.log.Error("trade archive failed", zap.String("trade_id", snapshot.ID), zap.Error(err))
		}
	}
}

// broadcast отправляет снимок сделки подписчикам
func (c *Coordinator) broadcast(fp string) {
	if c.onUpdate == nil {
		return
	}
	if t := c.registry.GetActiveByFingerprint(fp); t != nil {
		c.onUpdate(t)
	}
}

func (c *Coordinator) notify(notifType, severity, tradeID, message string) {
	tryEnqueueNotification(c.notifications, &models.Notification{
		Timestamp: time.Now(),
		Type:      notifType,
		Severity:  severity,
		TradeID:   tradeID,
		Message:   message,
	})
}
