package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chainarb/internal/models"
	"chainarb/internal/registry"
	"chainarb/internal/venue"
)

// RecoverStranded запускает disposal-only сделку для застрявшей позиции
// завершившейся сделки: продаёт удерживаемый токен на площадке той сети,
// где он застрял. Восстановление выполняется только явной операцией,
// автоматических повторов нет.
//
// Фингерпринт восстановления выводится из ID исходной сделки, поэтому
// реестр отклоняет параллельное повторное восстановление той же позиции.
func (c *Coordinator) RecoverStranded(tradeID string) (*models.Trade, error) {
	if c.stopped.Load() {
		return nil, ErrStopped
	}

	orig, err := c.registry.GetTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if !orig.IsTerminal() || orig.Stranded == nil {
		return nil, ErrNoStrandedPosition
	}
	// Успешно восстановленная позиция не восстанавливается повторно
	for _, t := range c.registry.ListHistory() {
		if t.RecoveryOf == tradeID && t.State == models.TradeSettled {
			return nil, ErrNoStrandedPosition
		}
	}
	pos := *orig.Stranded

	v := c.venueOn(pos.Chain, orig.Opportunity.Pair)
	if v == nil {
		return nil, fmt.Errorf("%w: no venue on chain %s for %s",
			ErrVenueNotFound, pos.Chain, orig.Opportunity.Pair.String())
	}

	if !c.tryAcquireSlot() {
		return nil, ErrExecutionLimit
	}

	now := time.Now()
	trade := &models.Trade{
		ID:          uuid.Must(uuid.NewRandom()).String(),
		Fingerprint: "recovery|" + tradeID,
		Opportunity: recoveryOpportunity(orig, pos, v.Name()),
		State:       models.TradePending,
		RecoveryOf:  tradeID,
		Transitions: map[string]time.Time{models.TradePending: now},
		CreatedAt:   now,
	}
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

	c.log.Info("stranded position recovery started",
		zap.String("recovery_trade_id", trade.ID),
		zap.String("original_trade_id", tradeID),
		zap.String("chain", pos.Chain),
		zap.Float64("amount", pos.Amount))
	c.notify(models.NotificationTypeRecovery, models.SeverityWarn, trade.ID,
		fmt.Sprintf("Восстановление позиции %.6f %s на %s (сделка %s)",
			pos.Amount, pos.Token, pos.Chain, tradeID))

	c.runRecovery(trade.Fingerprint, trade.Opportunity, pos)
	return c.registry.GetTrade(trade.ID)
}

// runRecovery исполняет единственную ногу распоряжения
func (c *Coordinator) runRecovery(fp string, opp *models.Opportunity, pos models.StrandedPosition) {
	c.transition(fp, models.TradeDisposing)
	fill, err := c.disposeLeg(fp, opp, pos.Amount)
	if err != nil {
		// Позиция остаётся застрявшей, восстановление можно повторить
		c.finishFailed(fp, &LegError{Leg: models.StepDispose, Err: err}, &pos)
		return
	}
	// Выручка восстановления не сравнивается с исходным капиталом
	c.finishRecovered(fp, fill.ReceivedAmount)
}

// finishRecovered завершает восстановление с зафиксированной выручкой
func (c *Coordinator) finishRecovered(fp string, proceeds float64) {
	var tradeID string
	c.update(fp, func(t *models.Trade) {
		t.State = models.TradeSettled
		t.Transitions[models.TradeSettled] = time.Now()
		t.RealizedProfit = &proceeds
		now := time.Now()
		t.ClosedAt = &now
		tradeID = t.ID
	})
	TradesTotal.WithLabelValues("recovered").Inc()
	c.notify(models.NotificationTypeRecovery, models.SeverityInfo, tradeID,
		fmt.Sprintf("Позиция восстановлена, выручка $%.2f", proceeds))
	c.finalize(fp)
}

// recoveryOpportunity строит одноногую возможность на сети застрявшей
// позиции. План из одного шага используется только кодом восстановления.
func recoveryOpportunity(orig *models.Trade, pos models.StrandedPosition, venueName string) *models.Opportunity {
	return &models.Opportunity{
		ID:              uuid.Must(uuid.NewRandom()).String(),
		SourceChain:     pos.Chain,
		TargetChain:     pos.Chain,
		SourceVenue:     venueName,
		TargetVenue:     venueName,
		Pair:            orig.Opportunity.Pair,
		RequiredCapital: orig.Opportunity.RequiredCapital,
		Plan: []models.ExecutionStep{
			{Action: models.StepDispose, Chain: pos.Chain, Venue: venueName},
		},
		DiscoveredAt: time.Now(),
	}
}

// venueOn находит площадку на сети, поддерживающую пару
func (c *Coordinator) venueOn(chain string, pair models.TokenPair) venue.Venue {
	for _, v := range c.venues {
		if v.Chain() == chain && v.SupportsPair(pair) {
			return v
		}
	}
	return nil
}
