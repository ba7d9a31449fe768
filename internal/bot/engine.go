package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"chainarb/internal/models"
	"chainarb/internal/registry"
)

// SnapshotProvider отдаёт снимок настроек и списка пар на цикл.
// Изменения применяются со следующего цикла и никогда не затрагивают
// исполняющиеся сделки.
type SnapshotProvider interface {
	Snapshot() (*models.Settings, []models.TokenPair)
}

// Engine связывает сканер, оценщик риска и координатора в торговый цикл:
// каждый тик — скан, оценка найденных возможностей, запуск принятых.
type Engine struct {
	scanner     *Scanner
	risk        *RiskEvaluator
	coordinator *Coordinator
	registry    *registry.Registry
	source      SnapshotProvider

	scanInterval    time.Duration
	stalenessWindow time.Duration

	notifications chan *models.Notification
	onOpportunity func(*models.Opportunity)
	scanNow       chan struct{}
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	log           *zap.Logger
}

// NewEngine создает торговый цикл
func NewEngine(scanner *Scanner, risk *RiskEvaluator, coordinator *Coordinator, reg *registry.Registry, source SnapshotProvider, scanInterval, stalenessWindow time.Duration, log *zap.Logger) *Engine {
	e := &Engine{
		scanner:         scanner,
		risk:            risk,
		coordinator:     coordinator,
		registry:        reg,
		source:          source,
		scanInterval:    scanInterval,
		stalenessWindow: stalenessWindow,
		notifications:   make(chan *models.Notification, 256),
		scanNow:         make(chan struct{}, 1),
		stopChan:        make(chan struct{}),
		log:             log,
	}
	coordinator.SetNotifications(e.notifications)
	return e
}

// SetOnOpportunity устанавливает callback на каждую оценённую
// возможность. Вызывается до попытки исполнения.
func (e *Engine) SetOnOpportunity(fn func(*models.Opportunity)) {
	e.onOpportunity = fn
}

// Notifications возвращает канал уведомлений. Потребитель обязан
// вычитывать его: переполненный буфер приводит к потере уведомлений.
func (e *Engine) Notifications() <-chan *models.Notification {
	return e.notifications
}

// ScanNow запрашивает внеочередной цикл сканирования.
// Если запрос уже стоит в очереди, второй не добавляется.
func (e *Engine) ScanNow() {
	select {
	case e.scanNow <- struct{}{}:
	default:
	}
}

// Run выполняет торговый цикл до отмены контекста или вызова Stop.
// Ошибка любого компонента логируется и не останавливает цикл.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info("trading engine started", zap.Duration("scan_interval", e.scanInterval))

	ticker := time.NewTicker(e.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case <-e.stopChan:
			e.shutdown()
			return
		case <-e.scanNow:
			e.cycle(ctx)
		case <-ticker.C:
			e.cycle(ctx)
		}
	}
}

// Stop инициирует остановку цикла. Новые исполнения не принимаются,
// отправленные ноги довыполняются.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
}

// shutdown дожидается завершения оценок и исполнений
func (e *Engine) shutdown() {
	e.log.Info("trading engine stopping, waiting for in-flight executions")
	e.wg.Wait()
	e.coordinator.Stop()
	e.log.Info("trading engine stopped")
}

// cycle выполняет один торговый цикл
func (e *Engine) cycle(ctx context.Context) {
	settings, pairs := e.source.Snapshot()
	if settings == nil || len(pairs) == 0 {
		return
	}
	e.coordinator.SetMaxConcurrent(settings.MaxConcurrentExecutions)

	if pruned := e.registry.PruneStale(time.Now(), e.stalenessWindow); pruned > 0 {
		e.log.Debug("stale opportunities pruned", zap.Int("count", pruned))
	}

	// Цикл сканирования ограничен своим интервалом
	scanCtx, cancel := context.WithTimeout(ctx, e.scanInterval)
	opps := e.scanner.Scan(scanCtx, ScanSettings{
		Pairs:         pairs,
		EnabledChains: settings.EnabledChains,
		MinProfitPct:  settings.MinProfitPct,
		Capital:       settings.TradeCapital,
		SlippagePct:   settings.MaxSlippagePct,
	})
	cancel()

	// Оценки независимых возможностей выполняются параллельно,
	// дедупликацию исполнения обеспечивают реестр и координатор
	for _, opp := range opps {
		e.wg.Add(1)
		go func(opp *models.Opportunity) {
			defer e.wg.Done()
			e.process(ctx, opp, settings)
		}(opp)
	}
}

// process оценивает возможность и запускает исполнение принятой
func (e *Engine) process(ctx context.Context, opp *models.Opportunity, settings *models.Settings) {
	if err := opp.Validate(); err != nil {
		e.log.Debug("malformed opportunity dropped", zap.String("id", opp.ID), zap.Error(err))
		return
	}

	res := e.risk.Evaluate(ctx, opp, settings)
	opp.Risk = res
	e.registry.PutOpportunity(opp)

	if e.onOpportunity != nil {
		e.onOpportunity(opp)
	}

	tryEnqueueNotification(e.notifications, &models.Notification{
		Timestamp: time.Now(),
		Type:      models.NotificationTypeOpportunity,
		Severity:  models.SeverityInfo,
		Message: fmt.Sprintf("%s: %s -> %s, чистая прибыль %.2f%%",
			opp.Pair.String(), opp.SourceVenue, opp.TargetVenue, opp.NetProfitPct),
	})

	if !res.Accept {
		return
	}

	// Изъятие гарантирует однократное потребление возможности
	taken := e.registry.TakeOpportunity(opp.Fingerprint())
	if taken == nil {
		return
	}

	trade, err := e.coordinator.Execute(ctx, taken)
	switch {
	case err == nil:
		e.log.Info("trade finished",
			zap.String("trade_id", trade.ID),
			zap.String("state", trade.State))
	case errors.Is(err, ErrDuplicateInFlight):
		e.log.Debug("duplicate in-flight trade rejected", zap.String("fingerprint", opp.Fingerprint()))
	case errors.Is(err, ErrExecutionLimit), errors.Is(err, ErrStaleOpportunity), errors.Is(err, ErrStopped):
		e.log.Debug("execution declined", zap.Error(err))
	default:
		e.log.Warn("execution error", zap.String("opportunity_id", opp.ID), zap.Error(err))
	}
}
