package bot

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"chainarb/internal/models"
	"chainarb/internal/registry"
	"chainarb/internal/venue"
)

func newTestEngine(venues []venue.Venue, br *fakeBridge, adv *fakeAdvisory) (*Engine, *registry.Registry) {
	reg := registry.New(100)
	scanner := NewScanner(venues, br, nil, nil, time.Second, zap.NewNop())
	risk := NewRiskEvaluator(adv, 0.5, zap.NewNop())
	coordinator := NewCoordinator(reg, venues, br, CoordinatorConfig{
		LegTimeout:      time.Second,
		BridgeTimeout:   time.Second,
		StalenessWindow: time.Minute,
	}, zap.NewNop())
	source := &staticSnapshot{
		settings: testSettings(),
		pairs:    []models.TokenPair{ethUSDC},
	}
	return NewEngine(scanner, risk, coordinator, reg, source, 50*time.Millisecond, time.Minute, zap.NewNop()), reg
}

// Полный цикл: скан находит возможность, оценка принимает,
// координатор проводит сделку до SETTLED
func TestEngineCycleEndToEnd(t *testing.T) {
	src := newFakeVenue("uniswap", "ethereum", 100, 0.3)
	dst := newFakeVenue("quickswap", "polygon", 103, 0.2)
	e, reg := newTestEngine([]venue.Venue{src, dst}, &fakeBridge{feePct: 0.5}, &fakeAdvisory{score: 0.9})

	e.cycle(context.Background())
	e.wg.Wait()

	history := reg.ListHistory()
	if len(history) != 1 {
		t.Fatalf("expected 1 settled trade, got %d", len(history))
	}
	if history[0].State != models.TradeSettled {
		t.Errorf("expected SETTLED, got %s", history[0].State)
	}

	// Уведомления о возможности и завершении сделки
	types := make(map[string]bool)
	for {
		select {
		case n := <-e.Notifications():
			types[n.Type] = true
			continue
		default:
		}
		break
	}
	if !types[models.NotificationTypeOpportunity] {
		t.Error("expected an OPPORTUNITY notification")
	}
	if !types[models.NotificationTypeTradeSettled] {
		t.Error("expected a TRADE_SETTLED notification")
	}
}

// Отклонённая оценкой возможность остаётся в реестре для наблюдения,
// но не исполняется
func TestEngineCycleRejectedNotExecuted(t *testing.T) {
	src := newFakeVenue("uniswap", "ethereum", 100, 0.3)
	dst := newFakeVenue("quickswap", "polygon", 103, 0.2)
	e, reg := newTestEngine([]venue.Venue{src, dst}, &fakeBridge{feePct: 0.5}, &fakeAdvisory{score: 0.2})

	e.cycle(context.Background())
	e.wg.Wait()

	if src.buys.Load() != 0 {
		t.Error("rejected opportunity must not be executed")
	}
	opps := reg.ListOpportunities(time.Now(), time.Minute)
	if len(opps) != 1 {
		t.Fatalf("expected 1 observed opportunity, got %d", len(opps))
	}
	if opps[0].Risk == nil || opps[0].Risk.Accept {
		t.Error("stored opportunity must carry the rejecting risk result")
	}
}

func TestEngineStopIsIdempotent(t *testing.T) {
	src := newFakeVenue("uniswap", "ethereum", 100, 0.3)
	e, _ := newTestEngine([]venue.Venue{src}, &fakeBridge{}, &fakeAdvisory{score: 0.9})

	done := make(chan struct{})
	go func() {
		e.Run(context.Background())
		close(done)
	}()

	e.Stop()
	e.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestEngineScanNowDoesNotBlock(t *testing.T) {
	src := newFakeVenue("uniswap", "ethereum", 100, 0.3)
	e, _ := newTestEngine([]venue.Venue{src}, &fakeBridge{}, &fakeAdvisory{score: 0.9})

	// Повторные запросы без работающего цикла не должны блокировать
	for i := 0; i < 5; i++ {
		e.ScanNow()
	}
}
