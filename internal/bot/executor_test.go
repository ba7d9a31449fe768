package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"chainarb/internal/bridge"
	"chainarb/internal/models"
	"chainarb/internal/registry"
	"chainarb/internal/venue"
	"chainarb/pkg/utils"
)

func newTestCoordinator(venues []venue.Venue, br bridge.Bridge) (*Coordinator, *registry.Registry) {
	reg := registry.New(100)
	cfg := CoordinatorConfig{
		LegTimeout:      time.Second,
		BridgeTimeout:   time.Second,
		StalenessWindow: time.Minute,
	}
	return NewCoordinator(reg, venues, br, cfg, zap.NewNop()), reg
}

func crossChainSetup() (*fakeVenue, *fakeVenue, *fakeBridge) {
	src := newFakeVenue("uniswap", "ethereum", 100, 0.3)
	dst := newFakeVenue("quickswap", "polygon", 103, 0.2)
	return src, dst, &fakeBridge{feePct: 0.5}
}

// waitForState опрашивает реестр до достижения сделкой состояния
func waitForState(t *testing.T, reg *registry.Registry, fp, state string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tr := reg.GetActiveByFingerprint(fp); tr != nil && tr.State == state {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s", state)
}

func TestExecuteSettles(t *testing.T) {
	src, dst, br := crossChainSetup()
	c, reg := newTestCoordinator([]venue.Venue{src, dst}, br)

	trade, err := c.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade.State != models.TradeSettled {
		t.Fatalf("expected SETTLED, got %s (reason: %s)", trade.State, trade.FailureReason)
	}
	if len(trade.Legs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(trade.Legs))
	}
	for _, leg := range trade.Legs {
		if !leg.Success {
			t.Errorf("leg %s must succeed, error: %s", leg.Action, leg.Error)
		}
	}

	// 1000/100 = 10 ETH, мост 0.5% -> 9.95, продажа по 103 -> 1024.85
	if trade.RealizedProfit == nil {
		t.Fatal("settled trade must have realized profit")
	}
	if !utils.ApproxEqual(*trade.RealizedProfit, 24.85, 1e-9) {
		t.Errorf("expected profit 24.85, got %v", *trade.RealizedProfit)
	}

	if reg.CountActive() != 0 {
		t.Error("settled trade must leave the active set")
	}
	if history := reg.ListHistory(); len(history) != 1 || history[0].ID != trade.ID {
		t.Error("settled trade must appear in history")
	}
}

func TestExecuteSingleChainSkipsBridge(t *testing.T) {
	src := newFakeVenue("uniswap", "ethereum", 100, 0.3)
	dst := newFakeVenue("sushiswap", "ethereum", 103, 0.3)
	br := &fakeBridge{feePct: 0.5}
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	opp := testOpportunity()
	opp.TargetChain = "ethereum"
	opp.SourceVenue = "uniswap"
	opp.TargetVenue = "sushiswap"
	opp.Plan = []models.ExecutionStep{
		{Action: models.StepAcquire, Chain: "ethereum", Venue: "uniswap"},
		{Action: models.StepDispose, Chain: "ethereum", Venue: "sushiswap"},
	}

	trade, err := c.Execute(context.Background(), opp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade.State != models.TradeSettled {
		t.Fatalf("expected SETTLED, got %s", trade.State)
	}
	if len(trade.Legs) != 2 {
		t.Errorf("single-chain trade must have 2 legs, got %d", len(trade.Legs))
	}
	if br.transfers.Load() != 0 {
		t.Error("single-chain trade must not touch the bridge")
	}
	if _, ok := trade.Transitions[models.TradeBridging]; ok {
		t.Error("single-chain trade must not enter BRIDGING")
	}
}

func TestExecuteBridgeFailureRecordsStranded(t *testing.T) {
	src, dst, br := crossChainSetup()
	br.transferErr = errors.New("bridge timeout")
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	trade, err := c.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade.State != models.TradeFailed {
		t.Fatalf("expected FAILED, got %s", trade.State)
	}
	if trade.Stranded == nil {
		t.Fatal("bridge failure after acquire must record a stranded position")
	}
	// Капитал застрял в базовом токене на исходной сети
	if trade.Stranded.Chain != "ethereum" || trade.Stranded.Token != "ETH" {
		t.Errorf("unexpected stranded position: %+v", trade.Stranded)
	}
	if !utils.ApproxEqual(trade.Stranded.Amount, 10.0, 1e-9) {
		t.Errorf("expected stranded amount 10.0, got %v", trade.Stranded.Amount)
	}
	if dst.sells.Load() != 0 {
		t.Error("dispose leg must not run after bridge failure")
	}
	if trade.FailureReason == "" {
		t.Error("failed trade must carry a failure reason")
	}
}

func TestExecuteDisposeFailureRecordsStranded(t *testing.T) {
	src, dst, br := crossChainSetup()
	dst.sellErr = errors.New("insufficient liquidity")
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	trade, err := c.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade.State != models.TradeFailed {
		t.Fatalf("expected FAILED, got %s", trade.State)
	}
	if trade.Stranded == nil {
		t.Fatal("dispose failure must record a stranded position")
	}
	// Позиция уже на целевой сети после моста: 10 * 0.995 = 9.95
	if trade.Stranded.Chain != "polygon" {
		t.Errorf("expected stranded chain polygon, got %s", trade.Stranded.Chain)
	}
	if !utils.ApproxEqual(trade.Stranded.Amount, 9.95, 1e-9) {
		t.Errorf("expected stranded amount 9.95, got %v", trade.Stranded.Amount)
	}
	// Нога никогда не повторяется внутри исполнения
	if dst.sells.Load() != 1 {
		t.Errorf("dispose leg must be attempted exactly once, got %d", dst.sells.Load())
	}
}

func TestExecuteAcquireFailureLeavesNothingStranded(t *testing.T) {
	src, dst, br := crossChainSetup()
	src.buyErr = errors.New("order rejected")
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	trade, err := c.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade.State != models.TradeFailed {
		t.Fatalf("expected FAILED, got %s", trade.State)
	}
	if trade.Stranded != nil {
		t.Error("acquire failure must not record a stranded position: no capital deployed")
	}
	if br.transfers.Load() != 0 || dst.sells.Load() != 0 {
		t.Error("later legs must not run after acquire failure")
	}
}

func TestExecuteDuplicateInFlightRejected(t *testing.T) {
	src, dst, br := crossChainSetup()
	src.buyGate = make(chan struct{})
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	type result struct {
		trade *models.Trade
		err   error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			trade, err := c.Execute(context.Background(), testOpportunity())
			results <- result{trade, err}
		}()
	}

	// Проигравший отклоняется сразу, победитель стоит на воротах
	first := <-results
	if !errors.Is(first.err, ErrDuplicateInFlight) {
		t.Fatalf("expected ErrDuplicateInFlight, got %v", first.err)
	}

	close(src.buyGate)
	second := <-results
	if second.err != nil {
		t.Fatalf("winner must settle, got error %v", second.err)
	}
	if second.trade.State != models.TradeSettled {
		t.Errorf("expected SETTLED, got %s", second.trade.State)
	}
}

func TestExecuteConcurrencyLimit(t *testing.T) {
	src, dst, br := crossChainSetup()
	src.buyGate = make(chan struct{})
	c, reg := newTestCoordinator([]venue.Venue{src, dst}, br)
	c.SetMaxConcurrent(1)

	first := testOpportunity()
	done := make(chan error, 1)
	go func() {
		_, err := c.Execute(context.Background(), first)
		done <- err
	}()
	waitForState(t, reg, first.Fingerprint(), models.TradeAcquiring)

	// Другой фингерпринт, но лимит исполнений уже исчерпан
	other := testOpportunity()
	other.Pair = models.TokenPair{Base: "WBTC", Quote: "USDC"}
	if _, err := c.Execute(context.Background(), other); !errors.Is(err, ErrExecutionLimit) {
		t.Errorf("expected ErrExecutionLimit, got %v", err)
	}

	close(src.buyGate)
	if err := <-done; err != nil {
		t.Fatalf("first trade must finish: %v", err)
	}

	// Слот освобождён, новое исполнение принимается
	third := testOpportunity()
	third.Pair = models.TokenPair{Base: "LINK", Quote: "USDC"}
	if _, err := c.Execute(context.Background(), third); err != nil {
		t.Errorf("slot must be released after completion, got %v", err)
	}
}

func TestExecuteStaleOpportunityRejected(t *testing.T) {
	src, dst, br := crossChainSetup()
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	opp := testOpportunity()
	opp.DiscoveredAt = time.Now().Add(-2 * time.Minute)

	if _, err := c.Execute(context.Background(), opp); !errors.Is(err, ErrStaleOpportunity) {
		t.Errorf("expected ErrStaleOpportunity, got %v", err)
	}
	if src.buys.Load() != 0 {
		t.Error("stale opportunity must be rejected before any leg")
	}
}

func TestExecuteMalformedOpportunityRejected(t *testing.T) {
	src, dst, br := crossChainSetup()
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	opp := testOpportunity()
	opp.RequiredCapital = 0

	if _, err := c.Execute(context.Background(), opp); !errors.Is(err, ErrMalformedOpportunity) {
		t.Errorf("expected ErrMalformedOpportunity, got %v", err)
	}
}

func TestExecuteAfterStopRejected(t *testing.T) {
	src, dst, br := crossChainSetup()
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	c.Stop()
	if _, err := c.Execute(context.Background(), testOpportunity()); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

// Отмена, запрошенная во время исполняющейся ноги, применяется
// в следующей безопасной точке: нога довыполняется, позиция фиксируется
func TestCancelDeferredUntilSafePoint(t *testing.T) {
	src, dst, br := crossChainSetup()
	src.buyGate = make(chan struct{})
	c, reg := newTestCoordinator([]venue.Venue{src, dst}, br)

	opp := testOpportunity()
	fp := opp.Fingerprint()

	done := make(chan *models.Trade, 1)
	go func() {
		trade, _ := c.Execute(context.Background(), opp)
		done <- trade
	}()
	waitForState(t, reg, fp, models.TradeAcquiring)

	if err := c.Cancel(fp); err != nil {
		t.Fatalf("cancel request during ACQUIRING must be accepted: %v", err)
	}

	close(src.buyGate)
	trade := <-done

	if trade.State != models.TradeCancelled {
		t.Fatalf("expected CANCELLED, got %s", trade.State)
	}
	// Нога покупки довыполнилась, позиция удерживается
	if src.buys.Load() != 1 {
		t.Error("in-flight acquire leg must run to completion")
	}
	if br.transfers.Load() != 0 {
		t.Error("bridge leg must not start after cancellation")
	}
	if trade.Stranded == nil {
		t.Fatal("cancellation after acquire must record the held position")
	}
	if trade.Stranded.Chain != "ethereum" || !utils.ApproxEqual(trade.Stranded.Amount, 10.0, 1e-9) {
		t.Errorf("unexpected held position: %+v", trade.Stranded)
	}
}

func TestCancelDuringDisposeRejected(t *testing.T) {
	src, dst, br := crossChainSetup()
	dst.sellGate = make(chan struct{})
	c, reg := newTestCoordinator([]venue.Venue{src, dst}, br)

	opp := testOpportunity()
	fp := opp.Fingerprint()

	done := make(chan *models.Trade, 1)
	go func() {
		trade, _ := c.Execute(context.Background(), opp)
		done <- trade
	}()
	waitForState(t, reg, fp, models.TradeDisposing)

	if err := c.Cancel(fp); !errors.Is(err, ErrNotCancellable) {
		t.Errorf("expected ErrNotCancellable during DISPOSING, got %v", err)
	}

	close(dst.sellGate)
	if trade := <-done; trade.State != models.TradeSettled {
		t.Errorf("trade must settle despite rejected cancel, got %s", trade.State)
	}
}

func TestCancelUnknownFingerprint(t *testing.T) {
	src, dst, br := crossChainSetup()
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	if err := c.Cancel("no-such-fingerprint"); !errors.Is(err, registry.ErrTradeNotFound) {
		t.Errorf("expected ErrTradeNotFound, got %v", err)
	}
}

// Сумма, полученная из моста, не может превышать отправленную
func TestBridgeCannotIncreaseValue(t *testing.T) {
	src, dst, br := crossChainSetup()
	br.multiplier = 1.1 // мост заявляет больше, чем отправлено
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	trade, err := c.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade.State != models.TradeSettled {
		t.Fatalf("expected SETTLED, got %s", trade.State)
	}
	disposeLeg := trade.Legs[len(trade.Legs)-1]
	if !utils.ApproxEqual(disposeLeg.RequestedAmount, 10.0, 1e-9) {
		t.Errorf("dispose amount must be clamped to acquired 10.0, got %v", disposeLeg.RequestedAmount)
	}
}

func TestRecoverStranded(t *testing.T) {
	src, dst, br := crossChainSetup()
	br.transferErr = errors.New("bridge timeout")
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	failed, err := c.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed.Stranded == nil {
		t.Fatal("setup: trade must have a stranded position")
	}

	recovery, err := c.RecoverStranded(failed.ID)
	if err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if recovery.State != models.TradeSettled {
		t.Fatalf("expected recovery SETTLED, got %s (reason: %s)", recovery.State, recovery.FailureReason)
	}
	if recovery.RecoveryOf != failed.ID {
		t.Errorf("recovery must reference the original trade, got %q", recovery.RecoveryOf)
	}
	// Продажа 10 ETH по $100 на исходной сети
	if recovery.RealizedProfit == nil || !utils.ApproxEqual(*recovery.RealizedProfit, 1000.0, 1e-9) {
		t.Errorf("expected proceeds 1000, got %v", recovery.RealizedProfit)
	}
	if len(recovery.Legs) != 1 || recovery.Legs[0].Action != models.StepDispose {
		t.Errorf("recovery must run a single dispose leg, got %+v", recovery.Legs)
	}

	// Повторное восстановление той же позиции отклоняется
	if _, err := c.RecoverStranded(failed.ID); !errors.Is(err, ErrNoStrandedPosition) {
		t.Errorf("expected ErrNoStrandedPosition on second recovery, got %v", err)
	}
}

func TestRecoverStrandedWithoutPosition(t *testing.T) {
	src, dst, br := crossChainSetup()
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	settled, err := c.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.RecoverStranded(settled.ID); !errors.Is(err, ErrNoStrandedPosition) {
		t.Errorf("expected ErrNoStrandedPosition, got %v", err)
	}
}

func TestRecoverStrandedFailureKeepsPosition(t *testing.T) {
	src, dst, br := crossChainSetup()
	br.transferErr = errors.New("bridge timeout")
	src.sellErr = errors.New("venue down") // восстановление продаёт на исходной сети
	c, _ := newTestCoordinator([]venue.Venue{src, dst}, br)

	failed, err := c.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recovery, err := c.RecoverStranded(failed.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recovery.State != models.TradeFailed {
		t.Fatalf("expected recovery FAILED, got %s", recovery.State)
	}
	if recovery.Stranded == nil || !utils.ApproxEqual(recovery.Stranded.Amount, 10.0, 1e-9) {
		t.Errorf("failed recovery must keep the position stranded, got %+v", recovery.Stranded)
	}

	// Позиция всё ещё застрявшая, восстановление можно повторить
	src.sellErr = nil
	retried, err := c.RecoverStranded(failed.ID)
	if err != nil {
		t.Fatalf("retry must be allowed after failed recovery: %v", err)
	}
	if retried.State != models.TradeSettled {
		t.Errorf("expected retried recovery SETTLED, got %s", retried.State)
	}
}
