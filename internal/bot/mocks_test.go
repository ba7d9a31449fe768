package bot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chainarb/internal/advisory"
	"chainarb/internal/bridge"
	"chainarb/internal/models"
	"chainarb/internal/venue"
)

// fakeVenue - управляемая площадка для тестов координатора и сканера
type fakeVenue struct {
	name    string
	chain   string
	price   float64
	gasUSD  float64
	retain  float64 // доля после проскальзывания, 1.0 = без потерь
	latency time.Duration

	quoteErr error
	buyErr   error
	sellErr  error

	// buyGate/sellGate блокируют исполнение до закрытия канала
	buyGate  chan struct{}
	sellGate chan struct{}

	buys  atomic.Int64
	sells atomic.Int64
}

func newFakeVenue(name, chain string, price, gasUSD float64) *fakeVenue {
	return &fakeVenue{name: name, chain: chain, price: price, gasUSD: gasUSD, retain: 1.0}
}

func (v *fakeVenue) Name() string  { return v.name }
func (v *fakeVenue) Chain() string { return v.chain }

func (v *fakeVenue) SupportsPair(pair models.TokenPair) bool { return !pair.IsZero() }

func (v *fakeVenue) Quote(ctx context.Context, pair models.TokenPair) (*venue.Quote, error) {
	if v.quoteErr != nil {
		return nil, v.quoteErr
	}
	return &venue.Quote{
		Chain:       v.chain,
		Venue:       v.name,
		Pair:        pair,
		Price:       v.price,
		GasUSD:      v.gasUSD,
		RetrievedAt: time.Now(),
	}, nil
}

func (v *fakeVenue) Buy(ctx context.Context, pair models.TokenPair, capital float64) (*venue.Fill, error) {
	v.buys.Add(1)
	if err := v.wait(ctx, v.buyGate); err != nil {
		return nil, err
	}
	if v.buyErr != nil {
		return nil, v.buyErr
	}
	return &venue.Fill{
		ReceivedAmount: capital / v.price * v.retain,
		AvgPrice:       v.price,
		ReferenceID:    fmt.Sprintf("%s-buy-%d", v.name, v.buys.Load()),
		ExecutedAt:     time.Now(),
	}, nil
}

func (v *fakeVenue) Sell(ctx context.Context, pair models.TokenPair, amount float64) (*venue.Fill, error) {
	v.sells.Add(1)
	if err := v.wait(ctx, v.sellGate); err != nil {
		return nil, err
	}
	if v.sellErr != nil {
		return nil, v.sellErr
	}
	return &venue.Fill{
		ReceivedAmount: amount * v.price * v.retain,
		AvgPrice:       v.price,
		ReferenceID:    fmt.Sprintf("%s-sell-%d", v.name, v.sells.Load()),
		ExecutedAt:     time.Now(),
	}, nil
}

func (v *fakeVenue) Close() error { return nil }

func (v *fakeVenue) wait(ctx context.Context, gate chan struct{}) error {
	if v.latency > 0 {
		select {
		case <-time.After(v.latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// fakeBridge - управляемый мост
type fakeBridge struct {
	feePct      float64
	feeErr      error
	transferErr error
	// multiplier искажает полученную сумму, 0 = честная комиссия
	multiplier float64

	transfers atomic.Int64
}

func (b *fakeBridge) Transfer(ctx context.Context, from, to, token string, amount float64) (*bridge.Receipt, error) {
	b.transfers.Add(1)
	if b.transferErr != nil {
		return nil, b.transferErr
	}
	received := amount * (1 - b.feePct/100)
	if b.multiplier > 0 {
		received = amount * b.multiplier
	}
	return &bridge.Receipt{
		ReceivedAmount: received,
		ReferenceID:    fmt.Sprintf("bridge-%d", b.transfers.Load()),
		CompletedAt:    time.Now(),
	}, nil
}

func (b *fakeBridge) FeePct(from, to string) (float64, error) {
	if b.feeErr != nil {
		return 0, b.feeErr
	}
	return b.feePct, nil
}

func (b *fakeBridge) Close() error { return nil }

// fakeAdvisory - управляемый advisory-сервис
type fakeAdvisory struct {
	score float64
	err   error
	calls atomic.Int64
}

func (a *fakeAdvisory) Assess(ctx context.Context, summary advisory.Summary) (*advisory.Assessment, error) {
	a.calls.Add(1)
	if a.err != nil {
		return nil, a.err
	}
	return &advisory.Assessment{Score: a.score, CreatedAt: time.Now()}, nil
}

// staticSnapshot - неизменяемый источник настроек для движка
type staticSnapshot struct {
	mu       sync.Mutex
	settings *models.Settings
	pairs    []models.TokenPair
}

func (s *staticSnapshot) Snapshot() (*models.Settings, []models.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone(), s.pairs
}

// testSettings возвращает настройки по умолчанию для тестов
func testSettings() *models.Settings {
	return &models.Settings{
		MinProfitPct:            1.0,
		MaxCapitalPerTrade:      5000,
		TradeCapital:            1000,
		MaxSlippagePct:          0,
		MaxConcurrentExecutions: 3,
		AdvisoryAcceptThreshold: 0.7,
		EnabledChains:           []string{"ethereum", "polygon"},
	}
}
