package venue

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chainarb/internal/chain"
	"chainarb/internal/models"
)

// SimulatedVenue — детерминированная площадка для режима симуляции.
// Цена колеблется вокруг базовой с постоянным смещением площадки,
// поэтому расхождения между площадками возникают предсказуемо.
type SimulatedVenue struct {
	name      string
	chainName string
	basePrice map[string]float64 // pair -> базовая цена
	offsetPct float64            // постоянное смещение площадки, %
	slippage  float64            // реализуемое проскальзывание, доля (0.01 = 1%)
	latency   time.Duration      // имитация сетевой задержки
	gas       chain.GasOracle
	seq       atomic.Int64
}

// SimulatedConfig описывает симулируемую площадку
type SimulatedConfig struct {
	Name       string
	Chain      string
	BasePrices map[string]float64 // "ETH/USDC" -> 100.0
	OffsetPct  float64
	Slippage   float64
	Latency    time.Duration
}

// NewSimulatedVenue создает симулируемую площадку
func NewSimulatedVenue(cfg SimulatedConfig, gas chain.GasOracle) *SimulatedVenue {
	prices := make(map[string]float64, len(cfg.BasePrices))
	for pair, price := range cfg.BasePrices {
		prices[pair] = price
	}
	slippage := cfg.Slippage
	if slippage <= 0 {
		slippage = 0.01
	}
	return &SimulatedVenue{
		name:      cfg.Name,
		chainName: cfg.Chain,
		basePrice: prices,
		offsetPct: cfg.OffsetPct,
		slippage:  slippage,
		latency:   cfg.Latency,
		gas:       gas,
	}
}

func (v *SimulatedVenue) Name() string  { return v.name }
func (v *SimulatedVenue) Chain() string { return v.chainName }

func (v *SimulatedVenue) SupportsPair(pair models.TokenPair) bool {
	_, ok := v.basePrice[pair.String()]
	return ok
}

// price возвращает детерминированную цену: базовая цена со смещением
// площадки и медленной синусоидой, имитирующей движение рынка
func (v *SimulatedVenue) price(pair models.TokenPair, now time.Time) (float64, bool) {
	base, ok := v.basePrice[pair.String()]
	if !ok {
		return 0, false
	}
	wave := 0.002 * math.Sin(float64(now.Unix()%3600)/3600*2*math.Pi)
	return base * (1 + v.offsetPct/100) * (1 + wave), true
}

func (v *SimulatedVenue) sleep(ctx context.Context) error {
	if v.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(v.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (v *SimulatedVenue) Quote(ctx context.Context, pair models.TokenPair) (*Quote, error) {
	if err := v.sleep(ctx); err != nil {
		return nil, v.wrapErr("timeout", err)
	}
	price, ok := v.price(pair, time.Now())
	if !ok {
		return nil, ErrPairNotSupported
	}
	gasUSD := 0.25
	if v.gas != nil {
		if est, err := v.gas.GasCostUSD(ctx, v.chainName); err == nil {
			gasUSD = est
		}
	}
	return &Quote{
		Chain:       v.chainName,
		Venue:       v.name,
		Pair:        pair,
		Price:       price,
		GasUSD:      gasUSD,
		RetrievedAt: time.Now(),
	}, nil
}

func (v *SimulatedVenue) Buy(ctx context.Context, pair models.TokenPair, capital float64) (*Fill, error) {
	if err := v.sleep(ctx); err != nil {
		return nil, v.wrapErr("timeout", err)
	}
	price, ok := v.price(pair, time.Now())
	if !ok {
		return nil, ErrPairNotSupported
	}
	// Полученное количество уменьшается на проскальзывание
	received := capital / price * (1 - v.slippage)
	return &Fill{
		ReceivedAmount: received,
		AvgPrice:       price,
		ReferenceID:    v.reference("buy"),
		ExecutedAt:     time.Now(),
	}, nil
}

func (v *SimulatedVenue) Sell(ctx context.Context, pair models.TokenPair, amount float64) (*Fill, error) {
	if err := v.sleep(ctx); err != nil {
		return nil, v.wrapErr("timeout", err)
	}
	price, ok := v.price(pair, time.Now())
	if !ok {
		return nil, ErrPairNotSupported
	}
	proceeds := amount * price * (1 - v.slippage)
	return &Fill{
		ReceivedAmount: proceeds,
		AvgPrice:       price,
		ReferenceID:    v.reference("sell"),
		ExecutedAt:     time.Now(),
	}, nil
}

func (v *SimulatedVenue) reference(side string) string {
	return fmt.Sprintf("sim-%s-%s-%d-%s", v.name, side, v.seq.Add(1), uuid.Must(uuid.NewRandom()).String()[:8])
}

func (v *SimulatedVenue) wrapErr(code string, err error) error {
	return &Error{
		Venue:     v.name,
		Chain:     v.chainName,
		Code:      code,
		Message:   err.Error(),
		Transient: true,
		Original:  err,
	}
}

func (v *SimulatedVenue) Close() error { return nil }
