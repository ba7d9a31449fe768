package bot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chainarb/internal/bridge"
	"chainarb/internal/cache"
	"chainarb/internal/models"
	"chainarb/internal/venue"
	"chainarb/pkg/utils"
)

// Blacklist отвечает, исключён ли токен из сканирования
type Blacklist interface {
	IsBlacklisted(token string) bool
}

// ScanSettings — снимок настроек на один цикл сканирования.
// Изменения настроек применяются со следующего цикла.
type ScanSettings struct {
	Pairs         []models.TokenPair
	EnabledChains []string
	MinProfitPct  float64
	Capital       float64 // USD на сделку
	SlippagePct   float64
}

// Scanner обнаруживает ценовые расхождения между площадками.
// Один цикл: параллельный сбор котировок со всех (сеть, площадка)
// комбинаций, затем попарный расчёт чистой прибыли.
type Scanner struct {
	venues       []venue.Venue
	bridge       bridge.Bridge
	cache        *cache.QuoteCache // nil = кэш выключен
	blacklist    Blacklist         // nil = без ограничений
	quoteTimeout time.Duration
	log          *zap.Logger
}

// NewScanner создает сканер возможностей
func NewScanner(venues []venue.Venue, br bridge.Bridge, quoteCache *cache.QuoteCache, blacklist Blacklist, quoteTimeout time.Duration, log *zap.Logger) *Scanner {
	return &Scanner{
		venues:       venues,
		bridge:       br,
		cache:        quoteCache,
		blacklist:    blacklist,
		quoteTimeout: quoteTimeout,
		log:          log,
	}
}

// Scan выполняет один цикл сканирования и возвращает возможности
// с чистой прибылью не ниже порога. Ошибка отдельной площадки
// исключает её из цикла, но не прерывает его.
func (s *Scanner) Scan(ctx context.Context, settings ScanSettings) []*models.Opportunity {
	start := time.Now()
	defer func() {
		ScanCycleDuration.Observe(float64(time.Since(start).Milliseconds()))
	}()

	// Нулевой или отрицательный капитал — некорректный запрос
	if settings.Capital <= 0 {
		s.log.Warn("scan rejected: non-positive capital", zap.Float64("capital", settings.Capital))
		return nil
	}

	quotes := s.collectQuotes(ctx, settings)

	var opps []*models.Opportunity
	for _, pairQuotes := range quotes {
		opps = append(opps, s.pairwise(pairQuotes, settings)...)
	}
	return opps
}

// collectQuotes опрашивает все комбинации (пара, площадка) параллельно
// с таймаутом на запрос. Возвращает котировки, сгруппированные по паре.
func (s *Scanner) collectQuotes(ctx context.Context, settings ScanSettings) map[string][]*venue.Quote {
	enabled := make(map[string]bool, len(settings.EnabledChains))
	for _, c := range settings.EnabledChains {
		enabled[c] = true
	}

	var mu sync.Mutex
	quotes := make(map[string][]*venue.Quote)

	g, gctx := errgroup.WithContext(ctx)
	for _, pair := range settings.Pairs {
		if s.blacklist != nil && s.blacklist.IsBlacklisted(pair.Base) {
			continue
		}
		for _, v := range s.venues {
			if !enabled[v.Chain()] {
				continue
			}
			// Неподдерживаемая пара — не ошибка, просто нет возможности
			if !v.SupportsPair(pair) {
				continue
			}
			v, pair := v, pair
			g.Go(func() error {
				qctx, cancel := context.WithTimeout(gctx, s.quoteTimeout)
				defer cancel()

				q, err := v.Quote(qctx, pair)
				if err != nil {
					RecordQuoteError(v.Name(), v.Chain())
					s.log.Debug("quote failed, venue excluded from cycle",
						zap.String("venue", v.Name()),
						zap.String("chain", v.Chain()),
						zap.String("pair", pair.String()),
						zap.Error(err))
					return nil // никогда не прерываем цикл из-за одной площадки
				}

				mu.Lock()
				quotes[pair.String()] = append(quotes[pair.String()], q)
				mu.Unlock()

				if err := s.cache.Put(ctx, q); err != nil {
					s.log.Debug("quote cache write failed", zap.Error(err))
				}
				return nil
			})
		}
	}
	_ = g.Wait() // воркеры ошибок не возвращают

	return quotes
}

// pairwise вычисляет чистую прибыль каждой упорядоченной пары котировок
// и отбирает комбинации выше порога
func (s *Scanner) pairwise(quotes []*venue.Quote, settings ScanSettings) []*models.Opportunity {
	var opps []*models.Opportunity
	for _, src := range quotes {
		for _, dst := range quotes {
			if src == dst {
				continue
			}
			if opp := s.evaluateCombination(src, dst, settings); opp != nil {
				opps = append(opps, opp)
			}
		}
	}
	return opps
}

// evaluateCombination строит возможность для направления src -> dst
// или возвращает nil, если чистая прибыль ниже порога
func (s *Scanner) evaluateCombination(src, dst *venue.Quote, settings ScanSettings) *models.Opportunity {
	crossChain := src.Chain != dst.Chain

	bridgeFeePct := 0.0
	if crossChain {
		fee, err := s.bridge.FeePct(src.Chain, dst.Chain)
		if err != nil {
			// Маршрут без моста — нет возможности, не ошибка
			return nil
		}
		bridgeFeePct = fee
	}

	grossPct := utils.GrossSpreadPct(src.Price, dst.Price)
	netUSD := utils.NetProfitUSD(settings.Capital, grossPct, src.GasUSD, dst.GasUSD, bridgeFeePct, settings.SlippagePct)
	netPct := utils.NetProfitPct(netUSD, settings.Capital)

	RecordOpportunity(src.Pair.String(), netPct, netPct >= settings.MinProfitPct)
	if netPct < settings.MinProfitPct {
		return nil
	}

	plan := []models.ExecutionStep{
		{Action: models.StepAcquire, Chain: src.Chain, Venue: src.Venue},
	}
	if crossChain {
		plan = append(plan, models.ExecutionStep{Action: models.StepBridge, Chain: dst.Chain})
	}
	plan = append(plan, models.ExecutionStep{Action: models.StepDispose, Chain: dst.Chain, Venue: dst.Venue})

	gasCosts := map[string]float64{src.Chain: src.GasUSD}
	gasCosts[dst.Chain] += dst.GasUSD

	// Момент обнаружения — самая старая из двух котировок:
	// окно устаревания отсчитывается от худшей цены
	discoveredAt := src.RetrievedAt
	if dst.RetrievedAt.Before(discoveredAt) {
		discoveredAt = dst.RetrievedAt
	}

	return &models.Opportunity{
		ID:              uuid.Must(uuid.NewRandom()).String(),
		SourceChain:     src.Chain,
		TargetChain:     dst.Chain,
		SourceVenue:     src.Venue,
		TargetVenue:     dst.Venue,
		Pair:            src.Pair,
		SourcePrice:     src.Price,
		TargetPrice:     dst.Price,
		GrossSpreadPct:  grossPct,
		NetProfitPct:    netPct,
		EstimatedProfit: netUSD,
		RequiredCapital: settings.Capital,
		Plan:            plan,
		GasCosts:        gasCosts,
		BridgeFeePct:    bridgeFeePct,
		SlippagePct:     settings.SlippagePct,
		DiscoveredAt:    discoveredAt,
	}
}
