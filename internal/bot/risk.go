package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chainarb/internal/advisory"
	"chainarb/internal/models"
)

// Причины отклонения возможности
const (
	ReasonInsufficientProfit = "insufficient_margin:net_profit_below_threshold"
	ReasonGasExceedsProfit   = "insufficient_margin:gas_exceeds_profit"
	ReasonCapitalExceeded    = "insufficient_margin:capital_above_limit"
	ReasonAdvisoryUnavailable = "advisory_unavailable"
	ReasonAdvisoryScoreLow    = "advisory_score_below_threshold"
)

// RiskEvaluator принимает или отклоняет возможность перед исполнением.
// Порядок фиксирован: сначала детерминированные проверки, затем
// advisory-сервис. Проваленная детерминированная проверка отклоняет
// возможность без обращения к advisory.
type RiskEvaluator struct {
	advisory     advisory.Client
	neutralScore float64 // подставляется при недоступности advisory
	log          *zap.Logger
}

// NewRiskEvaluator создает оценщик риска
func NewRiskEvaluator(client advisory.Client, neutralScore float64, log *zap.Logger) *RiskEvaluator {
	return &RiskEvaluator{
		advisory:     client,
		neutralScore: neutralScore,
		log:          log,
	}
}

// Evaluate оценивает возможность. Никогда не возвращает ошибку:
// любой отказ выражается через Accept=false с причиной.
// Оценки независимых возможностей могут выполняться параллельно.
func (e *RiskEvaluator) Evaluate(ctx context.Context, opp *models.Opportunity, settings *models.Settings) *models.RiskResult {
	res := &models.RiskResult{EvaluatedAt: time.Now()}

	// ============ Детерминированные проверки ============

	if reason := e.checkGates(opp, settings); reason != "" {
		res.Reasons = []string{reason}
		RiskRejections.WithLabelValues(reason).Inc()
		// Тихий отказ: только debug-лог, возможность просто отбрасывается
		e.log.Debug("opportunity rejected by deterministic gate",
			zap.String("opportunity_id", opp.ID),
			zap.String("pair", opp.Pair.String()),
			zap.String("reason", reason))
		return res
	}

	// ============ Advisory-сигнал ============

	score, narrative, available := e.consultAdvisory(ctx, opp)
	res.Score = score
	res.Narrative = narrative

	if !available {
		res.Reasons = append(res.Reasons, ReasonAdvisoryUnavailable)
	}

	// Недоступность advisory даёт нейтральную оценку, которая ниже
	// порога принятия: сбой внешнего сервиса не одобряет сделку
	res.Accept = score >= settings.AdvisoryAcceptThreshold
	if !res.Accept && available {
		res.Reasons = append(res.Reasons, ReasonAdvisoryScoreLow)
	}
	if !res.Accept {
		for _, reason := range res.Reasons {
			RiskRejections.WithLabelValues(reason).Inc()
		}
	}
	return res
}

// checkGates выполняет детерминированные проверки и возвращает причину
// первого отказа или пустую строку
func (e *RiskEvaluator) checkGates(opp *models.Opportunity, settings *models.Settings) string {
	// Защита от устаревших данных: порог мог подняться после обнаружения
	if opp.NetProfitPct < settings.MinProfitPct {
		return ReasonInsufficientProfit
	}
	if opp.TotalGasCost() > opp.EstimatedProfit {
		return ReasonGasExceedsProfit
	}
	if opp.RequiredCapital > settings.MaxCapitalPerTrade {
		return ReasonCapitalExceeded
	}
	return ""
}

// consultAdvisory опрашивает advisory-сервис. При таймауте или ошибке
// возвращает нейтральную оценку и available=false.
func (e *RiskEvaluator) consultAdvisory(ctx context.Context, opp *models.Opportunity) (score float64, narrative string, available bool) {
	summary := advisory.Summary{
		Pair:            opp.Pair.String(),
		SourceChain:     opp.SourceChain,
		TargetChain:     opp.TargetChain,
		SourceVenue:     opp.SourceVenue,
		TargetVenue:     opp.TargetVenue,
		NetProfitPct:    opp.NetProfitPct,
		EstimatedProfit: opp.EstimatedProfit,
		RequiredCapital: opp.RequiredCapital,
	}

	start := time.Now()
	assessment, err := e.advisory.Assess(ctx, summary)
	AdvisoryLatency.Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		AdvisoryUnavailable.Inc()
		e.log.Warn("advisory unavailable, using neutral score",
			zap.String("opportunity_id", opp.ID),
			zap.Float64("neutral_score", e.neutralScore),
			zap.Error(err))
		return e.neutralScore, fmt.Sprintf("advisory unavailable: neutral score %.2f applied", e.neutralScore), false
	}
	return assessment.Score, assessment.Narrative, true
}
