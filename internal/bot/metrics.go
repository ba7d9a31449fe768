package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Используются Grafana дашбордами и Alertmanager:
// - латентность цикла сканирования и отдельных ног
// - счётчики возможностей и сделок
// - застрявшие позиции требуют немедленного алерта

// ============ Метрики сканирования ============

// ScanCycleDuration - длительность полного цикла сканирования
var ScanCycleDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "chainarb",
		Subsystem: "scanner",
		Name:      "cycle_duration_ms",
		Help:      "Duration of a full scan cycle in milliseconds",
		Buckets:   []float64{50, 100, 200, 400, 600, 800, 1000, 2000},
	},
)

// QuoteErrors - ошибки запросов котировок по площадкам
var QuoteErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chainarb",
		Subsystem: "scanner",
		Name:      "quote_errors_total",
		Help:      "Number of failed quote requests",
	},
	[]string{"venue", "chain"},
)

// SpreadObserved - наблюдаемые чистые спреды
var SpreadObserved = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "chainarb",
		Subsystem: "scanner",
		Name:      "net_spread_percent",
		Help:      "Observed net profit percentages",
		Buckets:   []float64{-2, -1, -0.5, 0, 0.5, 1, 2, 3, 5, 10},
	},
	[]string{"pair"},
)

// OpportunitiesDetected - обнаруженные возможности
var OpportunitiesDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chainarb",
		Subsystem: "scanner",
		Name:      "opportunities_detected_total",
		Help:      "Number of arbitrage opportunities detected",
	},
	[]string{"pair", "emitted"}, // emitted: yes, no (ниже порога)
)

// ============ Метрики оценки риска ============

// AdvisoryLatency - латентность advisory-сервиса
var AdvisoryLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "chainarb",
		Subsystem: "risk",
		Name:      "advisory_latency_ms",
		Help:      "Advisory service response time in milliseconds",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 3000, 5000},
	},
)

// AdvisoryUnavailable - недоступность advisory-сервиса
var AdvisoryUnavailable = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "chainarb",
		Subsystem: "risk",
		Name:      "advisory_unavailable_total",
		Help:      "Number of advisory calls resolved with the neutral score",
	},
)

// RiskRejections - отклонения по причинам
var RiskRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chainarb",
		Subsystem: "risk",
		Name:      "rejections_total",
		Help:      "Number of opportunities rejected by risk evaluation",
	},
	[]string{"reason"},
)

// ============ Метрики исполнения ============

// TradesTotal - сделки по результатам
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chainarb",
		Subsystem: "executor",
		Name:      "trades_total",
		Help:      "Total number of trades by result",
	},
	[]string{"result"}, // settled, failed, cancelled, rejected
)

// ProfitTotal - суммарная реализованная прибыль в USD
var ProfitTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "chainarb",
		Subsystem: "executor",
		Name:      "profit_total_usd",
		Help:      "Total realized profit in USD",
	},
)

// LegLatency - латентность исполнения ноги
var LegLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "chainarb",
		Subsystem: "executor",
		Name:      "leg_latency_ms",
		Help:      "Leg execution time in milliseconds",
		Buckets:   []float64{100, 250, 500, 1000, 5000, 15000, 60000, 120000},
	},
	[]string{"leg"}, // acquire, bridge, dispose
)

// ActiveExecutions - текущее количество исполняющихся сделок
var ActiveExecutions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "chainarb",
		Subsystem: "executor",
		Name:      "active_executions",
		Help:      "Current number of in-flight trades",
	},
)

// StrandedPositions - застрявшие позиции по сетям
var StrandedPositions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chainarb",
		Subsystem: "executor",
		Name:      "stranded_positions_total",
		Help:      "Number of stranded positions recorded",
	},
	[]string{"chain"},
)

// DuplicateRejections - отклонённые дубликаты исполнения
var DuplicateRejections = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "chainarb",
		Subsystem: "executor",
		Name:      "duplicate_rejections_total",
		Help:      "Number of execute requests rejected as duplicate in-flight",
	},
)

// ============ Метрики производительности ============

// BufferOverflows - переполнения буферов каналов
var BufferOverflows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chainarb",
		Subsystem: "runtime",
		Name:      "buffer_overflows_total",
		Help:      "Number of channel buffer overflows (events dropped)",
	},
	[]string{"buffer"}, // notification
)

// ============ Вспомогательные функции ============

// RecordQuoteError записывает ошибку котировки
func RecordQuoteError(venueName, chainName string) {
	QuoteErrors.WithLabelValues(venueName, chainName).Inc()
}

// RecordOpportunity записывает обнаруженную возможность
func RecordOpportunity(pair string, netPct float64, emitted bool) {
	SpreadObserved.WithLabelValues(pair).Observe(netPct)
	emittedStr := "no"
	if emitted {
		emittedStr = "yes"
	}
	OpportunitiesDetected.WithLabelValues(pair, emittedStr).Inc()
}

// RecordTrade записывает результат сделки
func RecordTrade(result string, profit float64) {
	TradesTotal.WithLabelValues(result).Inc()
	if result == "settled" && profit > 0 {
		ProfitTotal.Add(profit)
	}
}

// RecordStranded записывает застрявшую позицию
func RecordStranded(chainName string) {
	StrandedPositions.WithLabelValues(chainName).Inc()
}

// RecordBufferOverflow записывает переполнение буфера
func RecordBufferOverflow(bufferName string) {
	BufferOverflows.WithLabelValues(bufferName).Inc()
}
