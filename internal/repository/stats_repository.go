package repository

import (
	"database/sql"
	"time"

	"chainarb/internal/models"
	"chainarb/pkg/utils"
)

// StatsRepository - агрегация статистики из таблицы trades
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository создает новый экземпляр репозитория
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetStats возвращает агрегаты по всем терминальным сделкам.
// Прибыль считается только реализованная: застрявшие позиции
// в прибыли не участвуют.
func (r *StatsRepository) GetStats() (*models.Stats, error) {
	stats := &models.Stats{}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE state = $1),
			COUNT(*) FILTER (WHERE state = $2),
			COUNT(*) FILTER (WHERE state = $3),
			COALESCE(SUM(realized_profit) FILTER (WHERE state = $1 AND recovery_of IS NULL), 0)
		FROM trades`

	err := r.db.QueryRow(query, models.TradeSettled, models.TradeFailed, models.TradeCancelled).Scan(
		&stats.TotalTrades,
		&stats.SettledTrades,
		&stats.FailedTrades,
		&stats.CancelledCount,
		&stats.TotalProfit,
	)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if stats.TodayTrades, stats.TodayProfit, err = r.periodStats(utils.DayStartFrom(now), now); err != nil {
		return nil, err
	}
	if stats.WeekTrades, stats.WeekProfit, err = r.periodStats(utils.WeekStartFrom(now), now); err != nil {
		return nil, err
	}

	if stats.StrandedOpen, err = r.countOpenStranded(); err != nil {
		return nil, err
	}
	if stats.TopPairs, err = r.topPairsByProfit(5); err != nil {
		return nil, err
	}
	if stats.TopRoutes, err = r.topRoutesByTrades(5); err != nil {
		return nil, err
	}

	return stats, nil
}

// periodStats возвращает количество сделок и прибыль за период
func (r *StatsRepository) periodStats(from, to time.Time) (int, float64, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(realized_profit) FILTER (WHERE state = $1 AND recovery_of IS NULL), 0)
		FROM trades
		WHERE created_at >= $2 AND created_at <= $3`

	var count int
	var profit float64
	err := r.db.QueryRow(query, models.TradeSettled, from, to).Scan(&count, &profit)
	return count, profit, err
}

// countOpenStranded считает застрявшие позиции без успешного восстановления
func (r *StatsRepository) countOpenStranded() (int, error) {
	query := `
		SELECT COUNT(*)
		FROM trades t
		WHERE t.stranded IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM trades rec
			WHERE rec.recovery_of = t.id AND rec.state = $1
		  )`

	var count int
	err := r.db.QueryRow(query, models.TradeSettled).Scan(&count)
	return count, err
}

// topPairsByProfit возвращает топ пар по реализованной прибыли
func (r *StatsRepository) topPairsByProfit(limit int) ([]models.PairStat, error) {
	query := `
		SELECT opportunity->'pair'->>'base' || '/' || opportunity->'pair'->>'quote' AS pair,
		       SUM(realized_profit) AS profit
		FROM trades
		WHERE state = $1 AND recovery_of IS NULL
		GROUP BY pair
		ORDER BY profit DESC
		LIMIT $2`

	rows, err := r.db.Query(query, models.TradeSettled, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.PairStat
	for rows.Next() {
		var s models.PairStat
		if err := rows.Scan(&s.Pair, &s.Value); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// topRoutesByTrades возвращает топ маршрутов источник->цель по сделкам
func (r *StatsRepository) topRoutesByTrades(limit int) ([]models.RouteStat, error) {
	query := `
		SELECT opportunity->>'source_chain', opportunity->>'target_chain', COUNT(*) AS trades
		FROM trades
		WHERE recovery_of IS NULL
		GROUP BY 1, 2
		ORDER BY trades DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.RouteStat
	for rows.Next() {
		var s models.RouteStat
		if err := rows.Scan(&s.SourceChain, &s.TargetChain, &s.Value); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
