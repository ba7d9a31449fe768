package repository

import (
	"database/sql"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"chainarb/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository - работа с таблицей trades.
// Хранит только терминальные сделки: активные живут в реестре в памяти,
// запись выполняется при переносе в историю.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Archive сохраняет терминальную сделку. Ноги, застрявшая позиция
// и снимок возможности сериализуются в JSON колонки.
func (r *TradeRepository) Archive(trade *models.Trade) error {
	legsJSON, err := json.Marshal(trade.Legs)
	if err != nil {
		return err
	}
	oppJSON, err := json.Marshal(trade.Opportunity)
	if err != nil {
		return err
	}
	var strandedJSON []byte
	if trade.Stranded != nil {
		strandedJSON, err = json.Marshal(trade.Stranded)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO trades (id, fingerprint, state, opportunity, legs, realized_profit, stranded, failure_reason, recovery_of, created_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(
		query,
		trade.ID,
		trade.Fingerprint,
		trade.State,
		oppJSON,
		legsJSON,
		trade.RealizedProfit,
		strandedJSON,
		nullableString(trade.FailureReason),
		nullableString(trade.RecoveryOf),
		trade.CreatedAt,
		trade.ClosedAt,
	)
	return err
}

// GetByID возвращает сделку по ID
func (r *TradeRepository) GetByID(id string) (*models.Trade, error) {
	query := `
		SELECT id, fingerprint, state, opportunity, legs, realized_profit, stranded, failure_reason, recovery_of, created_at, closed_at
		FROM trades
		WHERE id = $1`

	trade, err := scanTrade(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return trade, nil
}

// GetRecent возвращает последние N сделок
func (r *TradeRepository) GetRecent(limit int) ([]*models.Trade, error) {
	query := `
		SELECT id, fingerprint, state, opportunity, legs, realized_profit, stranded, failure_reason, recovery_of, created_at, closed_at
		FROM trades
		ORDER BY created_at DESC
		LIMIT $1`

	return r.queryTrades(query, limit)
}

// GetByState возвращает сделки в указанном терминальном состоянии
func (r *TradeRepository) GetByState(state string, limit int) ([]*models.Trade, error) {
	query := `
		SELECT id, fingerprint, state, opportunity, legs, realized_profit, stranded, failure_reason, recovery_of, created_at, closed_at
		FROM trades
		WHERE state = $1
		ORDER BY created_at DESC
		LIMIT $2`

	return r.queryTrades(query, state, limit)
}

// GetStranded возвращает сделки с незакрытой застрявшей позицией:
// позиция записана и нет успешного восстановления, ссылающегося на сделку
func (r *TradeRepository) GetStranded() ([]*models.Trade, error) {
	query := `
		SELECT t.id, t.fingerprint, t.state, t.opportunity, t.legs, t.realized_profit, t.stranded, t.failure_reason, t.recovery_of, t.created_at, t.closed_at
		FROM trades t
		WHERE t.stranded IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM trades rec
			WHERE rec.recovery_of = t.id AND rec.state = $1
		  )
		ORDER BY t.created_at DESC`

	return r.queryTrades(query, models.TradeSettled)
}

// DeleteOlderThan удаляет сделки старше указанной даты
func (r *TradeRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM trades WHERE created_at < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Count возвращает общее количество сделок
func (r *TradeRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM trades`

	var count int
	if err := r.db.QueryRow(query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *TradeRepository) queryTrades(query string, args ...interface{}) ([]*models.Trade, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return trades, nil
}

// rowScanner покрывает *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	trade := &models.Trade{}
	var oppJSON, legsJSON, strandedJSON []byte
	var failureReason, recoveryOf sql.NullString

	err := row.Scan(
		&trade.ID,
		&trade.Fingerprint,
		&trade.State,
		&oppJSON,
		&legsJSON,
		&trade.RealizedProfit,
		&strandedJSON,
		&failureReason,
		&recoveryOf,
		&trade.CreatedAt,
		&trade.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(oppJSON) > 0 {
		if err := json.Unmarshal(oppJSON, &trade.Opportunity); err != nil {
			return nil, err
		}
	}
	if len(legsJSON) > 0 {
		if err := json.Unmarshal(legsJSON, &trade.Legs); err != nil {
			return nil, err
		}
	}
	if len(strandedJSON) > 0 {
		if err := json.Unmarshal(strandedJSON, &trade.Stranded); err != nil {
			return nil, err
		}
	}
	trade.FailureReason = failureReason.String
	trade.RecoveryOf = recoveryOf.String
	return trade, nil
}

// nullableString возвращает NULL вместо пустой строки
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
