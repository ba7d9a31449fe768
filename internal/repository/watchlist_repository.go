package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"chainarb/internal/models"
)

// Ошибки репозитория watchlist
var (
	ErrPairNotFound = errors.New("watch pair not found")
	ErrPairExists   = errors.New("pair already in watchlist")
)

// WatchlistRepository - работа с таблицей watchlist
type WatchlistRepository struct {
	db *sql.DB
}

// NewWatchlistRepository создает новый экземпляр репозитория
func NewWatchlistRepository(db *sql.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// Create добавляет пару в watchlist
func (r *WatchlistRepository) Create(pair *models.WatchPair) error {
	query := `
		INSERT INTO watchlist (base, quote, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	now := time.Now()
	pair.CreatedAt = now
	pair.UpdatedAt = now
	if pair.Status == "" {
		pair.Status = models.WatchPairActive
	}

	err := r.db.QueryRow(
		query,
		strings.ToUpper(pair.Base),
		strings.ToUpper(pair.Quote),
		pair.Status,
		pair.CreatedAt,
		pair.UpdatedAt,
	).Scan(&pair.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrPairExists
		}
		return err
	}

	return nil
}

// GetAll возвращает все пары watchlist
func (r *WatchlistRepository) GetAll() ([]*models.WatchPair, error) {
	query := `
		SELECT id, base, quote, status, created_at, updated_at
		FROM watchlist
		ORDER BY created_at DESC`

	return r.queryPairs(query)
}

// GetActive возвращает только активные пары (входят в цикл сканирования)
func (r *WatchlistRepository) GetActive() ([]*models.WatchPair, error) {
	query := `
		SELECT id, base, quote, status, created_at, updated_at
		FROM watchlist
		WHERE status = $1
		ORDER BY created_at DESC`

	return r.queryPairs(query, models.WatchPairActive)
}

// GetByID возвращает пару по ID
func (r *WatchlistRepository) GetByID(id int) (*models.WatchPair, error) {
	query := `
		SELECT id, base, quote, status, created_at, updated_at
		FROM watchlist
		WHERE id = $1`

	pair := &models.WatchPair{}
	err := r.db.QueryRow(query, id).Scan(
		&pair.ID,
		&pair.Base,
		&pair.Quote,
		&pair.Status,
		&pair.CreatedAt,
		&pair.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPairNotFound
		}
		return nil, err
	}

	return pair, nil
}

// UpdateStatus переключает пару между active и paused
func (r *WatchlistRepository) UpdateStatus(id int, status string) error {
	query := `
		UPDATE watchlist
		SET status = $1, updated_at = $2
		WHERE id = $3`

	result, err := r.db.Exec(query, status, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrPairNotFound
	}

	return nil
}

// Delete удаляет пару из watchlist
func (r *WatchlistRepository) Delete(id int) error {
	query := `DELETE FROM watchlist WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrPairNotFound
	}

	return nil
}

// Count возвращает количество пар в watchlist
func (r *WatchlistRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM watchlist`

	var count int
	if err := r.db.QueryRow(query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *WatchlistRepository) queryPairs(query string, args ...interface{}) ([]*models.WatchPair, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []*models.WatchPair
	for rows.Next() {
		pair := &models.WatchPair{}
		err := rows.Scan(
			&pair.ID,
			&pair.Base,
			&pair.Quote,
			&pair.Status,
			&pair.CreatedAt,
			&pair.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением UNIQUE constraint
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}
