package repository

import (
	"database/sql"
	"errors"
	"time"

	"chainarb/internal/models"
)

// Ошибки репозитория уведомлений
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationRepository - работа с таблицей notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create сохраняет уведомление
func (r *NotificationRepository) Create(n *models.Notification) error {
	var metaJSON []byte
	if n.Meta != nil {
		var err error
		metaJSON, err = json.Marshal(n.Meta)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO notifications (timestamp, type, severity, trade_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	return r.db.QueryRow(
		query,
		n.Timestamp,
		n.Type,
		n.Severity,
		nullableString(n.TradeID),
		n.Message,
		metaJSON,
	).Scan(&n.ID)
}

// GetRecent возвращает последние N уведомлений
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, trade_id, message, meta, read
		FROM notifications
		ORDER BY timestamp DESC
		LIMIT $1`

	return r.queryNotifications(query, limit)
}

// GetByType возвращает уведомления определенного типа
func (r *NotificationRepository) GetByType(notifType string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, trade_id, message, meta, read
		FROM notifications
		WHERE type = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	return r.queryNotifications(query, notifType, limit)
}

// GetByTradeID возвращает все уведомления сделки
func (r *NotificationRepository) GetByTradeID(tradeID string) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, trade_id, message, meta, read
		FROM notifications
		WHERE trade_id = $1
		ORDER BY timestamp ASC`

	return r.queryNotifications(query, tradeID)
}

// MarkRead помечает уведомление прочитанным
func (r *NotificationRepository) MarkRead(id int) error {
	result, err := r.db.Exec(`UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// DeleteOlderThan удаляет уведомления старше указанной даты
func (r *NotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE timestamp < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *NotificationRepository) queryNotifications(query string, args ...interface{}) ([]*models.Notification, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var tradeID sql.NullString
		var metaJSON []byte
		err := rows.Scan(
			&n.ID,
			&n.Timestamp,
			&n.Type,
			&n.Severity,
			&tradeID,
			&n.Message,
			&metaJSON,
			&n.Read,
		)
		if err != nil {
			return nil, err
		}
		n.TradeID = tradeID.String
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &n.Meta); err != nil {
				return nil, err
			}
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}
