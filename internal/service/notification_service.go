package service

import (
	"time"

	"chainarb/internal/models"
)

// NotificationService предоставляет бизнес-логику уведомлений
type NotificationService struct {
	repo NotificationRepositoryInterface
}

// NewNotificationService создает сервис уведомлений
func NewNotificationService(repo NotificationRepositoryInterface) *NotificationService {
	return &NotificationService{repo: repo}
}

// Record сохраняет уведомление. Ошибка записи не должна ронять
// поток уведомлений, поэтому вызывающая сторона только логирует её.
func (s *NotificationService) Record(n *models.Notification) error {
	return s.repo.Create(n)
}

// GetRecent возвращает последние уведомления, опционально по типу
func (s *NotificationService) GetRecent(notifType string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if notifType != "" {
		return s.repo.GetByType(notifType, limit)
	}
	return s.repo.GetRecent(limit)
}

// GetByTradeID возвращает хронологию уведомлений сделки
func (s *NotificationService) GetByTradeID(tradeID string) ([]*models.Notification, error) {
	return s.repo.GetByTradeID(tradeID)
}

// Ack помечает уведомление прочитанным
func (s *NotificationService) Ack(id int) error {
	return s.repo.MarkRead(id)
}

// PurgeOlderThan удаляет уведомления старше указанного возраста
func (s *NotificationService) PurgeOlderThan(age time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(time.Now().Add(-age))
}
