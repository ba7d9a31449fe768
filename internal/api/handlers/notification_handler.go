package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"chainarb/internal/models"
	"chainarb/internal/repository"
	"chainarb/internal/service"

	"github.com/gorilla/mux"
)

// NotificationHandler отвечает за чтение журнала уведомлений
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler создает handler уведомлений
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GetNotifications возвращает последние уведомления
// GET /api/v1/notifications?type=STRANDED&limit=50
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	notifType := r.URL.Query().Get("type")
	limit := queryInt(r, "limit", 50)

	notifications, err := h.notifications.GetRecent(notifType, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// AckNotification помечает уведомление прочитанным
// POST /api/v1/notifications/{id}/ack
func (h *NotificationHandler) AckNotification(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.notifications.Ack(id); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to ack notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTradeNotifications возвращает хронологию уведомлений сделки
// GET /api/v1/notifications/trade/{id}
func (h *NotificationHandler) GetTradeNotifications(w http.ResponseWriter, r *http.Request) {
	tradeID := mux.Vars(r)["id"]

	notifications, err := h.notifications.GetByTradeID(tradeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}
