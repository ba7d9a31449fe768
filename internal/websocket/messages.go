package websocket

import (
	"time"

	"chainarb/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeOpportunity - возможность текущего цикла сканирования.
	// Отправляется для каждой возможности, прошедшей порог прибыли.
	MessageTypeOpportunity MessageType = "opportunityUpdate"

	// MessageTypeTradeUpdate - изменение состояния сделки.
	// Отправляется на каждом переходе жизненного цикла.
	MessageTypeTradeUpdate MessageType = "tradeUpdate"

	// MessageTypeNotification - новое уведомление
	MessageTypeNotification MessageType = "notification"

	// MessageTypeStatsUpdate - обновление агрегированной статистики.
	// Отправляется после завершения каждой сделки.
	MessageTypeStatsUpdate MessageType = "statsUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// OpportunityMessage - сообщение о найденной возможности
type OpportunityMessage struct {
	BaseMessage
	Data *models.Opportunity `json:"data"`
}

// TradeUpdateMessage - сообщение об изменении состояния сделки.
// Содержит полный снимок: фронтенду не нужно склеивать дельты.
type TradeUpdateMessage struct {
	BaseMessage
	TradeID string        `json:"trade_id"`
	State   string        `json:"state"`
	Data    *models.Trade `json:"data"`
}

// NotificationMessage - сообщение с уведомлением
type NotificationMessage struct {
	BaseMessage
	Data *models.Notification `json:"data"`
}

// StatsUpdateMessage - сообщение со статистикой
type StatsUpdateMessage struct {
	BaseMessage
	Data *models.Stats `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

// NewOpportunityMessage создает сообщение о возможности
func NewOpportunityMessage(opp *models.Opportunity) *OpportunityMessage {
	return &OpportunityMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeOpportunity,
			Timestamp: time.Now(),
		},
		Data: opp,
	}
}

// NewTradeUpdateMessage создает сообщение об изменении сделки
func NewTradeUpdateMessage(trade *models.Trade) *TradeUpdateMessage {
	return &TradeUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeTradeUpdate,
			Timestamp: time.Now(),
		},
		TradeID: trade.ID,
		State:   trade.State,
		Data:    trade,
	}
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: notif,
	}
}

// NewStatsUpdateMessage создает сообщение обновления статистики
func NewStatsUpdateMessage(stats *models.Stats) *StatsUpdateMessage {
	return &StatsUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeStatsUpdate,
			Timestamp: time.Now(),
		},
		Data: stats,
	}
}
