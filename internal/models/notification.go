package models

import "time"

// Notification представляет уведомление о событии
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`         // OPPORTUNITY, TRADE_OPEN, TRADE_SETTLED, ...
	Severity  string                 `json:"severity" db:"severity"` // info, warn, error
	TradeID   string                 `json:"trade_id,omitempty" db:"trade_id"`
	Message   string                 `json:"message" db:"message"`
	Read      bool                   `json:"read" db:"read"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeOpportunity  = "OPPORTUNITY"   // найдена возможность выше порога
	NotificationTypeTradeOpen    = "TRADE_OPEN"    // исполнение начато
	NotificationTypeTradeSettled = "TRADE_SETTLED" // сделка завершена с прибылью
	NotificationTypeTradeFailed  = "TRADE_FAILED"  // нога не исполнилась
	NotificationTypeStranded     = "STRANDED"      // капитал застрял в промежуточной сети
	NotificationTypeCancelled    = "CANCELLED"     // сделка отменена пользователем
	NotificationTypeAdvisory     = "ADVISORY"      // advisory-сервис недоступен
	NotificationTypeRecovery     = "RECOVERY"      // запущено восстановление застрявшей позиции
	NotificationTypeError        = "ERROR"         // ошибка API/площадки
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
