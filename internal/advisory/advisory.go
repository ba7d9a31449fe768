// Package advisory предоставляет клиента внешнего сервиса оценки риска.
package advisory

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable возвращается при таймауте или ошибке сервиса.
// Вызывающая сторона подставляет нейтральную оценку: недоступность
// advisory никогда не превращается в автоматическое одобрение.
var ErrUnavailable = errors.New("advisory service unavailable")

// Summary — сводка возможности, отправляемая сервису
type Summary struct {
	Pair            string  `json:"pair"`
	SourceChain     string  `json:"source_chain"`
	TargetChain     string  `json:"target_chain"`
	SourceVenue     string  `json:"source_venue"`
	TargetVenue     string  `json:"target_venue"`
	NetProfitPct    float64 `json:"net_profit_pct"`
	EstimatedProfit float64 `json:"estimated_profit"`
	RequiredCapital float64 `json:"required_capital"`
}

// Assessment — оценка сервиса
type Assessment struct {
	Score     float64   `json:"score"` // [0,1], выше = безопаснее
	Narrative string    `json:"narrative"`
	CreatedAt time.Time `json:"created_at"`
}

// Client определяет контракт сервиса оценки
type Client interface {
	// Assess возвращает оценку возможности. Обязан уважать
	// дедлайн контекста: вызов стоит на пути принятия решения.
	Assess(ctx context.Context, summary Summary) (*Assessment, error)
}
