// Package venue предоставляет унифицированный интерфейс торговых площадок.
package venue

import (
	"context"
	"errors"
	"time"

	"chainarb/internal/models"
)

// Ошибки площадок
var (
	ErrPairNotSupported = errors.New("token pair not supported on venue")
	ErrTimeout          = errors.New("venue request timed out")
)

// Venue определяет контракт торговой площадки на конкретной сети.
// Котировка и исполнение несут явные таймауты через контекст.
type Venue interface {
	// Name возвращает имя площадки (uniswap, pancakeswap, ...)
	Name() string

	// Chain возвращает сеть, на которой работает площадка
	Chain() string

	// SupportsPair сообщает, торгуется ли пара на площадке.
	// Неподдерживаемая пара — не ошибка, а отсутствие возможности.
	SupportsPair(pair models.TokenPair) bool

	// Quote возвращает текущую цену и оценку газа
	Quote(ctx context.Context, pair models.TokenPair) (*Quote, error)

	// Buy покупает базовый токен на указанный капитал в котируемой
	// валюте; возвращает фактически полученное количество после
	// проскальзывания и комиссий
	Buy(ctx context.Context, pair models.TokenPair, capital float64) (*Fill, error)

	// Sell продаёт указанное количество базового токена;
	// возвращает выручку в котируемой валюте
	Sell(ctx context.Context, pair models.TokenPair, amount float64) (*Fill, error)

	// Close освобождает ресурсы площадки
	Close() error
}

// Quote содержит котировку площадки
type Quote struct {
	Chain       string           `json:"chain"`
	Venue       string           `json:"venue"`
	Pair        models.TokenPair `json:"pair"`
	Price       float64          `json:"price"`        // цена базового токена в котируемой валюте
	GasUSD      float64          `json:"gas_usd"`      // оценка газа одной операции
	RetrievedAt time.Time        `json:"retrieved_at"`
}

// Fill содержит результат исполнения заявки
type Fill struct {
	ReceivedAmount float64   `json:"received_amount"` // после проскальзывания и комиссий
	AvgPrice       float64   `json:"avg_price"`
	ReferenceID    string    `json:"reference_id"` // внешний идентификатор транзакции
	ExecutedAt     time.Time `json:"executed_at"`
}

// Error представляет ошибку площадки с сохранением оригинала
type Error struct {
	Venue     string
	Chain     string
	Code      string
	Message   string
	Transient bool // транспортная ошибка, уместен повтор в следующем цикле
	Original  error
}

func (e *Error) Error() string {
	return e.Venue + "@" + e.Chain + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для errors.Is() и errors.As()
func (e *Error) Unwrap() error {
	return e.Original
}

// Temporary сообщает, является ли ошибка транспортной
func (e *Error) Temporary() bool {
	return e.Transient
}
