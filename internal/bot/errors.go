package bot

import (
	"errors"
	"fmt"
)

// Ошибки торгового ядра. Ни одна из них не фатальна для процесса:
// недоступная площадка или сеть сужает покрытие, не доступность.
var (
	// ErrDuplicateInFlight - для фингерпринта уже исполняется сделка.
	// Запрос отклоняется, не ставится в очередь.
	ErrDuplicateInFlight = errors.New("duplicate in-flight trade for fingerprint")

	// ErrStaleOpportunity - ценовые данные старше окна устаревания
	ErrStaleOpportunity = errors.New("opportunity is stale")

	// ErrMalformedOpportunity - возможность не прошла валидацию
	ErrMalformedOpportunity = errors.New("malformed opportunity")

	// ErrExecutionLimit - достигнут лимит одновременных исполнений
	ErrExecutionLimit = errors.New("max concurrent executions reached")

	// ErrStopped - получен сигнал остановки, новые исполнения не принимаются
	ErrStopped = errors.New("coordinator is stopping")

	// ErrNotCancellable - отмена недопустима из текущего состояния
	ErrNotCancellable = errors.New("trade is not cancellable in its current state")

	// ErrNoStrandedPosition - у сделки нет застрявшей позиции для восстановления
	ErrNoStrandedPosition = errors.New("trade has no stranded position")

	// ErrVenueNotFound - площадка не сконфигурирована
	ErrVenueNotFound = errors.New("venue not configured")
)

// LegError представляет отказ одной ноги исполнения.
// Сохраняет сырую ошибку площадки или моста.
type LegError struct {
	Leg string // acquire, bridge, dispose
	Err error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("leg %s failed: %v", e.Leg, e.Err)
}

func (e *LegError) Unwrap() error {
	return e.Err
}
