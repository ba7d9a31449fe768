// Package bridge предоставляет интерфейс переноса стоимости между сетями.
package bridge

import (
	"context"
	"errors"
	"time"
)

// Ошибки моста
var (
	ErrRouteNotSupported = errors.New("bridge route not supported")
)

// Receipt содержит результат перевода через мост
type Receipt struct {
	ReceivedAmount float64   `json:"received_amount"` // после комиссии моста
	ReferenceID    string    `json:"reference_id"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Bridge определяет контракт моста. Перевод — необратимая операция:
// после отправки исход определяется сетью, а не вызывающей стороной,
// поэтому отмена перевода невозможна.
type Bridge interface {
	// Transfer переносит amount токена token из from в to
	Transfer(ctx context.Context, from, to, token string, amount float64) (*Receipt, error)

	// FeePct возвращает комиссию маршрута в процентах
	FeePct(from, to string) (float64, error)

	// Close освобождает ресурсы
	Close() error
}

// Error представляет ошибку моста с сохранением оригинала
type Error struct {
	From      string
	To        string
	Code      string
	Message   string
	Transient bool
	Original  error
}

func (e *Error) Error() string {
	return "bridge " + e.From + "->" + e.To + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Original
}

// Temporary сообщает, является ли ошибка транспортной
func (e *Error) Temporary() bool {
	return e.Transient
}
