package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// validator.go - валидация входных данных управляющего API

var (
	ErrEmptyValue    = errors.New("value must not be empty")
	ErrInvalidSymbol = errors.New("invalid token symbol")
)

// Символ токена: 2-15 символов, буквы/цифры
var symbolRe = regexp.MustCompile(`^[A-Z0-9]{2,15}$`)

// ValidateTokenSymbol проверяет формат символа токена (ETH, USDC, 1INCH)
func ValidateTokenSymbol(symbol string) error {
	if symbol == "" {
		return ErrEmptyValue
	}
	if !symbolRe.MatchString(strings.ToUpper(symbol)) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return nil
}

// NormalizeTokenSymbol приводит символ к каноническому виду
func NormalizeTokenSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidatePercentage проверяет процент в диапазоне (0, max]
func ValidatePercentage(value, max float64, field string) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got %v", field, value)
	}
	if value > max {
		return fmt.Errorf("%s must not exceed %v, got %v", field, max, value)
	}
	return nil
}

// ValidatePositive проверяет строго положительное значение
func ValidatePositive(value float64, field string) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got %v", field, value)
	}
	return nil
}

// ValidateAPIKey проверяет базовый формат API ключа
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrEmptyValue
	}
	if len(key) < 8 || len(key) > 256 {
		return fmt.Errorf("api key length must be between 8 and 256, got %d", len(key))
	}
	return nil
}

// ValidationErrors аккумулирует несколько ошибок валидации
type ValidationErrors struct {
	errs []error
}

// Add добавляет ошибку, nil игнорируется
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.errs = append(v.errs, err)
	}
}

// HasErrors сообщает, были ли ошибки
func (v *ValidationErrors) HasErrors() bool {
	return len(v.errs) > 0
}

// Err возвращает объединённую ошибку или nil
func (v *ValidationErrors) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return errors.Join(v.errs...)
}
