// Package ratelimit ограничивает частоту запросов к шлюзам площадок
// и моста алгоритмом token bucket: ведро пополняется с постоянной
// скоростью, burst допускает короткие всплески параллельных опросов.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter - token bucket лимитер. Каждый запрос потребляет
// один токен; при пустом ведре Wait блокируется, Allow отказывает.
type RateLimiter struct {
	rate       float64 // токенов в секунду
	burst      float64 // ёмкость ведра
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter создает лимитер: rate запросов в секунду,
// burst - максимальный всплеск. Ведро стартует полным.
func NewRateLimiter(rate, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = 10
	}
	if burst < rate {
		burst = rate * 2
	}
	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// refill пополняет токены пропорционально прошедшему времени.
// Вызывается под mu.
func (rl *RateLimiter) refill() {
	now := time.Now()
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.lastRefill = now
}

// Wait блокирует до получения токена или отмены контекста
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		waitTime := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Allow выдаёт токен без блокировки
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Tokens возвращает текущее количество доступных токенов
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// SetRate меняет скорость пополнения. Текущие токены фиксируются
// по старой скорости.
func (rl *RateLimiter) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	rl.rate = rate
}
