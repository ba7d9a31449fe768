package models

import "time"

// WatchPair представляет торговую пару, отслеживаемую сканером
type WatchPair struct {
	ID        int       `json:"id" db:"id"`
	Base      string    `json:"base" db:"base"`   // ETH
	Quote     string    `json:"quote" db:"quote"` // USDC
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Статусы пары в watchlist
const (
	WatchPairActive = "active"
	WatchPairPaused = "paused"
)

// Pair возвращает пару в виде TokenPair
func (w *WatchPair) Pair() TokenPair {
	return TokenPair{Base: w.Base, Quote: w.Quote}
}
