package models

import "time"

// BlacklistEntry представляет токен, исключённый из сканирования
type BlacklistEntry struct {
	ID        int       `json:"id" db:"id"`
	Token     string    `json:"token" db:"token"`   // символ базового токена, например SHIB
	Reason    string    `json:"reason" db:"reason"` // пользовательская заметка
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
