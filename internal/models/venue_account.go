package models

import "time"

// VenueAccount представляет учётные данные для торговой площадки.
// Секреты хранятся зашифрованными и никогда не возвращаются в JSON.
type VenueAccount struct {
	ID        int       `json:"id" db:"id"`
	Venue     string    `json:"venue" db:"venue"` // uniswap, pancakeswap, ...
	Chain     string    `json:"chain" db:"chain"`
	APIKey    string    `json:"-" db:"api_key"`    // зашифрован
	SecretKey string    `json:"-" db:"secret_key"` // зашифрован
	Connected bool      `json:"connected" db:"connected"`
	LastError string    `json:"last_error,omitempty" db:"last_error"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
