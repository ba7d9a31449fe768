package repository

import (
	"database/sql"
	"errors"
	"time"

	"chainarb/internal/models"
)

// Ошибки репозитория площадок
var (
	ErrVenueAccountNotFound = errors.New("venue account not found")
	ErrVenueAccountExists   = errors.New("venue account already exists")
)

// VenueRepository - работа с таблицей venue_accounts.
// Ключи приходят уже зашифрованными: шифрование выполняет сервисный слой.
type VenueRepository struct {
	db *sql.DB
}

// NewVenueRepository создает новый экземпляр репозитория
func NewVenueRepository(db *sql.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

// Create сохраняет аккаунт площадки
func (r *VenueRepository) Create(account *models.VenueAccount) error {
	query := `
		INSERT INTO venue_accounts (venue, chain, api_key, secret_key, connected, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	err := r.db.QueryRow(
		query,
		account.Venue,
		account.Chain,
		account.APIKey,
		account.SecretKey,
		account.Connected,
		nullableString(account.LastError),
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrVenueAccountExists
		}
		return err
	}

	return nil
}

// GetAll возвращает все аккаунты площадок
func (r *VenueRepository) GetAll() ([]*models.VenueAccount, error) {
	query := `
		SELECT id, venue, chain, api_key, secret_key, connected, last_error, created_at, updated_at
		FROM venue_accounts
		ORDER BY venue`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.VenueAccount
	for rows.Next() {
		account, err := scanVenueAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

// GetByVenue возвращает аккаунт по имени площадки
func (r *VenueRepository) GetByVenue(venueName string) (*models.VenueAccount, error) {
	query := `
		SELECT id, venue, chain, api_key, secret_key, connected, last_error, created_at, updated_at
		FROM venue_accounts
		WHERE venue = $1`

	account, err := scanVenueAccount(r.db.QueryRow(query, venueName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// UpdateKeys обновляет зашифрованные ключи аккаунта
func (r *VenueRepository) UpdateKeys(venueName, apiKey, secretKey string) error {
	query := `
		UPDATE venue_accounts
		SET api_key = $1, secret_key = $2, updated_at = $3
		WHERE venue = $4`

	result, err := r.db.Exec(query, apiKey, secretKey, time.Now(), venueName)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrVenueAccountNotFound
	}

	return nil
}

// SetConnected обновляет статус подключения и последнюю ошибку
func (r *VenueRepository) SetConnected(venueName string, connected bool, lastError string) error {
	query := `
		UPDATE venue_accounts
		SET connected = $1, last_error = $2, updated_at = $3
		WHERE venue = $4`

	result, err := r.db.Exec(query, connected, nullableString(lastError), time.Now(), venueName)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrVenueAccountNotFound
	}

	return nil
}

// Delete удаляет аккаунт площадки
func (r *VenueRepository) Delete(venueName string) error {
	query := `DELETE FROM venue_accounts WHERE venue = $1`

	result, err := r.db.Exec(query, venueName)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrVenueAccountNotFound
	}

	return nil
}

func scanVenueAccount(row rowScanner) (*models.VenueAccount, error) {
	account := &models.VenueAccount{}
	var lastError sql.NullString
	err := row.Scan(
		&account.ID,
		&account.Venue,
		&account.Chain,
		&account.APIKey,
		&account.SecretKey,
		&account.Connected,
		&lastError,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.LastError = lastError.String
	return account, nil
}
