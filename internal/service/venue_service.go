package service

import (
	"chainarb/internal/models"
	"chainarb/pkg/crypto"
	"chainarb/pkg/utils"
)

// VenueService предоставляет бизнес-логику управления аккаунтами
// площадок. Ключи шифруются AES-256-GCM перед записью в БД
// и никогда не покидают сервис в открытом виде.
type VenueService struct {
	repo          VenueRepositoryInterface
	encryptionKey []byte
}

// NewVenueService создает сервис аккаунтов площадок
func NewVenueService(repo VenueRepositoryInterface, encryptionKey []byte) (*VenueService, error) {
	if err := crypto.ValidateKey(encryptionKey); err != nil {
		return nil, err
	}
	return &VenueService{repo: repo, encryptionKey: encryptionKey}, nil
}

// GetAll возвращает аккаунты без расшифрованных ключей
func (s *VenueService) GetAll() ([]*models.VenueAccount, error) {
	return s.repo.GetAll()
}

// Add сохраняет новый аккаунт с зашифрованными ключами
func (s *VenueService) Add(venueName, chain, apiKey, secretKey string) (*models.VenueAccount, error) {
	if err := utils.ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}

	encryptedAPI, err := crypto.Encrypt(apiKey, s.encryptionKey)
	if err != nil {
		return nil, err
	}
	encryptedSecret, err := crypto.Encrypt(secretKey, s.encryptionKey)
	if err != nil {
		return nil, err
	}

	account := &models.VenueAccount{
		Venue:     venueName,
		Chain:     chain,
		APIKey:    encryptedAPI,
		SecretKey: encryptedSecret,
	}
	if err := s.repo.Create(account); err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateKeys заменяет ключи аккаунта
func (s *VenueService) UpdateKeys(venueName, apiKey, secretKey string) error {
	if err := utils.ValidateAPIKey(apiKey); err != nil {
		return err
	}

	encryptedAPI, err := crypto.Encrypt(apiKey, s.encryptionKey)
	if err != nil {
		return err
	}
	encryptedSecret, err := crypto.Encrypt(secretKey, s.encryptionKey)
	if err != nil {
		return err
	}
	return s.repo.UpdateKeys(venueName, encryptedAPI, encryptedSecret)
}

// DecryptedKeys возвращает расшифрованные ключи для подключения
// к площадке. Используется только при инициализации клиентов.
func (s *VenueService) DecryptedKeys(venueName string) (apiKey, secretKey string, err error) {
	account, err := s.repo.GetByVenue(venueName)
	if err != nil {
		return "", "", err
	}

	apiKey, err = crypto.Decrypt(account.APIKey, s.encryptionKey)
	if err != nil {
		return "", "", err
	}
	secretKey, err = crypto.Decrypt(account.SecretKey, s.encryptionKey)
	if err != nil {
		return "", "", err
	}
	return apiKey, secretKey, nil
}

// SetConnected обновляет статус подключения площадки
func (s *VenueService) SetConnected(venueName string, connected bool, lastError string) error {
	return s.repo.SetConnected(venueName, connected, lastError)
}

// Remove удаляет аккаунт площадки
func (s *VenueService) Remove(venueName string) error {
	return s.repo.Delete(venueName)
}
