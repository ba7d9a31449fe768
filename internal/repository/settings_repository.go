package repository

import (
	"database/sql"
	"errors"
	"time"

	"chainarb/internal/models"
)

// Ошибки репозитория настроек
var (
	ErrSettingsNotFound = errors.New("settings not found")
)

// SettingsRepository - работа с таблицей settings
type SettingsRepository struct {
	db       *sql.DB
	defaults models.Settings // значения при отсутствии записи
}

// NewSettingsRepository создает новый экземпляр репозитория
func NewSettingsRepository(db *sql.DB, defaults models.Settings) *SettingsRepository {
	return &SettingsRepository{db: db, defaults: defaults}
}

// Get возвращает глобальные настройки (всегда id=1, одна запись)
func (r *SettingsRepository) Get() (*models.Settings, error) {
	query := `
		SELECT id, min_profit_pct, max_capital_per_trade, trade_capital, max_slippage_pct, max_concurrent_executions, advisory_accept_threshold, enabled_chains, updated_at
		FROM settings
		WHERE id = 1`

	settings := &models.Settings{}
	var chainsJSON []byte
	err := r.db.QueryRow(query).Scan(
		&settings.ID,
		&settings.MinProfitPct,
		&settings.MaxCapitalPerTrade,
		&settings.TradeCapital,
		&settings.MaxSlippagePct,
		&settings.MaxConcurrentExecutions,
		&settings.AdvisoryAcceptThreshold,
		&chainsJSON,
		&settings.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Если записи нет, создаем ее с дефолтными значениями
			return r.createDefault()
		}
		return nil, err
	}

	if len(chainsJSON) > 0 {
		if err := json.Unmarshal(chainsJSON, &settings.EnabledChains); err != nil {
			return nil, err
		}
	} else {
		settings.EnabledChains = append([]string(nil), r.defaults.EnabledChains...)
	}

	return settings, nil
}

// Update обновляет настройки. Вызывающая сторона обязана провести
// Validate() до записи.
func (r *SettingsRepository) Update(settings *models.Settings) error {
	chainsJSON, err := json.Marshal(settings.EnabledChains)
	if err != nil {
		return err
	}

	query := `
		UPDATE settings
		SET min_profit_pct = $1, max_capital_per_trade = $2, trade_capital = $3, max_slippage_pct = $4, max_concurrent_executions = $5, advisory_accept_threshold = $6, enabled_chains = $7, updated_at = $8
		WHERE id = 1`

	settings.UpdatedAt = time.Now()

	result, err := r.db.Exec(query,
		settings.MinProfitPct,
		settings.MaxCapitalPerTrade,
		settings.TradeCapital,
		settings.MaxSlippagePct,
		settings.MaxConcurrentExecutions,
		settings.AdvisoryAcceptThreshold,
		chainsJSON,
		settings.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrSettingsNotFound
	}

	return nil
}

// createDefault создает запись настроек с дефолтными значениями
func (r *SettingsRepository) createDefault() (*models.Settings, error) {
	settings := r.defaults.Clone()
	settings.ID = 1
	settings.UpdatedAt = time.Now()

	chainsJSON, err := json.Marshal(settings.EnabledChains)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO settings (id, min_profit_pct, max_capital_per_trade, trade_capital, max_slippage_pct, max_concurrent_executions, advisory_accept_threshold, enabled_chains, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(query,
		settings.MinProfitPct,
		settings.MaxCapitalPerTrade,
		settings.TradeCapital,
		settings.MaxSlippagePct,
		settings.MaxConcurrentExecutions,
		settings.AdvisoryAcceptThreshold,
		chainsJSON,
		settings.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return settings, nil
}

// ResetToDefaults сбрасывает настройки к значениям по умолчанию
func (r *SettingsRepository) ResetToDefaults() error {
	settings := r.defaults.Clone()
	settings.ID = 1
	return r.Update(settings)
}
