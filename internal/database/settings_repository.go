package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SettingsRepository stores one JSON settings document per key
type SettingsRepository struct {
	db querier
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db querier) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the raw JSON for a key. found is false when the key was never saved.
func (r *SettingsRepository) Get(ctx context.Context, key string) (doc []byte, found bool, err error) {
	var raw string
	err = r.db.QueryRowContext(ctx, `SELECT settings_json FROM app_settings WHERE app_type = ?`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get settings %s: %w", key, err)
	}

	return []byte(raw), true, nil
}

// Put stores the raw JSON for a key
func (r *SettingsRepository) Put(ctx context.Context, key string, doc []byte) error {
	query := `
		INSERT INTO app_settings (app_type, settings_json, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(app_type) DO UPDATE SET
		settings_json = excluded.settings_json,
		updated_at = datetime('now')
	`

	if _, err := r.db.ExecContext(ctx, query, key, string(doc)); err != nil {
		return fmt.Errorf("failed to save settings %s: %w", key, err)
	}

	return nil
}

// Keys returns every stored settings key
func (r *SettingsRepository) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT app_type FROM app_settings ORDER BY app_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan settings key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}
