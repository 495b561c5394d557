package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StateRepository stores processed media ids and the reset lock
type StateRepository struct {
	db querier
}

// NewStateRepository creates a new state repository
func NewStateRepository(db querier) *StateRepository {
	return &StateRepository{db: db}
}

// ProcessedIDs returns the ids of an instance, oldest first
func (r *StateRepository) ProcessedIDs(ctx context.Context, appType, instance string) ([]string, error) {
	query := `
		SELECT media_id FROM processed_ids
		WHERE app_type = ? AND instance_name = ?
		ORDER BY processed_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, appType, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to list processed ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan processed id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate processed ids: %w", err)
	}

	return ids, nil
}

// AddProcessedID records an id. It reports whether a new row was inserted.
func (r *StateRepository) AddProcessedID(ctx context.Context, appType, instance, mediaID string, at time.Time) (bool, error) {
	query := `
		INSERT INTO processed_ids (app_type, instance_name, media_id, processed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(app_type, instance_name, media_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, appType, instance, mediaID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to add processed id: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n > 0, nil
}

// IsProcessed reports whether an id was recorded for the instance
func (r *StateRepository) IsProcessed(ctx context.Context, appType, instance, mediaID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM processed_ids WHERE app_type = ? AND instance_name = ? AND media_id = ?
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, appType, instance, mediaID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check processed id: %w", err)
	}

	return exists, nil
}

// AddSearchedID records the id a search command was sent for. Albums, books
// and episodes are tracked here since processed_ids holds their parent.
func (r *StateRepository) AddSearchedID(ctx context.Context, appType, instance, searchID string, at time.Time) (bool, error) {
	query := `
		INSERT INTO searched_ids (app_type, instance_name, search_id, searched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(app_type, instance_name, search_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, appType, instance, searchID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to add searched id: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n > 0, nil
}

// IsSearched reports whether a search was already sent for the id
func (r *StateRepository) IsSearched(ctx context.Context, appType, instance, searchID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM searched_ids WHERE app_type = ? AND instance_name = ? AND search_id = ?
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, appType, instance, searchID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check searched id: %w", err)
	}

	return exists, nil
}

// CountProcessed returns how many ids an instance has recorded
func (r *StateRepository) CountProcessed(ctx context.Context, appType, instance string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_ids WHERE app_type = ? AND instance_name = ?`,
		appType, instance,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count processed ids: %w", err)
	}

	return count, nil
}

// ResetProcessed deletes the processed and searched ids of one app type, or of
// all app types when appType is empty. It returns the processed ids removed.
func (r *StateRepository) ResetProcessed(ctx context.Context, appType string) (int64, error) {
	where, args := "", []any{}
	if appType != "" {
		where, args = " WHERE app_type = ?", []any{appType}
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM searched_ids`+where, args...); err != nil {
		return 0, fmt.Errorf("failed to reset searched ids: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM processed_ids`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset processed ids: %w", err)
	}

	return result.RowsAffected()
}

// GetLock returns the reset lock, or nil before the first reset
func (r *StateRepository) GetLock(ctx context.Context) (*StatefulLock, error) {
	var created, expires int64
	err := r.db.QueryRowContext(ctx, `SELECT created_at, expires_at FROM stateful_lock WHERE id = 1`).Scan(&created, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get stateful lock: %w", err)
	}

	return &StatefulLock{
		CreatedAt: time.Unix(created, 0),
		ExpiresAt: time.Unix(expires, 0),
	}, nil
}

// SetLock replaces the reset lock
func (r *StateRepository) SetLock(ctx context.Context, lock StatefulLock) error {
	query := `
		INSERT INTO stateful_lock (id, created_at, expires_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET created_at = excluded.created_at, expires_at = excluded.expires_at
	`

	if _, err := r.db.ExecContext(ctx, query, lock.CreatedAt.Unix(), lock.ExpiresAt.Unix()); err != nil {
		return fmt.Errorf("failed to set stateful lock: %w", err)
	}

	return nil
}
