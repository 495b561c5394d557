package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ResetRepository persists cycle reset requests so the CLI can wake a running daemon
type ResetRepository struct {
	db querier
}

// NewResetRepository creates a new reset repository
func NewResetRepository(db querier) *ResetRepository {
	return &ResetRepository{db: db}
}

// Create stores a pending request and returns its id
func (r *ResetRepository) Create(ctx context.Context, appType string) (string, error) {
	id := uuid.NewString()

	if _, err := r.db.ExecContext(ctx, `INSERT INTO reset_requests (id, app_type) VALUES (?, ?)`, id, appType); err != nil {
		return "", fmt.Errorf("failed to create reset request: %w", err)
	}

	return id, nil
}

// Pending returns unprocessed requests, oldest first
func (r *ResetRepository) Pending(ctx context.Context) ([]ResetRequest, error) {
	query := `
		SELECT id, app_type, requested_at, processed, processed_at
		FROM reset_requests
		WHERE processed = FALSE
		ORDER BY requested_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reset requests: %w", err)
	}
	defer rows.Close()

	var requests []ResetRequest
	for rows.Next() {
		var req ResetRequest
		if err := rows.Scan(&req.ID, &req.AppType, &req.RequestedAt, &req.Processed, &req.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reset request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// MarkProcessed flags every pending request of an app type as handled
func (r *ResetRepository) MarkProcessed(ctx context.Context, appType string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reset_requests SET processed = TRUE, processed_at = datetime('now')
		WHERE app_type = ? AND processed = FALSE
	`, appType)
	if err != nil {
		return fmt.Errorf("failed to mark reset requests processed: %w", err)
	}

	return nil
}
