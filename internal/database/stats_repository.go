package database

import (
	"context"
	"fmt"
	"time"
)

// StatsRepository tracks hunt counters and hourly API usage
type StatsRepository struct {
	db querier
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db querier) *StatsRepository {
	return &StatsRepository{db: db}
}

// IncrementStat adds delta to an app's stat
func (r *StatsRepository) IncrementStat(ctx context.Context, appType, statType string, delta int64) error {
	query := `
		INSERT INTO media_stats (app_type, stat_type, value, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(app_type, stat_type) DO UPDATE SET
		value = value + excluded.value,
		updated_at = datetime('now')
	`

	if _, err := r.db.ExecContext(ctx, query, appType, statType, delta); err != nil {
		return fmt.Errorf("failed to increment stat %s/%s: %w", appType, statType, err)
	}

	return nil
}

// Stats returns every stored counter
func (r *StatsRepository) Stats(ctx context.Context) (MediaStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT app_type, stat_type, value FROM media_stats`)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	defer rows.Close()

	stats := MediaStats{}
	for rows.Next() {
		var (
			appType, statType string
			value             int64
		)
		if err := rows.Scan(&appType, &statType, &value); err != nil {
			return nil, fmt.Errorf("failed to scan stat: %w", err)
		}
		if stats[appType] == nil {
			stats[appType] = map[string]int64{}
		}
		stats[appType][statType] = value
	}

	return stats, rows.Err()
}

// ResetStats zeroes the counters of one app type, or all when appType is empty
func (r *StatsRepository) ResetStats(ctx context.Context, appType string) error {
	var err error
	if appType == "" {
		_, err = r.db.ExecContext(ctx, `UPDATE media_stats SET value = 0, updated_at = datetime('now')`)
	} else {
		_, err = r.db.ExecContext(ctx, `UPDATE media_stats SET value = 0, updated_at = datetime('now') WHERE app_type = ?`, appType)
	}
	if err != nil {
		return fmt.Errorf("failed to reset stats: %w", err)
	}

	return nil
}

// IncrementAPIHits adds hits to the current hour's usage and returns the new total
func (r *StatsRepository) IncrementAPIHits(ctx context.Context, appType string, hits int, now time.Time) (int, error) {
	query := `
		INSERT INTO hourly_caps (app_type, api_hits, last_reset_hour, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(app_type) DO UPDATE SET
		api_hits = api_hits + excluded.api_hits,
		updated_at = datetime('now')
	`

	if _, err := r.db.ExecContext(ctx, query, appType, hits, now.Hour()); err != nil {
		return 0, fmt.Errorf("failed to increment api hits for %s: %w", appType, err)
	}

	return r.APIHits(ctx, appType)
}

// APIHits returns the current hour's usage of an app type
func (r *StatsRepository) APIHits(ctx context.Context, appType string) (int, error) {
	var hits int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT api_hits FROM hourly_caps WHERE app_type = ?), 0)`, appType,
	).Scan(&hits)
	if err != nil {
		return 0, fmt.Errorf("failed to get api hits for %s: %w", appType, err)
	}

	return hits, nil
}

// HourlyCaps returns the usage rows of every app type
func (r *StatsRepository) HourlyCaps(ctx context.Context) ([]HourlyCap, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT app_type, api_hits, last_reset_hour FROM hourly_caps ORDER BY app_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly caps: %w", err)
	}
	defer rows.Close()

	caps := []HourlyCap{}
	for rows.Next() {
		var c HourlyCap
		if err := rows.Scan(&c.AppType, &c.APIHits, &c.LastResetHour); err != nil {
			return nil, fmt.Errorf("failed to scan hourly cap: %w", err)
		}
		caps = append(caps, c)
	}

	return caps, rows.Err()
}

// ResetHourlyCaps zeroes every app's usage and stamps the hour
func (r *StatsRepository) ResetHourlyCaps(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE hourly_caps SET api_hits = 0, last_reset_hour = ?, updated_at = datetime('now')`, now.Hour())
	if err != nil {
		return fmt.Errorf("failed to reset hourly caps: %w", err)
	}

	return nil
}
