package hunting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/database"
	"github.com/robfig/cron/v3"
)

// StatsRepository persists hunt counters and hourly API usage.
type StatsRepository interface {
	IncrementStat(ctx context.Context, appType, statType string, delta int64) error
	Stats(ctx context.Context) (database.MediaStats, error)
	ResetStats(ctx context.Context, appType string) error
	IncrementAPIHits(ctx context.Context, appType string, hits int, now time.Time) (int, error)
	APIHits(ctx context.Context, appType string) (int, error)
	HourlyCaps(ctx context.Context) ([]database.HourlyCap, error)
	ResetHourlyCaps(ctx context.Context, now time.Time) error
}

// Snapshot is the stats view served by the API.
type Snapshot struct {
	Stats      database.MediaStats  `json:"stats"`
	HourlyCaps []database.HourlyCap `json:"hourly_caps"`
}

// Stats counts hunts and enforces the per-app hourly API cap.
type Stats struct {
	repo StatsRepository
	now  func() time.Time
}

// NewStats creates the stats tracker.
func NewStats(repo StatsRepository) *Stats {
	return &Stats{repo: repo, now: time.Now}
}

// CapReached reports whether app used its hourly allowance. A cap of zero or less is unlimited.
func (s *Stats) CapReached(ctx context.Context, app model.AppType, hourlyCap int) (bool, error) {
	if hourlyCap <= 0 {
		return false, nil
	}

	hits, err := s.repo.APIHits(ctx, string(app))
	if err != nil {
		return false, err
	}

	return hits >= hourlyCap, nil
}

// RecordAPIHits adds hits to app's hourly usage and warns when nearing the cap.
func (s *Stats) RecordAPIHits(ctx context.Context, app model.AppType, hits, hourlyCap int) error {
	total, err := s.repo.IncrementAPIHits(ctx, string(app), hits, s.now())
	if err != nil {
		return err
	}

	if hourlyCap <= 0 {
		return nil
	}

	prev := total - hits
	warnAt := hourlyCap * 8 / 10
	switch {
	case total >= hourlyCap && prev < hourlyCap:
		slog.ErrorContext(ctx, "Hourly API cap reached", "app_type", app, "hits", total, "cap", hourlyCap)
	case total >= warnAt && prev < warnAt:
		slog.WarnContext(ctx, "Approaching hourly API cap", "app_type", app, "hits", total, "cap", hourlyCap)
	}

	return nil
}

// Increment bumps a hunt counter.
func (s *Stats) Increment(ctx context.Context, app model.AppType, stat string, n int64) error {
	return s.repo.IncrementStat(ctx, string(app), stat, n)
}

// Snapshot returns counters and hourly usage.
func (s *Stats) Snapshot(ctx context.Context) (*Snapshot, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	caps, err := s.repo.HourlyCaps(ctx)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Stats: stats, HourlyCaps: caps}, nil
}

// Reset zeroes the counters of app, or of every app when app is empty.
func (s *Stats) Reset(ctx context.Context, app model.AppType) error {
	return s.repo.ResetStats(ctx, string(app))
}

// Register schedules the top-of-hour cap reset on c.
func (s *Stats) Register(ctx context.Context, c *cron.Cron) error {
	_, err := c.AddFunc("0 * * * *", func() {
		if err := s.repo.ResetHourlyCaps(ctx, s.now()); err != nil {
			slog.ErrorContext(ctx, "Failed to reset hourly API caps", "error", err)
			return
		}
		slog.DebugContext(ctx, "Hourly API caps reset")
	})
	if err != nil {
		return fmt.Errorf("failed to add hourly cap reset job: %w", err)
	}

	return nil
}
