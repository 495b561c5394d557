// Package state tracks the media ids each instance has already processed and
// clears them on a fixed cadence so items become eligible again.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/database"
	"github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
)

// Repository is the persistence the tracker needs.
type Repository interface {
	ProcessedIDs(ctx context.Context, appType, instance string) ([]string, error)
	AddProcessedID(ctx context.Context, appType, instance, mediaID string, at time.Time) (bool, error)
	IsProcessed(ctx context.Context, appType, instance, mediaID string) (bool, error)
	AddSearchedID(ctx context.Context, appType, instance, searchID string, at time.Time) (bool, error)
	IsSearched(ctx context.Context, appType, instance, searchID string) (bool, error)
	CountProcessed(ctx context.Context, appType, instance string) (int, error)
	ResetProcessed(ctx context.Context, appType string) (int64, error)
	GetLock(ctx context.Context) (*database.StatefulLock, error)
	SetLock(ctx context.Context, lock database.StatefulLock) error
}

// HoursFunc returns the current stateful_management_hours.
type HoursFunc func(ctx context.Context) int

const defaultHours = 168

// Summary describes the state of one instance.
type Summary struct {
	AppType         string    `json:"app_type"`
	InstanceName    string    `json:"instance_name"`
	ProcessedCount  int       `json:"processed_count"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	HoursUntilReset float64   `json:"hours_until_reset"`
}

// Tracker records processed ids per (app, instance).
type Tracker struct {
	repo  Repository
	hours HoursFunc
	now   func() time.Time
	mu    sync.Mutex
}

// New creates a tracker. A nil hours uses 168.
func New(repo Repository, hours HoursFunc) *Tracker {
	if hours == nil {
		hours = func(context.Context) int { return defaultHours }
	}

	return &Tracker{
		repo:  repo,
		hours: hours,
		now:   time.Now,
	}
}

// ProcessedIDs returns the ids of an instance in processing order.
func (t *Tracker) ProcessedIDs(ctx context.Context, app model.AppType, instance string) ([]string, error) {
	return t.repo.ProcessedIDs(ctx, string(app), instance)
}

// AddProcessedID records an id. Recording an id twice is a no-op.
func (t *Tracker) AddProcessedID(ctx context.Context, app model.AppType, instance, mediaID string) error {
	added, err := insertWithRetry(ctx, func() (bool, error) {
		return t.repo.AddProcessedID(ctx, string(app), instance, mediaID, t.now())
	})
	if err != nil {
		return err
	}
	if added {
		slog.DebugContext(ctx, "Marked media as processed", "app_type", app, "instance", instance, "media_id", mediaID)
	}
	return nil
}

// AddSearchedID records the album, book or episode id a search was sent for.
func (t *Tracker) AddSearchedID(ctx context.Context, app model.AppType, instance, searchID string) error {
	_, err := insertWithRetry(ctx, func() (bool, error) {
		return t.repo.AddSearchedID(ctx, string(app), instance, searchID, t.now())
	})
	return err
}

// IsSearched reports whether a search was already sent for searchID.
func (t *Tracker) IsSearched(ctx context.Context, app model.AppType, instance, searchID string) (bool, error) {
	return t.repo.IsSearched(ctx, string(app), instance, searchID)
}

func insertWithRetry(ctx context.Context, insert func() (bool, error)) (bool, error) {
	return retry.DoWithData(
		insert,
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isBusy),
	)
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// IsProcessed reports whether an id was already handled.
func (t *Tracker) IsProcessed(ctx context.Context, app model.AppType, instance, mediaID string) (bool, error) {
	return t.repo.IsProcessed(ctx, string(app), instance, mediaID)
}

// Reset clears processed ids of app, or of every app when app is empty. A
// full reset also restarts the expiration window.
func (t *Tracker) Reset(ctx context.Context, app model.AppType) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.resetLocked(ctx, app)
}

func (t *Tracker) resetLocked(ctx context.Context, app model.AppType) error {
	n, err := t.repo.ResetProcessed(ctx, string(app))
	if err != nil {
		return err
	}

	if app == "" {
		if err := t.writeLock(ctx); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Processed media ids reset", "app_type", app, "removed", n)
	return nil
}

func (t *Tracker) writeLock(ctx context.Context) error {
	now := t.now()
	return t.repo.SetLock(ctx, database.StatefulLock{
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(t.hoursOrDefault(ctx)) * time.Hour),
	})
}

func (t *Tracker) hoursOrDefault(ctx context.Context) int {
	if h := t.hours(ctx); h > 0 {
		return h
	}
	return defaultHours
}

// CheckExpiration initializes the lock on first run and clears every app's
// ids once the lock has expired. It reports whether a reset happened.
func (t *Tracker) CheckExpiration(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, err := t.repo.GetLock(ctx)
	if err != nil {
		return false, err
	}

	if lock == nil {
		slog.InfoContext(ctx, "Initializing stateful management lock")
		return false, t.writeLock(ctx)
	}

	if t.now().Before(lock.ExpiresAt) {
		return false, nil
	}

	slog.InfoContext(ctx, "Stateful management window expired, resetting processed ids", "expired_at", lock.ExpiresAt)
	if err := t.resetLocked(ctx, ""); err != nil {
		return false, err
	}
	return true, nil
}

// Summary returns the processed count and reset window of an instance.
func (t *Tracker) Summary(ctx context.Context, app model.AppType, instance string) (*Summary, error) {
	count, err := t.repo.CountProcessed(ctx, string(app), instance)
	if err != nil {
		return nil, err
	}

	lock, err := t.repo.GetLock(ctx)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		AppType:        string(app),
		InstanceName:   instance,
		ProcessedCount: count,
	}
	if lock != nil {
		s.CreatedAt = lock.CreatedAt
		s.ExpiresAt = lock.ExpiresAt
		s.HoursUntilReset = max(0, lock.ExpiresAt.Sub(t.now()).Hours())
	}

	return s, nil
}

// Register schedules the hourly expiration check on c and runs it once now.
func (t *Tracker) Register(ctx context.Context, c *cron.Cron) error {
	if _, err := t.CheckExpiration(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial stateful expiration check failed", "error", err)
	}

	_, err := c.AddFunc("@every 1h", func() {
		if _, err := t.CheckExpiration(ctx); err != nil {
			slog.ErrorContext(ctx, "Stateful expiration check failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add stateful reset job: %w", err)
	}

	return nil
}
