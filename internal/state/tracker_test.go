package state

import (
	"context"
	"testing"
	"time"

	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/database"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T, hours int) (*Tracker, *time.Time) {
	t.Helper()

	db := database.NewTestDB(t)
	tr := New(db.State, func(context.Context) int { return hours })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestTracker_ProcessedIDs(t *testing.T) {
	ctx := context.Background()
	tr, now := newTracker(t, 24)

	require.NoError(t, tr.AddProcessedID(ctx, model.Radarr, "Default", "10"))
	*now = now.Add(time.Minute)
	require.NoError(t, tr.AddProcessedID(ctx, model.Radarr, "Default", "11"))
	require.NoError(t, tr.AddProcessedID(ctx, model.Radarr, "Default", "10"))

	ids, err := tr.ProcessedIDs(ctx, model.Radarr, "Default")
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "11"}, ids)

	ok, err := tr.IsProcessed(ctx, model.Radarr, "Default", "11")
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err = tr.ProcessedIDs(ctx, model.Radarr, "Other")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTracker_ResetSingleApp(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t, 24)

	require.NoError(t, tr.AddProcessedID(ctx, model.Radarr, "Default", "1"))
	require.NoError(t, tr.AddProcessedID(ctx, model.Sonarr, "Default", "2"))

	require.NoError(t, tr.Reset(ctx, model.Radarr))

	radarr, err := tr.ProcessedIDs(ctx, model.Radarr, "Default")
	require.NoError(t, err)
	assert.Empty(t, radarr)

	sonarr, err := tr.ProcessedIDs(ctx, model.Sonarr, "Default")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, sonarr)
}

func TestTracker_CheckExpiration(t *testing.T) {
	ctx := context.Background()
	tr, now := newTracker(t, 24)

	reset, err := tr.CheckExpiration(ctx)
	require.NoError(t, err)
	assert.False(t, reset, "first run only initializes the lock")

	require.NoError(t, tr.AddProcessedID(ctx, model.Lidarr, "Default", "5"))

	*now = now.Add(23 * time.Hour)
	reset, err = tr.CheckExpiration(ctx)
	require.NoError(t, err)
	assert.False(t, reset)

	summary, err := tr.Summary(ctx, model.Lidarr, "Default")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProcessedCount)
	assert.InDelta(t, 1.0, summary.HoursUntilReset, 0.001)

	*now = now.Add(time.Hour)
	reset, err = tr.CheckExpiration(ctx)
	require.NoError(t, err)
	assert.True(t, reset)

	summary, err = tr.Summary(ctx, model.Lidarr, "Default")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ProcessedCount)
	assert.True(t, summary.ExpiresAt.Equal(now.Add(24*time.Hour)))
}

func TestTracker_Register(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker(t, 0)

	c := cron.New()
	require.NoError(t, tr.Register(ctx, c))
	assert.Len(t, c.Entries(), 1)

	summary, err := tr.Summary(ctx, model.Radarr, "Default")
	require.NoError(t, err)
	assert.Equal(t, 168.0, summary.HoursUntilReset, "non-positive hours fall back to a week")
}
