package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_EmptyPath(t *testing.T) {
	_, err := NewDB(Config{})
	require.Error(t, err)
}

func TestNewDB_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huntarr.db")

	db, err := NewDB(Config{DatabasePath: path})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(Config{DatabasePath: path})
	require.NoError(t, err)
	defer db.Close()

	var tables int
	err = db.Connection().QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('users', 'processed_ids', 'stateful_lock', 'app_settings', 'media_stats', 'hourly_caps', 'reset_requests')
	`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 7, tables)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTestDB(t).Users

	count, err := repo.GetUserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	first, err := repo.GetFirstUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, first)

	user := &User{Username: "admin", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	err = repo.CreateUser(ctx, &User{Username: "admin", PasswordHash: "other"})
	require.Error(t, err, "usernames are unique")

	require.NoError(t, repo.UpdatePassword(ctx, "admin", "new-hash"))
	require.NoError(t, repo.SetTemp2FASecret(ctx, "admin", "TEMP"))

	got, err := repo.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new-hash", got.PasswordHash)
	require.NotNil(t, got.Temp2FASecret)
	assert.Equal(t, "TEMP", *got.Temp2FASecret)
	assert.False(t, got.TwoFAEnabled)

	require.NoError(t, repo.Enable2FA(ctx, "admin", "TEMP"))
	got, err = repo.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, got.TwoFAEnabled)
	assert.Nil(t, got.Temp2FASecret)
	require.NotNil(t, got.TwoFASecret)

	require.NoError(t, repo.Disable2FA(ctx, "admin"))
	require.NoError(t, repo.UpdateUsername(ctx, "admin", "root"))

	got, err = repo.GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.TwoFAEnabled)
	assert.Nil(t, got.TwoFASecret)

	token, data := "plex-token", `{"id":1}`
	require.NoError(t, repo.SetPlexAccount(ctx, "root", &token, &data))
	got, err = repo.GetFirstUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.PlexToken)
	assert.Equal(t, token, *got.PlexToken)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "x"), ErrNoUser)
}

func TestStateRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTestDB(t).State
	now := time.Now()

	inserted, err := repo.AddProcessedID(ctx, "radarr", "Default", "2", now)
	require.NoError(t, err)
	assert.True(t, inserted)

	_, err = repo.AddProcessedID(ctx, "radarr", "Default", "1", now.Add(time.Second))
	require.NoError(t, err)

	inserted, err = repo.AddProcessedID(ctx, "radarr", "Default", "2", now.Add(2*time.Second))
	require.NoError(t, err)
	assert.False(t, inserted, "duplicates are ignored")

	_, err = repo.AddProcessedID(ctx, "sonarr", "Default", "9", now)
	require.NoError(t, err)

	ids, err := repo.ProcessedIDs(ctx, "radarr", "Default")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids)

	ok, err := repo.IsProcessed(ctx, "radarr", "Default", "1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsProcessed(ctx, "radarr", "Other", "1")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := repo.ResetProcessed(ctx, "radarr")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	count, err := repo.CountProcessed(ctx, "sonarr", "Default")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.ResetProcessed(ctx, "")
	require.NoError(t, err)
	ids, err = repo.ProcessedIDs(ctx, "sonarr", "Default")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStateRepository_SearchedIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewTestDB(t).State
	now := time.Now()

	inserted, err := repo.AddSearchedID(ctx, "lidarr", "Default", "31", now)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.AddSearchedID(ctx, "lidarr", "Default", "31", now)
	require.NoError(t, err)
	assert.False(t, inserted)

	ok, err := repo.IsSearched(ctx, "lidarr", "Default", "31")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsSearched(ctx, "lidarr", "Default", "32")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.ResetProcessed(ctx, "lidarr")
	require.NoError(t, err)

	ok, err = repo.IsSearched(ctx, "lidarr", "Default", "31")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateRepository_Lock(t *testing.T) {
	ctx := context.Background()
	repo := NewTestDB(t).State

	lock, err := repo.GetLock(ctx)
	require.NoError(t, err)
	assert.Nil(t, lock)

	created := time.Unix(1_700_000_000, 0)
	require.NoError(t, repo.SetLock(ctx, StatefulLock{CreatedAt: created, ExpiresAt: created.Add(168 * time.Hour)}))
	require.NoError(t, repo.SetLock(ctx, StatefulLock{CreatedAt: created.Add(time.Hour), ExpiresAt: created.Add(169 * time.Hour)}))

	lock, err = repo.GetLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.True(t, lock.CreatedAt.Equal(created.Add(time.Hour)))
	assert.True(t, lock.ExpiresAt.Equal(created.Add(169*time.Hour)))
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTestDB(t).Settings

	_, found, err := repo.Get(ctx, "radarr")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Put(ctx, "radarr", []byte(`{"hourly_cap":10}`)))
	require.NoError(t, repo.Put(ctx, "radarr", []byte(`{"hourly_cap":20}`)))

	doc, found, err := repo.Get(ctx, "radarr")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"hourly_cap":20}`, string(doc))

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"radarr"}, keys)
}

func TestStatsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTestDB(t).Stats
	now := time.Date(2026, 1, 1, 13, 5, 0, 0, time.UTC)

	require.NoError(t, repo.IncrementStat(ctx, "radarr", StatHunted, 2))
	require.NoError(t, repo.IncrementStat(ctx, "radarr", StatHunted, 1))
	require.NoError(t, repo.IncrementStat(ctx, "sonarr", StatUpgraded, 4))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats["radarr"][StatHunted])
	assert.EqualValues(t, 4, stats["sonarr"][StatUpgraded])

	require.NoError(t, repo.ResetStats(ctx, "radarr"))
	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats["radarr"][StatHunted])
	assert.EqualValues(t, 4, stats["sonarr"][StatUpgraded])

	hits, err := repo.IncrementAPIHits(ctx, "radarr", 3, now)
	require.NoError(t, err)
	assert.Equal(t, 3, hits)
	hits, err = repo.IncrementAPIHits(ctx, "radarr", 2, now)
	require.NoError(t, err)
	assert.Equal(t, 5, hits)

	hits, err = repo.APIHits(ctx, "lidarr")
	require.NoError(t, err)
	assert.Zero(t, hits)

	require.NoError(t, repo.ResetHourlyCaps(ctx, now.Add(time.Hour)))
	caps, err := repo.HourlyCaps(ctx)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, 0, caps[0].APIHits)
	assert.Equal(t, 14, caps[0].LastResetHour)
}

func TestResetRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTestDB(t).Resets

	id, err := repo.Create(ctx, "sonarr")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = repo.Create(ctx, "radarr")
	require.NoError(t, err)

	pending, err := repo.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, repo.MarkProcessed(ctx, "sonarr"))

	pending, err = repo.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "radarr", pending[0].AppType)
}
