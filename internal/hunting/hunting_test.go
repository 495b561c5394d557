package hunting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/javi11/huntarr/internal/arrs/clients"
	"github.com/javi11/huntarr/internal/arrs/clients/clientstest"
	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/database"
	"github.com/javi11/huntarr/internal/history"
	"github.com/javi11/huntarr/internal/settings"
	"github.com/javi11/huntarr/internal/state"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var defaultInst = model.Instance{Name: "Default", URL: "http://arr", APIKey: "k"}

type fixture struct {
	db       *database.DB
	store    *history.Store
	tracker  *state.Tracker
	stats    *Stats
	provider *clientstest.Provider
	manager  *Manager
}

func newFixture(t *testing.T, instances clientstest.Instances) *fixture {
	t.Helper()

	db := database.NewTestDB(t)
	store := history.NewStore(afero.NewMemMapFs(), "/history")
	tracker := state.New(db.State, nil)
	stats := NewStats(db.Stats)
	provider := clientstest.NewProvider()

	m := NewManager(Deps{
		Instances: instances,
		Clients:   provider,
		History:   store,
		State:     tracker,
		Stats:     stats,
	}, time.Minute, time.Minute)

	return &fixture{db: db, store: store, tracker: tracker, stats: stats, provider: provider, manager: m}
}

func TestDetermineHuntStatus(t *testing.T) {
	queue := []model.QueueRecord{{ID: 9, ForeignID: 7}}

	tests := []struct {
		name string
		item *model.Item
		want string
	}{
		{"nil item", nil, history.StatusNotTracked},
		{"has file", &model.Item{ID: 7, HasFile: true, Monitored: true}, history.StatusDownloaded},
		{"queued", &model.Item{ID: 7}, history.StatusFound},
		{"monitored", &model.Item{ID: 8, Monitored: true}, history.StatusSearching},
		{"unmonitored", &model.Item{ID: 8}, history.StatusNotTracked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineHuntStatus(tt.item, queue))
		})
	}
}

func TestReleaseGroup(t *testing.T) {
	assert.Equal(t, "SPARKS", ReleaseGroup("Dune.2021.1080p.BluRay.x264-SPARKS"))
	assert.Equal(t, "", ReleaseGroup(""))
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry(nil)
	for _, app := range model.AllAppTypes() {
		proc, ok := reg[app]
		require.True(t, ok, app)
		assert.Equal(t, app, proc.AppType())
	}
	_, ok := reg[model.Swaparr]
	assert.False(t, ok)
}

func TestMovieProcessor_BuildEntry(t *testing.T) {
	proc := NewRegistry(nil)[model.Radarr]
	item := &model.Item{ID: 42, Title: "Dune", Year: 2021, Monitored: true, ImdbID: "tt1160419", TmdbID: 438631}
	file := &model.FileInfo{Quality: "Bluray-1080p", SizeBytes: 5 * 1024 * 1024 * 1024}
	queue := []model.QueueRecord{{ForeignID: 42, Title: "Dune.2021.2160p.WEB-DL-FLUX", Protocol: "torrent", Indexer: "Tracker"}}

	data := proc.BuildEntry(defaultInst, item, file, queue, history.StatusFound, history.OperationMissing)

	assert.Equal(t, "Dune (2021)", data.Name)
	assert.Equal(t, "42", data.ID)
	assert.Equal(t, history.StatusFound, data.HuntStatus)
	assert.Equal(t, true, data.Fields["in_queue"])
	assert.Equal(t, "torrent", data.Fields["protocol"])
	assert.Equal(t, "Tracker", data.Fields["indexer"])
	assert.Equal(t, 2021, data.Fields["year"])
	assert.Equal(t, "tt1160419", data.Fields["imdb_id"])
	assert.Equal(t, "Bluray-1080p", data.Fields["quality"])
	assert.Equal(t, 5120.0, data.Fields["size_mb"])
}

func TestArtistProcessor_BuildEntryFallbackName(t *testing.T) {
	proc := NewRegistry(nil)[model.Lidarr]
	data := proc.BuildEntry(defaultInst, &model.Item{ID: 5}, nil, nil, history.StatusSearching, history.OperationMissing)
	assert.Equal(t, "Artist ID: 5", data.Name)
	assert.Equal(t, "Artist ID: 5", data.Fields["artist"])
	_, ok := data.Fields["in_queue"]
	assert.False(t, ok)
}

func TestProcessInstance_CreatesAndUpdatesEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clientstest.Instances{model.Radarr: {defaultInst}})

	require.NoError(t, f.tracker.AddProcessedID(ctx, model.Radarr, "Default", "1"))
	require.NoError(t, f.tracker.AddProcessedID(ctx, model.Radarr, "Default", "2"))
	require.NoError(t, f.tracker.AddProcessedID(ctx, model.Radarr, "Default", "3"))

	fake := &clientstest.Fake{
		Items: map[int64]*model.Item{
			1: {ID: 1, Title: "One", Monitored: true},
			2: {ID: 2, Title: "Two", Monitored: true, HasFile: true},
		},
		ItemErrs: map[int64]error{3: errors.New("boom")},
	}
	f.provider.Set(model.Radarr, "Default", fake)

	proc := f.manager.Registry()[model.Radarr]
	require.NoError(t, f.manager.ProcessInstance(ctx, proc, defaultInst))

	one, err := f.store.Find(ctx, model.Radarr, "Default", "1", history.OperationMissing)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, history.StatusSearching, one.HuntStatus)

	two, err := f.store.Find(ctx, model.Radarr, "Default", "2", history.OperationMissing)
	require.NoError(t, err)
	require.NotNil(t, two)
	assert.Equal(t, history.StatusDownloaded, two.HuntStatus)

	three, err := f.store.Find(ctx, model.Radarr, "Default", "3", history.OperationMissing)
	require.NoError(t, err)
	assert.Nil(t, three)

	fake.Items[1].HasFile = true
	require.NoError(t, f.manager.ProcessInstance(ctx, proc, defaultInst))

	one, err = f.store.Find(ctx, model.Radarr, "Default", "1", history.OperationMissing)
	require.NoError(t, err)
	assert.Equal(t, history.StatusDownloaded, one.HuntStatus)

	assert.Len(t, f.manager.Tracked(model.Radarr), 2)
}

func TestProcessInstance_KeepsDownloadProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clientstest.Instances{model.Radarr: {defaultInst}})

	require.NoError(t, f.tracker.AddProcessedID(ctx, model.Radarr, "Default", "1"))
	_, err := f.store.AddEntry(ctx, model.Radarr, history.EntryData{
		Name: "One", InstanceName: "Default", ID: "1", HuntStatus: "Downloading (40.0%)",
	})
	require.NoError(t, err)

	f.provider.Set(model.Radarr, "Default", &clientstest.Fake{
		Items: map[int64]*model.Item{1: {ID: 1, Title: "One", Monitored: true}},
		Queue: []model.QueueRecord{{ID: 10, ForeignID: 1}},
	})

	require.NoError(t, f.manager.ProcessInstance(ctx, f.manager.Registry()[model.Radarr], defaultInst))

	entry, err := f.store.Find(ctx, model.Radarr, "Default", "1", history.OperationMissing)
	require.NoError(t, err)
	assert.Equal(t, "Downloading (40.0%)", entry.HuntStatus)
}

func TestProcessInstance_UpdatesMissingEntryNotUpgrade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clientstest.Instances{model.Radarr: {defaultInst}})

	require.NoError(t, f.tracker.AddProcessedID(ctx, model.Radarr, "Default", "1"))
	for _, op := range []string{history.OperationMissing, history.OperationUpgrade} {
		_, err := f.store.AddEntry(ctx, model.Radarr, history.EntryData{
			Name: "One", InstanceName: "Default", ID: "1", HuntStatus: history.StatusSearching, OperationType: op,
		})
		require.NoError(t, err)
	}

	f.provider.Set(model.Radarr, "Default", &clientstest.Fake{
		Items: map[int64]*model.Item{1: {ID: 1, Title: "One", Monitored: true, HasFile: true}},
	})
	proc := f.manager.Registry()[model.Radarr]

	require.NoError(t, f.manager.ProcessInstance(ctx, proc, defaultInst))
	first, err := f.store.Entries(ctx, model.Radarr, "Default")
	require.NoError(t, err)

	missing, err := f.store.Find(ctx, model.Radarr, "Default", "1", history.OperationMissing)
	require.NoError(t, err)
	assert.Equal(t, history.StatusDownloaded, missing.HuntStatus)

	upgrade, err := f.store.Find(ctx, model.Radarr, "Default", "1", history.OperationUpgrade)
	require.NoError(t, err)
	assert.Equal(t, history.StatusSearching, upgrade.HuntStatus)

	require.NoError(t, f.manager.ProcessInstance(ctx, proc, defaultInst))
	second, err := f.store.Entries(ctx, model.Radarr, "Default")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunHuntCycle_ConfigurationErrorDoesNotStopOtherApps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clientstest.Instances{
		model.Radarr: {defaultInst},
		model.Sonarr: {defaultInst},
	})

	require.NoError(t, f.tracker.AddProcessedID(ctx, model.Radarr, "Default", "1"))
	require.NoError(t, f.tracker.AddProcessedID(ctx, model.Sonarr, "Default", "4"))

	// radarr has no registered client.
	f.provider.Set(model.Sonarr, "Default", &clientstest.Fake{
		Items: map[int64]*model.Item{4: {ID: 4, Title: "Show", Monitored: true}},
	})

	f.manager.RunHuntCycle(ctx)

	entry, err := f.store.Find(ctx, model.Sonarr, "Default", "4", history.OperationMissing)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Show", entry.ProcessedInfo)
}

func TestHuntMissing_MovieSearchesAndRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	fake := &clientstest.Fake{WantedLists: map[model.WantedKind][]model.WantedRecord{
		model.WantedMissing: {
			{SearchID: 1, ParentID: 1, Title: "One", Monitored: true},
			{SearchID: 2, ParentID: 2, Title: "Two", Monitored: false},
			{SearchID: 3, ParentID: 3, Title: "Three", Monitored: true},
		},
	}}
	f.provider.Set(model.Radarr, "Default", fake)
	require.NoError(t, f.tracker.AddProcessedID(ctx, model.Radarr, "Default", "3"))

	cfg := settings.DefaultAppSettings(model.Radarr)
	cfg.HuntMissingItems = 5

	res, err := f.manager.HuntMissing(ctx, model.Radarr, defaultInst, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, 1, res.Searched)
	assert.Equal(t, [][]int64{{1}}, fake.Searches)

	processed, err := f.tracker.IsProcessed(ctx, model.Radarr, "Default", "1")
	require.NoError(t, err)
	assert.True(t, processed)

	entry, err := f.store.Find(ctx, model.Radarr, "Default", "1", history.OperationMissing)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, history.StatusSearching, entry.HuntStatus)

	snap, err := f.stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Stats["radarr"][database.StatHunted])
}

func TestHuntMissing_SonarrSeasonPacks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	future := time.Now().Add(48 * time.Hour)
	fake := &clientstest.Fake{WantedLists: map[model.WantedKind][]model.WantedRecord{
		model.WantedMissing: {
			{SearchID: 11, ParentID: 100, Title: "Pilot", Monitored: true, Season: 1, Episode: 1},
			{SearchID: 12, ParentID: 100, Title: "Second", Monitored: true, Season: 1, Episode: 2},
			{SearchID: 13, ParentID: 100, Title: "Future", Monitored: true, Season: 2, Episode: 1, AirDate: future},
		},
	}}
	f.provider.Set(model.Sonarr, "Default", fake)

	cfg := settings.DefaultAppSettings(model.Sonarr)
	cfg.HuntMissingItems = 10

	res, err := f.manager.HuntMissing(ctx, model.Sonarr, defaultInst, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Searched)
	assert.Equal(t, [][]int64{{11, 12}}, fake.Searches)
}

func TestHuntMissing_LidarrAlbumsOfOneArtist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	fake := &clientstest.Fake{WantedLists: map[model.WantedKind][]model.WantedRecord{
		model.WantedMissing: {
			{SearchID: 31, ParentID: 5, Title: "First Album", Monitored: true},
			{SearchID: 32, ParentID: 5, Title: "Second Album", Monitored: true},
		},
	}}
	f.provider.Set(model.Lidarr, "Default", fake)

	cfg := settings.DefaultAppSettings(model.Lidarr)
	cfg.HuntMissingItems = 1

	for range 2 {
		res, err := f.manager.HuntMissing(ctx, model.Lidarr, defaultInst, cfg)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Searched)
	}

	res, err := f.manager.HuntMissing(ctx, model.Lidarr, defaultInst, cfg)
	require.NoError(t, err)
	assert.Zero(t, res.Candidates)

	assert.ElementsMatch(t, [][]int64{{31}, {32}}, fake.Searches)

	ids, err := f.tracker.ProcessedIDs(ctx, model.Lidarr, "Default")
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, ids)
}

func TestHuntUpgrades_StopsAtHourlyCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	fake := &clientstest.Fake{WantedLists: map[model.WantedKind][]model.WantedRecord{
		model.WantedCutoff: {
			{SearchID: 1, ParentID: 1, Title: "One", Monitored: true},
			{SearchID: 2, ParentID: 2, Title: "Two", Monitored: true},
			{SearchID: 3, ParentID: 3, Title: "Three", Monitored: true},
		},
	}}
	f.provider.Set(model.Radarr, "Default", fake)

	cfg := settings.DefaultAppSettings(model.Radarr)
	cfg.HuntUpgradeItems = 3
	cfg.HourlyCap = 2

	res, err := f.manager.HuntUpgrades(ctx, model.Radarr, defaultInst, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Searched)
	assert.True(t, res.CapReached)
	assert.Len(t, fake.Searches, 2)

	reached, err := f.stats.CapReached(ctx, model.Radarr, 2)
	require.NoError(t, err)
	assert.True(t, reached)
}

func TestHunt_DisabledWhenLimitZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := clients.NewMockProvider(ctrl)

	m := NewManager(Deps{Clients: provider}, time.Minute, time.Minute)
	cfg := settings.DefaultAppSettings(model.Radarr)

	res, err := m.HuntUpgrades(context.Background(), model.Radarr, defaultInst, cfg)
	require.NoError(t, err)
	assert.Zero(t, res.Searched)
}

func TestHunt_WantedErrorIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := clients.NewMockClient(ctrl)
	provider := clients.NewMockProvider(ctrl)

	provider.EXPECT().Get(model.Radarr, defaultInst).Return(client, nil)
	client.EXPECT().Wanted(gomock.Any(), model.WantedMissing, wantedPageSize).Return(nil, errors.New("timeout"))

	m := NewManager(Deps{Clients: provider}, time.Minute, time.Minute)
	cfg := settings.DefaultAppSettings(model.Radarr)

	_, err := m.HuntMissing(context.Background(), model.Radarr, defaultInst, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestParseTimeLeft(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"00:30:00", 30 * time.Minute, true},
		{"1.02:00:00", 26 * time.Hour, true},
		{"", 0, false},
		{"soon", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseTimeLeft(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCheckStalled_StrikesAndRemoves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	fake := &clientstest.Fake{Queue: []model.QueueRecord{
		{ID: 1, Title: "Stuck", Status: "stalled", Size: 1 << 30, SizeLeft: 1 << 29, Protocol: "torrent", DownloadClient: "qbit"},
		{ID: 2, Title: "Fine", Status: "downloading", TimeLeft: "00:10:00", SizeLeft: 10},
		{ID: 3, Title: "Huge", Status: "stalled", Size: 30e9, SizeLeft: 1},
		{ID: 4, Title: "Slow", Status: "downloading", TimeLeft: "3.00:00:00", SizeLeft: 10},
	}}
	f.provider.Set(model.Radarr, "Default", fake)

	cfg := settings.DefaultSwaparrSettings()
	cfg.Enabled = true
	cfg.MaxStrikes = 2

	res, err := f.manager.CheckStalled(ctx, model.Radarr, defaultInst, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Struck)
	assert.Zero(t, res.Removed)
	assert.Equal(t, 1, f.manager.Strikes(model.Radarr, "Default", 1))
	assert.Zero(t, f.manager.Strikes(model.Radarr, "Default", 3))

	res, err = f.manager.CheckStalled(ctx, model.Radarr, defaultInst, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Removed)
	assert.ElementsMatch(t, []int64{1, 4}, fake.Removed)

	entry, err := f.store.Find(ctx, model.Swaparr, "Default", "1", "radarr")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, StatusRemovedStalled, entry.HuntStatus)
	reason, _ := entry.Field("reason")
	assert.Equal(t, "stalled", reason)
}

func TestCheckStalled_DryRunAndPrune(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	fake := &clientstest.Fake{Queue: []model.QueueRecord{{ID: 1, Title: "Stuck", Status: "stalled", SizeLeft: 1}}}
	f.provider.Set(model.Radarr, "Default", fake)

	cfg := settings.DefaultSwaparrSettings()
	cfg.Enabled = true
	cfg.DryRun = true
	cfg.MaxStrikes = 1

	res, err := f.manager.CheckStalled(ctx, model.Radarr, defaultInst, cfg)
	require.NoError(t, err)
	assert.Zero(t, res.Removed)
	assert.Empty(t, fake.Removed)

	entry, err := f.store.Find(ctx, model.Swaparr, "Default", "1", "radarr")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, StatusWouldRemove, entry.HuntStatus)

	cfg.DryRun = false
	cfg.MaxStrikes = 5
	_, err = f.manager.CheckStalled(ctx, model.Radarr, defaultInst, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, f.manager.Strikes(model.Radarr, "Default", 1))

	fake.Queue = nil
	_, err = f.manager.CheckStalled(ctx, model.Radarr, defaultInst, cfg)
	require.NoError(t, err)
	assert.Zero(t, f.manager.Strikes(model.Radarr, "Default", 1))
}

func TestCheckStalled_Disabled(t *testing.T) {
	m := NewManager(Deps{}, time.Minute, time.Minute)
	res, err := m.CheckStalled(context.Background(), model.Radarr, defaultInst, settings.DefaultSwaparrSettings())
	require.NoError(t, err)
	assert.Zero(t, res.Checked)
}

func TestStats_RecordAndReset(t *testing.T) {
	ctx := context.Background()
	stats := NewStats(database.NewTestDB(t).Stats)

	require.NoError(t, stats.RecordAPIHits(ctx, model.Sonarr, 3, 4))
	reached, err := stats.CapReached(ctx, model.Sonarr, 4)
	require.NoError(t, err)
	assert.False(t, reached)

	require.NoError(t, stats.RecordAPIHits(ctx, model.Sonarr, 1, 4))
	reached, err = stats.CapReached(ctx, model.Sonarr, 4)
	require.NoError(t, err)
	assert.True(t, reached)

	reached, err = stats.CapReached(ctx, model.Sonarr, 0)
	require.NoError(t, err)
	assert.False(t, reached)

	require.NoError(t, stats.Increment(ctx, model.Sonarr, database.StatHunted, 2))
	require.NoError(t, stats.Reset(ctx, ""))
	snap, err := stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.Stats["sonarr"][database.StatHunted])
}
