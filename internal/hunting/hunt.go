package hunting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/database"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/javi11/huntarr/internal/history"
	"github.com/javi11/huntarr/internal/settings"
)

// wantedPageSize is the page size used when reading wanted lists.
const wantedPageSize = 250

// Sonarr missing-hunt modes.
const (
	ModeSeasonPacks = "seasons_packs"
	ModeShows       = "shows"
	ModeEpisodes    = "episodes"
)

// HuntResult counts the searches triggered by one hunt.
type HuntResult struct {
	Candidates int
	Searched   int
	CapReached bool
}

type searchGroup struct {
	key     string
	title   string
	parent  int64
	ids     []int64
	records []model.WantedRecord
}

// HuntMissing searches for up to HuntMissingItems missing items of inst.
func (m *Manager) HuntMissing(ctx context.Context, app model.AppType, inst model.Instance, cfg *settings.AppSettings) (HuntResult, error) {
	return m.hunt(ctx, app, inst, cfg, model.WantedMissing, cfg.HuntMissingItems)
}

// HuntUpgrades searches for up to HuntUpgradeItems items below their quality cutoff.
func (m *Manager) HuntUpgrades(ctx context.Context, app model.AppType, inst model.Instance, cfg *settings.AppSettings) (HuntResult, error) {
	return m.hunt(ctx, app, inst, cfg, model.WantedCutoff, cfg.HuntUpgradeItems)
}

func (m *Manager) hunt(ctx context.Context, app model.AppType, inst model.Instance, cfg *settings.AppSettings, kind model.WantedKind, limit int) (HuntResult, error) {
	var res HuntResult
	if limit <= 0 {
		slog.DebugContext(ctx, "Hunt disabled", "kind", kind)
		return res, nil
	}

	name := inst.DisplayName()
	client, err := m.deps.Clients.Get(app, inst)
	if err != nil {
		return res, err
	}

	records, err := client.Wanted(ctx, kind, wantedPageSize)
	if err != nil {
		return res, fmt.Errorf("read wanted %s list: %w", kind, err)
	}

	groups, err := m.candidateGroups(ctx, app, name, cfg, kind, records)
	if err != nil {
		return res, err
	}
	res.Candidates = len(groups)
	if len(groups) == 0 {
		slog.InfoContext(ctx, "No items left to hunt", "kind", kind)
		return res, nil
	}

	rand.Shuffle(len(groups), func(i, j int) { groups[i], groups[j] = groups[j], groups[i] })
	if len(groups) > limit {
		groups = groups[:limit]
	}

	op, stat := history.OperationMissing, database.StatHunted
	if kind == model.WantedCutoff {
		op, stat = history.OperationUpgrade, database.StatUpgraded
	}

	for _, g := range groups {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		if m.deps.Stats != nil {
			reached, err := m.deps.Stats.CapReached(ctx, app, cfg.HourlyCap)
			if err != nil {
				return res, err
			}
			if reached {
				slog.WarnContext(ctx, "Hourly API cap reached, stopping hunt", "cap", cfg.HourlyCap)
				res.CapReached = true
				return res, nil
			}
		}

		if err := client.Search(ctx, g.ids); err != nil {
			slog.ErrorContext(ctx, "Search command failed", "item", g.title, "error", err)
			continue
		}
		res.Searched++

		if m.deps.Stats != nil {
			if err := m.deps.Stats.RecordAPIHits(ctx, app, 1, cfg.HourlyCap); err != nil {
				slog.WarnContext(ctx, "Failed to record API hit", "error", err)
			}
		}

		m.recordSearch(ctx, app, inst, g, op, stat)
	}

	slog.InfoContext(ctx, "Hunt finished", "kind", kind, "searched", res.Searched, "candidates", res.Candidates)
	return res, nil
}

func (m *Manager) recordSearch(ctx context.Context, app model.AppType, inst model.Instance, g searchGroup, op, stat string) {
	name := inst.DisplayName()
	parentID := strconv.FormatInt(g.parent, 10)

	if err := m.deps.State.AddProcessedID(ctx, app, name, parentID); err != nil {
		slog.WarnContext(ctx, "Failed to record processed id", "item_id", parentID, "error", err)
	}
	if !app.MovieLike() {
		for _, id := range g.ids {
			searchID := strconv.FormatInt(id, 10)
			if err := m.deps.State.AddSearchedID(ctx, app, name, searchID); err != nil {
				slog.WarnContext(ctx, "Failed to record searched id", "search_id", searchID, "error", err)
			}
		}
	}

	monitored := true
	data := history.EntryData{
		Name:          g.title,
		InstanceName:  name,
		ID:            parentID,
		OperationType: op,
		HuntStatus:    history.StatusSearching,
		Monitored:     &monitored,
	}
	if app == model.Sonarr && len(g.records) == 1 && g.records[0].Season > 0 {
		data.Fields = history.Fields{"season": g.records[0].Season, "episode": g.records[0].Episode}
	}
	if _, err := m.deps.History.AddEntry(ctx, app, data); err != nil && !errors.Is(err, errs.ErrDuplicateEntry) {
		slog.WarnContext(ctx, "Failed to add history entry", "item_id", parentID, "error", err)
	}

	if m.deps.Stats != nil {
		if err := m.deps.Stats.Increment(ctx, app, stat, 1); err != nil {
			slog.WarnContext(ctx, "Failed to increment stat", "stat", stat, "error", err)
		}
	}
}

// candidateGroups filters records and groups them into search commands.
// Upgrades are always searched per record.
func (m *Manager) candidateGroups(ctx context.Context, app model.AppType, instance string, cfg *settings.AppSettings, kind model.WantedKind, records []model.WantedRecord) ([]searchGroup, error) {
	now := m.now()
	mode := ModeEpisodes
	if app == model.Sonarr && kind == model.WantedMissing && cfg.HuntMissingMode != "" {
		mode = cfg.HuntMissingMode
	}

	index := make(map[string]int)
	var groups []searchGroup
	skipped := 0

	for _, rec := range records {
		if cfg.MonitoredOnly && !rec.Monitored {
			skipped++
			continue
		}
		if app == model.Sonarr && cfg.SkipFutureEpisodes && isFuture(rec.AirDate, now) {
			skipped++
			continue
		}

		processed, err := m.alreadySearched(ctx, app, instance, rec)
		if err != nil {
			return nil, err
		}
		if processed {
			skipped++
			continue
		}

		key := groupKey(app, mode, rec)
		if i, ok := index[key]; ok {
			groups[i].ids = append(groups[i].ids, rec.SearchID)
			groups[i].records = append(groups[i].records, rec)
			continue
		}

		index[key] = len(groups)
		groups = append(groups, searchGroup{
			key:     key,
			title:   groupTitle(app, mode, rec),
			parent:  rec.ParentID,
			ids:     []int64{rec.SearchID},
			records: []model.WantedRecord{rec},
		})
	}

	if skipped > 0 {
		slog.DebugContext(ctx, "Skipped wanted records", "kind", kind, "skipped", skipped)
	}

	return groups, nil
}

// alreadySearched checks movies by their own id and every other app by the
// album, book or episode id, so one searched child does not hide its siblings.
func (m *Manager) alreadySearched(ctx context.Context, app model.AppType, instance string, rec model.WantedRecord) (bool, error) {
	if app.MovieLike() {
		return m.deps.State.IsProcessed(ctx, app, instance, strconv.FormatInt(rec.ParentID, 10))
	}
	return m.deps.State.IsSearched(ctx, app, instance, strconv.FormatInt(rec.SearchID, 10))
}

func isFuture(airDate, now time.Time) bool {
	return !airDate.IsZero() && airDate.After(now)
}

func groupKey(app model.AppType, mode string, rec model.WantedRecord) string {
	if app != model.Sonarr {
		return strconv.FormatInt(rec.SearchID, 10)
	}

	switch mode {
	case ModeShows:
		return strconv.FormatInt(rec.ParentID, 10)
	case ModeSeasonPacks:
		return fmt.Sprintf("%d:%d", rec.ParentID, rec.Season)
	default:
		return strconv.FormatInt(rec.SearchID, 10)
	}
}

func groupTitle(app model.AppType, mode string, rec model.WantedRecord) string {
	if app != model.Sonarr {
		return rec.Title
	}

	switch mode {
	case ModeShows:
		return rec.Title
	case ModeSeasonPacks:
		return fmt.Sprintf("%s - Season %d", rec.Title, rec.Season)
	default:
		return fmt.Sprintf("%s - S%02dE%02d", rec.Title, rec.Season, rec.Episode)
	}
}
