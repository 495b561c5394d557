// Package hunting turns processed media ids into history entries, triggers
// missing and upgrade searches, and removes stalled downloads.
package hunting

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/history"
	ptn "github.com/middelink/go-parse-torrent-name"
)

// Processor is the per-app variant used by ProcessInstance.
type Processor interface {
	AppType() model.AppType
	// FetchCandidates returns the ids previously processed for inst.
	FetchCandidates(ctx context.Context, inst model.Instance) ([]string, error)
	ClassifyStatus(item *model.Item, queue []model.QueueRecord) string
	BuildEntry(inst model.Instance, item *model.Item, file *model.FileInfo, queue []model.QueueRecord, status, op string) history.EntryData
}

// CandidateSource lists processed ids.
type CandidateSource interface {
	ProcessedIDs(ctx context.Context, app model.AppType, instance string) ([]string, error)
}

// Registry maps each hunted app type to its processor.
type Registry map[model.AppType]Processor

// NewRegistry builds the static processor set.
func NewRegistry(candidates CandidateSource) Registry {
	b := func(app model.AppType) base { return base{app: app, candidates: candidates} }

	return Registry{
		model.Radarr:   movieProcessor{b(model.Radarr)},
		model.Whisparr: movieProcessor{b(model.Whisparr)},
		model.Eros:     movieProcessor{b(model.Eros)},
		model.Sonarr:   seriesProcessor{b(model.Sonarr)},
		model.Lidarr:   artistProcessor{b(model.Lidarr)},
		model.Readarr:  authorProcessor{b(model.Readarr)},
	}
}

// DetermineHuntStatus classifies an item against the live queue.
func DetermineHuntStatus(item *model.Item, queue []model.QueueRecord) string {
	if item == nil {
		return history.StatusNotTracked
	}
	if item.HasFile {
		return history.StatusDownloaded
	}
	if queueRecordFor(item.ID, queue) != nil {
		return history.StatusFound
	}
	if item.Monitored {
		return history.StatusSearching
	}
	return history.StatusNotTracked
}

func queueRecordFor(id int64, queue []model.QueueRecord) *model.QueueRecord {
	for i := range queue {
		if queue[i].ForeignID == id {
			return &queue[i]
		}
	}
	return nil
}

type base struct {
	app        model.AppType
	candidates CandidateSource
}

func (b base) AppType() model.AppType { return b.app }

func (b base) FetchCandidates(ctx context.Context, inst model.Instance) ([]string, error) {
	return b.candidates.ProcessedIDs(ctx, b.app, inst.DisplayName())
}

func (b base) ClassifyStatus(item *model.Item, queue []model.QueueRecord) string {
	return DetermineHuntStatus(item, queue)
}

func (b base) entry(inst model.Instance, item *model.Item, queue []model.QueueRecord, status, op, name string) history.EntryData {
	monitored := item.Monitored
	data := history.EntryData{
		Name:          name,
		InstanceName:  inst.DisplayName(),
		ID:            strconv.FormatInt(item.ID, 10),
		OperationType: op,
		HuntStatus:    status,
		Monitored:     &monitored,
		Fields:        history.Fields{},
	}

	if len(queue) == 0 {
		return data
	}

	rec := queueRecordFor(item.ID, queue)
	if rec == nil {
		data.Fields["in_queue"] = false
		return data
	}

	data.Fields["in_queue"] = true
	if rec.Protocol != "" {
		data.Fields["protocol"] = rec.Protocol
	}
	if rec.Indexer != "" {
		data.Fields["indexer"] = rec.Indexer
	}
	if b.app.MovieLike() {
		if group := ReleaseGroup(rec.Title); group != "" {
			data.Fields["release_group"] = group
		}
	}
	return data
}

// ReleaseGroup extracts the release group from a release title.
func ReleaseGroup(title string) string {
	if title == "" {
		return ""
	}
	if info, err := ptn.Parse(title); err == nil && info.Group != "" {
		return info.Group
	}
	if i := strings.LastIndex(title, "-"); i >= 0 {
		return strings.TrimSpace(title[i+1:])
	}
	return ""
}

func titleWithYear(item *model.Item) string {
	title := item.Title
	if title == "" {
		title = "Unknown"
	}
	if item.Year > 0 {
		return fmt.Sprintf("%s (%d)", title, item.Year)
	}
	return title
}

func sizeMB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1024*1024)*100) / 100
}

type movieProcessor struct{ base }

func (p movieProcessor) BuildEntry(inst model.Instance, item *model.Item, file *model.FileInfo, queue []model.QueueRecord, status, op string) history.EntryData {
	data := p.entry(inst, item, queue, status, op, titleWithYear(item))

	if item.Year > 0 {
		data.Fields["year"] = item.Year
	}
	if item.ImdbID != "" {
		data.Fields["imdb_id"] = item.ImdbID
	}
	if item.TmdbID != 0 {
		data.Fields["tmdb_id"] = item.TmdbID
	}
	if file != nil {
		if file.Quality != "" {
			data.Fields["quality"] = file.Quality
		}
		if file.SizeBytes > 0 {
			data.Fields["size_mb"] = sizeMB(file.SizeBytes)
		}
		if file.ReleaseGroup != "" {
			data.Fields["release_group"] = file.ReleaseGroup
		}
	}
	return data
}

type seriesProcessor struct{ base }

func (p seriesProcessor) BuildEntry(inst model.Instance, item *model.Item, _ *model.FileInfo, queue []model.QueueRecord, status, op string) history.EntryData {
	data := p.entry(inst, item, queue, status, op, titleWithYear(item))
	if item.TvdbID != 0 {
		data.Fields["tvdb_id"] = item.TvdbID
	}
	if item.SizeBytes > 0 {
		data.Fields["size_mb"] = sizeMB(item.SizeBytes)
	}
	return data
}

type artistProcessor struct{ base }

func (p artistProcessor) BuildEntry(inst model.Instance, item *model.Item, _ *model.FileInfo, queue []model.QueueRecord, status, op string) history.EntryData {
	data := p.entry(inst, item, queue, status, op, item.Title)
	if data.Name == "" {
		data.Name = fmt.Sprintf("Artist ID: %d", item.ID)
	}
	data.Fields["artist"] = data.Name
	if item.SizeBytes > 0 {
		data.Fields["size_mb"] = sizeMB(item.SizeBytes)
	}
	return data
}

type authorProcessor struct{ base }

func (p authorProcessor) BuildEntry(inst model.Instance, item *model.Item, _ *model.FileInfo, queue []model.QueueRecord, status, op string) history.EntryData {
	data := p.entry(inst, item, queue, status, op, item.Title)
	if data.Name == "" {
		data.Name = fmt.Sprintf("Author ID: %d", item.ID)
	}
	data.Fields["author"] = data.Name
	if item.SizeBytes > 0 {
		data.Fields["size_mb"] = sizeMB(item.SizeBytes)
	}
	return data
}
