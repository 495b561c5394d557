package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/history"
)

// Progress returns the downloaded percentage rounded to two decimals, or 0 when size is unknown.
func Progress(size, sizeLeft float64) float64 {
	if size <= 0 {
		return 0
	}
	return math.Round((size-sizeLeft)/size*100*100) / 100
}

// FormatProgress renders a percentage the way it is shown in statuses: "50.0", "33.33", or "0" when size is unknown.
func FormatProgress(size, progress float64) string {
	if size <= 0 {
		return "0"
	}

	s := strconv.FormatFloat(progress, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// StatusFor builds the hunt status shown for a matched queue record.
func StatusFor(app model.AppType, rec model.QueueRecord) string {
	status := fmt.Sprintf("Downloading (%s%%)", FormatProgress(rec.Size, Progress(rec.Size, rec.SizeLeft)))

	switch app {
	case model.Sonarr:
		status += " - " + orDefault(rec.ChildTitle, "Unknown episode")
	case model.Lidarr:
		status += " - " + orDefault(rec.ChildTitle, "Unknown album")
	case model.Readarr:
		status += " - " + orDefault(rec.ChildTitle, "Unknown book")
	case model.Eros:
		status += " - " + orDefault(rec.Quality, "Unknown") + " " + orDefault(rec.Resolution, "Unknown")
	}

	return status
}

// QueueFields builds the attributes merged into a matched history entry.
func QueueFields(app model.AppType, rec model.QueueRecord) history.Fields {
	progress := Progress(rec.Size, rec.SizeLeft)

	title := rec.Title
	switch app {
	case model.Sonarr:
		title = orDefault(rec.ChildTitle, "Unknown episode")
	case model.Lidarr:
		title = orDefault(rec.ChildTitle, "Unknown album")
	case model.Readarr:
		title = orDefault(rec.ChildTitle, "Unknown book")
	case model.Whisparr, model.Eros:
		title = orDefault(rec.Title, "Unknown item")
	}

	info := map[string]any{
		"status":          orDefault(rec.Status, "unknown"),
		"progress":        progress,
		"download_client": rec.DownloadClient,
		"title":           title,
		"time_left":       rec.TimeLeft,
		"size":            rec.Size,
		"protocol":        rec.Protocol,
	}
	if app == model.Eros {
		info["quality"] = orDefault(rec.Quality, "Unknown")
		info["resolution"] = orDefault(rec.Resolution, "Unknown")
	}

	return history.Fields{
		"queue_info": info,
		"progress":   progress,
	}
}

// Matches applies the per-app matching rule between a history entry and a queue record.
func Matches(app model.AppType, entry history.Entry, rec model.QueueRecord) bool {
	idMatch := rec.ForeignID != 0 && strconv.FormatInt(rec.ForeignID, 10) == entry.ID

	switch app {
	case model.Radarr, model.Lidarr, model.Readarr:
		return idMatch || TitleMatch(entry.ProcessedInfo, rec.Title)
	default:
		return idMatch
	}
}
