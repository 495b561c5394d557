// Package model holds the app-type enum and the normalized vendor records shared by
// the clients, the processors and the reconciler.
package model

import (
	"fmt"
	"strings"
	"time"

	errs "github.com/javi11/huntarr/internal/errors"
)

// AppType identifies one of the supported Arr applications.
type AppType string

const (
	Sonarr   AppType = "sonarr"
	Radarr   AppType = "radarr"
	Lidarr   AppType = "lidarr"
	Readarr  AppType = "readarr"
	Whisparr AppType = "whisparr"
	Eros     AppType = "eros"

	// Swaparr has a history directory but is not a vendor app.
	Swaparr AppType = "swaparr"
)

// DefaultInstanceName is used when an instance is configured without a name.
const DefaultInstanceName = "Default"

// AllAppTypes returns the hunted app types in processing order.
func AllAppTypes() []AppType {
	return []AppType{Radarr, Sonarr, Lidarr, Readarr, Whisparr, Eros}
}

// HistoryAppTypes returns every app type that owns a history directory.
func HistoryAppTypes() []AppType {
	return append(AllAppTypes(), Swaparr)
}

// ParseAppType validates s against the hunted app types.
func ParseAppType(s string) (AppType, error) {
	t := AppType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllAppTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", errs.ErrUnknownAppType, s)
}

// IsHistoryType reports whether t owns a history directory.
func (t AppType) IsHistoryType() bool {
	for _, known := range HistoryAppTypes() {
		if t == known {
			return true
		}
	}
	return false
}

func (t AppType) String() string {
	return string(t)
}

// IDField is the queue field that references the primary item.
func (t AppType) IDField() string {
	switch t {
	case Sonarr:
		return "seriesId"
	case Lidarr:
		return "artistId"
	case Readarr:
		return "authorId"
	default:
		return "movieId"
	}
}

// APIVersion is the REST version segment used by the app.
func (t AppType) APIVersion() string {
	switch t {
	case Lidarr, Readarr:
		return "v1"
	default:
		return "v3"
	}
}

// MovieLike reports whether the app tracks single-file movies.
func (t AppType) MovieLike() bool {
	return t == Radarr || t == Whisparr || t == Eros
}

// Instance is one configured connection to an app.
type Instance struct {
	Name    string `json:"name"`
	URL     string `json:"api_url"`
	APIKey  string `json:"api_key"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// DisplayName returns the instance name, defaulting to "Default".
func (i Instance) DisplayName() string {
	if strings.TrimSpace(i.Name) == "" {
		return DefaultInstanceName
	}
	return i.Name
}

// IsEnabled treats a missing flag as enabled.
func (i Instance) IsEnabled() bool {
	return i.Enabled == nil || *i.Enabled
}

// HasCredentials reports whether both URL and key are set.
func (i Instance) HasCredentials() bool {
	return strings.TrimSpace(i.URL) != "" && strings.TrimSpace(i.APIKey) != ""
}

// Item is the normalized primary record (movie, series, artist or author).
type Item struct {
	ID        int64
	Title     string
	Year      int
	Monitored bool
	HasFile   bool
	FileID    int64
	FileCount int
	Quality   string
	SizeBytes int64
	ImdbID    string
	TmdbID    int64
	TvdbID    int64
}

// FileInfo is the normalized file attached to a movie-like item.
type FileInfo struct {
	ID           int64
	Quality      string
	Resolution   int
	SizeBytes    int64
	ReleaseGroup string
}

// QueueRecord is one entry in an app's live download queue.
type QueueRecord struct {
	ID             int64
	ForeignID      int64 // movieId, seriesId, artistId or authorId
	ChildID        int64 // episodeId, albumId or bookId
	Title          string
	Size           float64
	SizeLeft       float64
	Status         string
	TrackedStatus  string
	TimeLeft       string
	DownloadClient string
	Protocol       string
	Indexer        string
	Quality        string
	Resolution     string
	ChildTitle     string
	Messages       []string
}

// WantedKind selects the wanted list to read.
type WantedKind string

const (
	WantedMissing WantedKind = "missing"
	WantedCutoff  WantedKind = "cutoff"
)

// WantedRecord is an item an app reports as missing or below cutoff.
type WantedRecord struct {
	SearchID  int64 // id passed to the search command
	ParentID  int64 // primary item id tracked as processed
	Title     string
	Monitored bool
	AirDate   time.Time
	Season    int
	Episode   int
}
