package history

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/javi11/huntarr/internal/arrs/model"
)

const (
	OperationMissing = "missing"
	OperationUpgrade = "upgrade"

	StatusNotTracked = "Not Tracked"
	StatusSearching  = "Searching"
	StatusFound      = "Found"
	StatusDownloaded = "Downloaded"
)

const readableLayout = "2006-01-02 15:04:05"

// Fields holds the app-specific and queue attributes stored alongside an entry.
type Fields map[string]any

// Entry is one history record. Unknown keys found in a file are kept in Extra
// and written back untouched.
type Entry struct {
	DateTime         int64
	DateTimeReadable string
	ProcessedInfo    string
	ID               string
	InstanceName     string
	OperationType    string
	AppType          string
	HuntStatus       string
	Monitored        *bool
	Extra            Fields

	// HowLongAgo is only set on List results.
	HowLongAgo string
}

var coreKeys = map[string]struct{}{
	"date_time": {}, "date_time_readable": {}, "processed_info": {}, "id": {},
	"instance_name": {}, "operation_type": {}, "app_type": {}, "hunt_status": {},
	"monitored": {}, "how_long_ago": {},
}

// MarshalJSON flattens Extra next to the core keys.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+10)
	for k, v := range e.Extra {
		if _, core := coreKeys[k]; core {
			continue
		}
		out[k] = v
	}

	out["date_time"] = e.DateTime
	out["date_time_readable"] = e.DateTimeReadable
	out["processed_info"] = e.ProcessedInfo
	out["id"] = e.ID
	out["instance_name"] = e.InstanceName
	out["operation_type"] = e.OperationType
	out["app_type"] = e.AppType
	out["hunt_status"] = e.HuntStatus
	out["monitored"] = e.Monitored
	if e.HowLongAgo != "" {
		out["how_long_ago"] = e.HowLongAgo
	}

	return json.Marshal(out)
}

// UnmarshalJSON accepts numeric ids written by older versions.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Entry{
		DateTime:         toInt64(raw["date_time"]),
		DateTimeReadable: toString(raw["date_time_readable"]),
		ProcessedInfo:    toString(raw["processed_info"]),
		ID:               toString(raw["id"]),
		InstanceName:     toString(raw["instance_name"]),
		OperationType:    toString(raw["operation_type"]),
		AppType:          toString(raw["app_type"]),
		HuntStatus:       toString(raw["hunt_status"]),
	}
	if b, ok := raw["monitored"].(bool); ok {
		e.Monitored = &b
	}

	for k, v := range raw {
		if _, core := coreKeys[k]; core {
			continue
		}
		if e.Extra == nil {
			e.Extra = Fields{}
		}
		e.Extra[k] = v
	}

	return nil
}

// Field returns an extra attribute.
func (e Entry) Field(key string) (any, bool) {
	v, ok := e.Extra[key]
	return v, ok
}

func (e Entry) clone() Entry {
	c := e
	if e.Monitored != nil {
		m := *e.Monitored
		c.Monitored = &m
	}
	if e.Extra != nil {
		c.Extra = make(Fields, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// EntryData is the input of AddEntry.
type EntryData struct {
	Name          string
	InstanceName  string
	ID            string
	OperationType string
	HuntStatus    string
	Monitored     *bool
	Fields        Fields
}

var commonFields = []string{"indexer", "release_group", "in_queue", "queue_info", "progress"}

// appFields lists the optional attributes each app type stores.
var appFields = map[model.AppType][]string{
	model.Radarr:   {"quality", "size_mb", "protocol", "year", "imdb_id", "tmdb_id"},
	model.Whisparr: {"quality", "size_mb", "protocol", "year", "imdb_id", "tmdb_id"},
	model.Eros:     {"quality", "size_mb", "protocol", "year", "imdb_id", "tmdb_id"},
	model.Sonarr:   {"quality", "size_mb", "protocol", "season", "episode", "tvdb_id"},
	model.Lidarr:   {"quality", "size_mb", "artist", "album"},
	model.Readarr:  {"quality", "size_mb", "author", "book"},
	model.Swaparr:  {"size_mb", "protocol", "download_client", "reason", "strikes"},
}

func newEntry(app model.AppType, data EntryData, now time.Time) Entry {
	entry := Entry{
		DateTime:         now.Unix(),
		DateTimeReadable: now.Format(readableLayout),
		ProcessedInfo:    data.Name,
		ID:               data.ID,
		InstanceName:     data.InstanceName,
		OperationType:    data.OperationType,
		AppType:          string(app),
		HuntStatus:       data.HuntStatus,
		Monitored:        data.Monitored,
	}
	if entry.OperationType == "" {
		entry.OperationType = OperationMissing
	}
	if entry.HuntStatus == "" {
		entry.HuntStatus = StatusNotTracked
	}

	allowed := append(append([]string{}, appFields[app]...), commonFields...)
	for _, key := range allowed {
		if v, ok := data.Fields[key]; ok && v != nil {
			if entry.Extra == nil {
				entry.Extra = Fields{}
			}
			entry.Extra[key] = v
		}
	}

	return entry
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

// HowLongAgo renders the age of a unix timestamp relative to now.
func HowLongAgo(ts int64, now time.Time) string {
	elapsed := now.Unix() - ts

	switch {
	case elapsed < 1:
		return "Just now"
	case elapsed < 60:
		return plural(elapsed, "second")
	case elapsed < 3600:
		return plural(elapsed/60, "minute")
	case elapsed < 86400:
		return plural(elapsed/3600, "hour")
	case elapsed < 604800:
		return plural(elapsed/86400, "day")
	default:
		return time.Unix(ts, 0).In(now.Location()).Format("2006-01-02")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
