package hunting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/javi11/huntarr/internal/history"
	"github.com/javi11/huntarr/internal/settings"
)

const (
	StatusRemovedStalled = "Removed (stalled)"
	StatusWouldRemove    = "Would remove (dry run)"
)

// StalledResult summarizes one stalled check of an instance.
type StalledResult struct {
	Checked int
	Struck  int
	Removed int
}

// CheckStalled strikes queue records that look stalled and removes the ones
// that reach MaxStrikes. Strikes of records no longer queued are dropped.
func (m *Manager) CheckStalled(ctx context.Context, app model.AppType, inst model.Instance, cfg *settings.SwaparrSettings) (StalledResult, error) {
	var res StalledResult
	if cfg == nil || !cfg.Enabled {
		return res, nil
	}

	name := inst.DisplayName()
	client, err := m.deps.Clients.Get(app, inst)
	if err != nil {
		return res, err
	}

	queue, err := client.GetQueue(ctx)
	if err != nil {
		return res, fmt.Errorf("read queue: %w", err)
	}

	maxTime, err := time.ParseDuration(cfg.MaxDownloadTime)
	if err != nil {
		slog.WarnContext(ctx, "Invalid max_download_time, ignoring it", "value", cfg.MaxDownloadTime, "error", err)
		maxTime = 0
	}

	var sizeLimit uint64
	if cfg.IgnoreAboveSize != "" {
		sizeLimit, err = humanize.ParseBytes(cfg.IgnoreAboveSize)
		if err != nil {
			slog.WarnContext(ctx, "Invalid ignore_above_size, ignoring it", "value", cfg.IgnoreAboveSize, "error", err)
			sizeLimit = 0
		}
	}

	maxStrikes := max(cfg.MaxStrikes, 1)
	prefix := string(app) + "|" + name + "|"
	seen := make(map[string]struct{}, len(queue))

	for _, rec := range queue {
		key := prefix + strconv.FormatInt(rec.ID, 10)
		seen[key] = struct{}{}
		res.Checked++

		if sizeLimit > 0 && rec.Size > float64(sizeLimit) {
			continue
		}

		reason, stalled := stalledReason(rec, maxTime)
		if !stalled {
			m.clearStrike(key)
			continue
		}

		strikes := m.addStrike(key)
		res.Struck++
		slog.InfoContext(ctx, "Download struck", "title", rec.Title, "strikes", strikes, "max_strikes", maxStrikes, "reason", reason)

		if strikes < maxStrikes {
			continue
		}

		status := StatusWouldRemove
		if !cfg.DryRun {
			if err := client.RemoveFromQueue(ctx, rec.ID, cfg.RemoveFromClient, true); err != nil {
				slog.ErrorContext(ctx, "Failed to remove stalled download", "title", rec.Title, "error", err)
				continue
			}
			status = StatusRemovedStalled
			res.Removed++
			if m.deps.Queues != nil {
				m.deps.Queues.Invalidate(app, name)
			}
		}
		m.clearStrike(key)

		m.recordRemoval(ctx, app, name, rec, status, reason, strikes)
	}

	m.pruneStrikes(prefix, seen)
	return res, nil
}

func (m *Manager) recordRemoval(ctx context.Context, app model.AppType, instance string, rec model.QueueRecord, status, reason string, strikes int) {
	data := history.EntryData{
		Name:          rec.Title,
		InstanceName:  instance,
		ID:            strconv.FormatInt(rec.ID, 10),
		OperationType: string(app),
		HuntStatus:    status,
		Fields: history.Fields{
			"size_mb":         sizeMB(int64(rec.Size)),
			"protocol":        rec.Protocol,
			"download_client": rec.DownloadClient,
			"reason":          reason,
			"strikes":         strikes,
		},
	}
	if _, err := m.deps.History.AddEntry(ctx, model.Swaparr, data); err != nil && !errors.Is(err, errs.ErrDuplicateEntry) {
		slog.WarnContext(ctx, "Failed to record stalled removal", "title", rec.Title, "error", err)
	}
}

func stalledReason(rec model.QueueRecord, maxTime time.Duration) (string, bool) {
	status := strings.ToLower(rec.Status)
	tracked := strings.ToLower(rec.TrackedStatus)

	switch {
	case status == "completed" || status == "importpending" || status == "importing":
		return "", false
	case status == "stalled" || tracked == "warning":
		return "stalled", true
	case status == "queued" || status == "paused" || status == "delay":
		return "", false
	case rec.TimeLeft == "" && rec.SizeLeft > 0:
		return "no eta", true
	}

	if maxTime <= 0 {
		return "", false
	}
	left, ok := ParseTimeLeft(rec.TimeLeft)
	if ok && left > maxTime {
		return "eta exceeds max download time", true
	}
	return "", false
}

// ParseTimeLeft parses the Arr "[d.]hh:mm:ss" time left format.
func ParseTimeLeft(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	var days int
	if i := strings.Index(s, "."); i >= 0 && i < strings.Index(s, ":") {
		d, err := strconv.Atoi(s[:i])
		if err != nil {
			return 0, false
		}
		days, s = d, s[i+1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}

	var hms [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		hms[i] = n
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hms[0])*time.Hour +
		time.Duration(hms[1])*time.Minute +
		time.Duration(hms[2])*time.Second
	return d, true
}

func (m *Manager) addStrike(key string) int {
	m.strikesMu.Lock()
	defer m.strikesMu.Unlock()
	m.strikes[key]++
	return m.strikes[key]
}

func (m *Manager) clearStrike(key string) {
	m.strikesMu.Lock()
	delete(m.strikes, key)
	m.strikesMu.Unlock()
}

func (m *Manager) pruneStrikes(prefix string, seen map[string]struct{}) {
	m.strikesMu.Lock()
	defer m.strikesMu.Unlock()
	for key := range m.strikes {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if _, ok := seen[key]; !ok {
			delete(m.strikes, key)
		}
	}
}

// Strikes returns the current strike count of a queue record.
func (m *Manager) Strikes(app model.AppType, instance string, queueID int64) int {
	m.strikesMu.Lock()
	defer m.strikesMu.Unlock()
	return m.strikes[string(app)+"|"+instance+"|"+strconv.FormatInt(queueID, 10)]
}
