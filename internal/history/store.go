// Package history persists one JSON array of hunt records per app instance.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/spf13/afero"
)

// AllApps selects every app type in List and Clear.
const AllApps = "all"

const defaultPageSize = 20

// Store reads and writes history files under <root>/<app_type>/<instance>.json.
type Store struct {
	fs    afero.Fs
	root  string
	locks sync.Map
	now   func() time.Time
}

// NewStore creates a store rooted at root.
func NewStore(fsys afero.Fs, root string) *Store {
	return &Store{
		fs:   fsys,
		root: root,
		now:  time.Now,
	}
}

// SafeInstanceName replaces every rune that is not a letter or digit with "_".
func SafeInstanceName(instance string) string {
	if instance == "" {
		instance = model.DefaultInstanceName
	}

	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, instance)
}

// FilePath returns the history file of an instance.
func (s *Store) FilePath(app model.AppType, instance string) string {
	return filepath.Join(s.root, string(app), SafeInstanceName(instance)+".json")
}

func (s *Store) lock(path string) func() {
	l, _ := s.locks.LoadOrStore(path, &sync.Mutex{})
	mu := l.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// read loads a file. A missing file yields (nil, false, nil).
func (s *Store) read(path string) ([]Entry, bool, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", path, err)
	}

	return entries, true, nil
}

// write replaces the file through a temp file and rename.
func (s *Store) write(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	return nil
}

// AddEntry validates data and inserts it at the head of the instance file.
// It returns ErrDuplicateEntry when the id already has an entry for the operation.
func (s *Store) AddEntry(ctx context.Context, app model.AppType, data EntryData) (*Entry, error) {
	if !app.IsHistoryType() {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownAppType, app)
	}

	switch {
	case strings.TrimSpace(data.Name) == "":
		return nil, fmt.Errorf("%w: name", errs.ErrMissingField)
	case strings.TrimSpace(data.InstanceName) == "":
		return nil, fmt.Errorf("%w: instance_name", errs.ErrMissingField)
	case strings.TrimSpace(data.ID) == "":
		return nil, fmt.Errorf("%w: id", errs.ErrMissingField)
	}

	entry := newEntry(app, data, s.now())
	path := s.FilePath(app, data.InstanceName)

	unlock := s.lock(path)
	defer unlock()

	entries, _, err := s.read(path)
	if err != nil {
		slog.WarnContext(ctx, "History file unreadable, it will be overwritten", "path", path, "error", err)
		entries = nil
	}

	for _, existing := range entries {
		if existing.ID == entry.ID && existing.OperationType == entry.OperationType {
			slog.DebugContext(ctx, "Skipping duplicate history entry",
				"app_type", app, "instance", data.InstanceName, "item_id", entry.ID, "operation", entry.OperationType)
			return nil, errs.ErrDuplicateEntry
		}
	}

	entries = append([]Entry{entry}, entries...)
	if err := s.write(path, entries); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Added history entry",
		"app_type", app, "instance", data.InstanceName, "item_id", entry.ID, "hunt_status", entry.HuntStatus)

	stored := entry.clone()
	return &stored, nil
}

// UpdateStatus sets the hunt status of the first entry with itemID and merges
// extra into it. It returns false when the file or the entry does not exist.
func (s *Store) UpdateStatus(ctx context.Context, app model.AppType, instance, itemID, status string, extra Fields) (bool, error) {
	return s.UpdateStatusFor(ctx, app, instance, itemID, "", status, extra)
}

// UpdateStatusFor is UpdateStatus restricted to entries of one operation type.
// An empty operation matches any entry.
func (s *Store) UpdateStatusFor(ctx context.Context, app model.AppType, instance, itemID, operation, status string, extra Fields) (bool, error) {
	if !app.IsHistoryType() {
		return false, fmt.Errorf("%w: %s", errs.ErrUnknownAppType, app)
	}

	path := s.FilePath(app, instance)

	unlock := s.lock(path)
	defer unlock()

	entries, exists, err := s.read(path)
	if err != nil {
		slog.WarnContext(ctx, "Cannot update unreadable history file", "path", path, "error", err)
		return false, nil
	}
	if !exists {
		slog.DebugContext(ctx, "History file not found", "app_type", app, "instance", instance)
		return false, nil
	}

	idx := -1
	for i := range entries {
		if entries[i].ID == itemID && (operation == "" || entries[i].OperationType == operation) {
			idx = i
			break
		}
	}
	if idx < 0 {
		slog.DebugContext(ctx, "History entry not found",
			"app_type", app, "instance", instance, "item_id", itemID, "operation", operation)
		return false, nil
	}

	entries[idx].HuntStatus = status
	for k, v := range extra {
		if _, core := coreKeys[k]; core {
			continue
		}
		if entries[idx].Extra == nil {
			entries[idx].Extra = Fields{}
		}
		entries[idx].Extra[k] = v
	}

	if err := s.write(path, entries); err != nil {
		return false, err
	}

	return true, nil
}

// Find returns the entry for itemID and operation, or nil.
func (s *Store) Find(ctx context.Context, app model.AppType, instance, itemID, operation string) (*Entry, error) {
	entries, err := s.Entries(ctx, app, instance)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.ID == itemID && (operation == "" || e.OperationType == operation) {
			found := e.clone()
			return &found, nil
		}
	}

	return nil, nil
}

// Entries returns all entries of one instance in file order. Corrupt files read as empty.
func (s *Store) Entries(ctx context.Context, app model.AppType, instance string) ([]Entry, error) {
	if !app.IsHistoryType() {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownAppType, app)
	}

	path := s.FilePath(app, instance)

	unlock := s.lock(path)
	defer unlock()

	entries, _, err := s.read(path)
	if err != nil {
		slog.WarnContext(ctx, "Treating unreadable history file as empty", "path", path, "error", err)
		return nil, nil
	}

	return entries, nil
}

// ListQuery selects a page of history.
type ListQuery struct {
	AppType  string
	Instance string
	Search   string
	Page     int
	PageSize int
}

// Page is one page of history, newest first.
type Page struct {
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
	Items      []Entry `json:"items"`
}

func (s *Store) resolveApps(appType string) ([]model.AppType, error) {
	if appType == "" || appType == AllApps {
		return model.HistoryAppTypes(), nil
	}

	app := model.AppType(appType)
	if !app.IsHistoryType() {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownAppType, appType)
	}

	return []model.AppType{app}, nil
}

// instanceFiles lists the history files of an app.
func (s *Store) instanceFiles(app model.AppType) ([]string, error) {
	dir := filepath.Join(s.root, string(app))

	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var files []string
	for _, info := range infos {
		if info.IsDir() || filepath.Ext(info.Name()) != ".json" {
			continue
		}
		files = append(files, filepath.Join(dir, info.Name()))
	}

	return files, nil
}

// List aggregates, filters, sorts and paginates entries.
func (s *Store) List(ctx context.Context, q ListQuery) (*Page, error) {
	apps, err := s.resolveApps(q.AppType)
	if err != nil {
		return nil, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}

	var all []Entry
	for _, app := range apps {
		var files []string
		if q.Instance != "" {
			files = []string{s.FilePath(app, q.Instance)}
		} else {
			files, err = s.instanceFiles(app)
			if err != nil {
				slog.WarnContext(ctx, "Skipping unreadable history directory", "app_type", app, "error", err)
				continue
			}
		}

		for _, path := range files {
			unlock := s.lock(path)
			entries, _, err := s.read(path)
			unlock()
			if err != nil {
				slog.WarnContext(ctx, "Skipping unreadable history file", "path", path, "error", err)
				continue
			}
			all = append(all, entries...)
		}
	}

	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		filtered := all[:0]
		for _, e := range all {
			if strings.Contains(strings.ToLower(e.ProcessedInfo), search) ||
				strings.Contains(strings.ToLower(e.ID), search) ||
				strings.Contains(strings.ToLower(e.InstanceName), search) {
				filtered = append(filtered, e)
			}
		}
		all = filtered
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].DateTime > all[j].DateTime
	})

	page := &Page{
		Total:      len(all),
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int(math.Ceil(float64(len(all)) / float64(q.PageSize))),
		Items:      []Entry{},
	}

	start := (q.Page - 1) * q.PageSize
	if start >= len(all) {
		return page, nil
	}
	end := min(start+q.PageSize, len(all))

	now := s.now()
	for _, e := range all[start:end] {
		item := e.clone()
		item.HowLongAgo = HowLongAgo(e.DateTime, now)
		page.Items = append(page.Items, item)
	}

	return page, nil
}

// Clear empties history files. An empty or "all" appType clears every app;
// an empty instance clears every instance of the app.
func (s *Store) Clear(ctx context.Context, appType, instance string) error {
	apps, err := s.resolveApps(appType)
	if err != nil {
		return err
	}

	for _, app := range apps {
		var files []string
		if instance != "" {
			path := s.FilePath(app, instance)
			if len(apps) > 1 {
				if ok, _ := afero.Exists(s.fs, path); !ok {
					continue
				}
			}
			files = []string{path}
		} else {
			files, err = s.instanceFiles(app)
			if err != nil {
				return err
			}
		}

		for _, path := range files {
			unlock := s.lock(path)
			err := s.write(path, nil)
			unlock()
			if err != nil {
				return err
			}
		}

		slog.InfoContext(ctx, "Cleared history", "app_type", app, "instance", instance, "files", len(files))
	}

	return nil
}

// RenameInstance moves the entries of oldName into newName's file and
// rewrites their instance_name.
func (s *Store) RenameInstance(ctx context.Context, app model.AppType, oldName, newName string) error {
	if !app.IsHistoryType() {
		return fmt.Errorf("%w: %s", errs.ErrUnknownAppType, app)
	}

	oldPath := s.FilePath(app, oldName)
	newPath := s.FilePath(app, newName)
	if oldPath == newPath {
		return nil
	}

	first, second := oldPath, newPath
	if second < first {
		first, second = second, first
	}
	unlockFirst := s.lock(first)
	defer unlockFirst()
	unlockSecond := s.lock(second)
	defer unlockSecond()

	moved, exists, err := s.read(oldPath)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	current, _, err := s.read(newPath)
	if err != nil {
		slog.WarnContext(ctx, "Overwriting unreadable history file", "path", newPath, "error", err)
		current = nil
	}

	for i := range moved {
		moved[i].InstanceName = newName
	}

	merged := append(current, moved...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DateTime > merged[j].DateTime
	})

	if err := s.write(newPath, merged); err != nil {
		return err
	}

	if err := s.fs.Remove(oldPath); err != nil {
		return fmt.Errorf("remove %s: %w", oldPath, err)
	}

	slog.InfoContext(ctx, "Renamed history instance", "app_type", app, "from", oldName, "to", newName, "entries", len(moved))
	return nil
}

// Recent returns the newest entries across all apps.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	page, err := s.List(ctx, ListQuery{AppType: AllApps, PageSize: limit})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
