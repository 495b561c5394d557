package hunting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/javi11/huntarr/internal/arrs/clients"
	"github.com/javi11/huntarr/internal/arrs/data"
	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/javi11/huntarr/internal/history"
	"github.com/javi11/huntarr/internal/reconcile"
	"github.com/javi11/huntarr/internal/slogutil"
)

// InstanceLister returns the usable instances of an app in configured order.
type InstanceLister interface {
	ConfiguredInstances(ctx context.Context, app model.AppType) ([]model.Instance, error)
}

// HistoryStore is the subset of the history store used while hunting.
type HistoryStore interface {
	AddEntry(ctx context.Context, app model.AppType, data history.EntryData) (*history.Entry, error)
	UpdateStatusFor(ctx context.Context, app model.AppType, instance, itemID, operation, status string, extra history.Fields) (bool, error)
	Find(ctx context.Context, app model.AppType, instance, itemID, operation string) (*history.Entry, error)
}

// StateTracker records which media ids were handled.
type StateTracker interface {
	CandidateSource
	AddProcessedID(ctx context.Context, app model.AppType, instance, mediaID string) error
	IsProcessed(ctx context.Context, app model.AppType, instance, mediaID string) (bool, error)
	AddSearchedID(ctx context.Context, app model.AppType, instance, searchID string) error
	IsSearched(ctx context.Context, app model.AppType, instance, searchID string) (bool, error)
}

// QueueReconciler refreshes searching entries from the live queues.
type QueueReconciler interface {
	Run(ctx context.Context) reconcile.Result
}

// Deps are the collaborators of the Manager.
type Deps struct {
	Instances  InstanceLister
	Clients    clients.Provider
	History    HistoryStore
	State      StateTracker
	Stats      *Stats
	Queues     *data.QueueCache
	Reconciler QueueReconciler
}

// TrackedItem is the last classification of an item, kept for the UI.
type TrackedItem struct {
	AppType    model.AppType `json:"app_type"`
	Instance   string        `json:"instance_name"`
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	HuntStatus string        `json:"hunt_status"`
	Monitored  bool          `json:"monitored"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

const (
	trackedSize = 5000
	trackedTTL  = 24 * time.Hour
)

// Manager owns the processor registry and runs hunting cycles.
type Manager struct {
	deps     Deps
	registry Registry
	tracked  *expirable.LRU[string, TrackedItem]
	now      func() time.Time

	mu                  sync.Mutex
	coordinatorInterval time.Duration
	queueCheckInterval  time.Duration
	lastQueueCheck      time.Time
	wake                chan struct{}

	strikesMu sync.Mutex
	strikes   map[string]int
}

// NewManager creates a hunting manager.
func NewManager(deps Deps, coordinatorInterval, queueCheckInterval time.Duration) *Manager {
	return &Manager{
		deps:                deps,
		registry:            NewRegistry(deps.State),
		tracked:             expirable.NewLRU[string, TrackedItem](trackedSize, nil, trackedTTL),
		now:                 time.Now,
		coordinatorInterval: coordinatorInterval,
		queueCheckInterval:  queueCheckInterval,
		wake:                make(chan struct{}, 1),
		strikes:             make(map[string]int),
	}
}

// Registry returns the processor set.
func (m *Manager) Registry() Registry {
	return m.registry
}

// Tracked returns the tracked items of one app, or of every app when app is empty.
func (m *Manager) Tracked(app model.AppType) []TrackedItem {
	var out []TrackedItem
	for _, item := range m.tracked.Values() {
		if app == "" || item.AppType == app {
			out = append(out, item)
		}
	}
	return out
}

// UpdateIntervals changes the coordinator cadences and wakes the loop.
func (m *Manager) UpdateIntervals(coordinator, queueCheck time.Duration) {
	m.mu.Lock()
	if coordinator > 0 {
		m.coordinatorInterval = coordinator
	}
	if queueCheck > 0 {
		m.queueCheckInterval = queueCheck
	}
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) intervals() (time.Duration, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coordinatorInterval, m.queueCheckInterval
}

func (m *Manager) fetchQueue(ctx context.Context, app model.AppType, instance string, client clients.Client) ([]model.QueueRecord, error) {
	if m.deps.Queues == nil {
		return client.GetQueue(ctx)
	}
	return m.deps.Queues.Get(ctx, app, instance, client.GetQueue)
}

// ProcessInstance classifies every processed id of inst and records the
// result in history. Per-item failures are logged and skipped.
func (m *Manager) ProcessInstance(ctx context.Context, proc Processor, inst model.Instance) error {
	app := proc.AppType()
	name := inst.DisplayName()

	if !inst.HasCredentials() {
		slog.WarnContext(ctx, "Missing API URL or key for instance, skipping")
		return nil
	}

	ids, err := proc.FetchCandidates(ctx, inst)
	if err != nil {
		return fmt.Errorf("read processed ids: %w", err)
	}
	slog.InfoContext(ctx, "Checking processed ids", "count", len(ids))
	if len(ids) == 0 {
		return nil
	}

	client, err := m.deps.Clients.Get(app, inst)
	if err != nil {
		return err
	}

	queue, err := m.fetchQueue(ctx, app, name, client)
	if err != nil {
		slog.WarnContext(ctx, "Error fetching download queue, continuing with an empty queue", "error", err)
		queue = nil
	}

	for i, id := range ids {
		if ctx.Err() != nil {
			return nil
		}

		if err := m.processItem(ctx, proc, client, inst, id, queue); err != nil {
			slog.WarnContext(ctx, "Failed to process item", "item_id", id, "position", i+1, "total", len(ids), "error", err)
		}
	}

	return nil
}

func (m *Manager) processItem(ctx context.Context, proc Processor, client clients.Client, inst model.Instance, id string, queue []model.QueueRecord) error {
	app := proc.AppType()
	name := inst.DisplayName()

	itemID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid media id %q: %w", id, err)
	}

	item, err := client.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	var file *model.FileInfo
	if app.MovieLike() && item.HasFile && item.FileID > 0 {
		file, err = client.GetFile(ctx, item.FileID)
		if err != nil && !errors.Is(err, errs.ErrUnsupported) {
			slog.DebugContext(ctx, "Could not load item file", "item_id", id, "error", err)
		}
	}

	status := proc.ClassifyStatus(item, queue)

	existing, err := m.deps.History.Find(ctx, app, name, id, history.OperationMissing)
	if err != nil {
		return err
	}

	switch {
	case existing == nil:
		entry := proc.BuildEntry(inst, item, file, queue, status, history.OperationMissing)
		if _, err := m.deps.History.AddEntry(ctx, app, entry); err != nil && !errors.Is(err, errs.ErrDuplicateEntry) {
			return err
		}
		slog.InfoContext(ctx, "Created history entry", "item_id", id, "hunt_status", status)
	case existing.HuntStatus == status:
		slog.DebugContext(ctx, "Status unchanged", "item_id", id, "hunt_status", status)
	case status == history.StatusFound && strings.HasPrefix(existing.HuntStatus, "Downloading ("):
		// The reconciler owns download progress.
	default:
		if _, err := m.deps.History.UpdateStatusFor(ctx, app, name, id, history.OperationMissing, status, nil); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Updated hunt status", "item_id", id, "from", existing.HuntStatus, "to", status)
	}

	m.tracked.Add(string(app)+"|"+name+"|"+id, TrackedItem{
		AppType:    app,
		Instance:   name,
		ID:         id,
		Title:      item.Title,
		HuntStatus: status,
		Monitored:  item.Monitored,
		UpdatedAt:  m.now(),
	})

	return nil
}

// RunHuntCycle processes every app type. A failing app is logged and the
// cycle moves on to the next one.
func (m *Manager) RunHuntCycle(ctx context.Context) {
	for _, app := range model.AllAppTypes() {
		if ctx.Err() != nil {
			return
		}
		m.huntApp(ctx, app)
	}
}

func (m *Manager) huntApp(ctx context.Context, app model.AppType) {
	ctx = slogutil.With(ctx, "app_type", app)

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "Panic in hunting cycle", "panic", p, "stack", string(debug.Stack()))
		}
	}()

	proc, ok := m.registry[app]
	if !ok {
		return
	}

	instances, err := m.deps.Instances.ConfiguredInstances(ctx, app)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load instances", "error", err)
		return
	}
	if len(instances) == 0 {
		return
	}

	slog.InfoContext(ctx, "Hunting cycle started")
	for _, inst := range instances {
		if ctx.Err() != nil {
			return
		}
		instCtx := slogutil.WithInstance(ctx, string(app), inst.DisplayName())
		if err := m.ProcessInstance(instCtx, proc, inst); err != nil {
			slog.ErrorContext(instCtx, "Error processing instance", "error", err)
		}
	}
	slog.InfoContext(ctx, "Hunting cycle completed")
}

// Run is the coordinator loop: hunt every app, reconcile queues when the
// queue check interval has elapsed, then wait for the next cycle.
func (m *Manager) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Hunting coordinator started")
	defer slog.InfoContext(ctx, "Hunting coordinator stopped")

	for {
		m.RunHuntCycle(ctx)
		if ctx.Err() != nil {
			return
		}

		coordinator, queueCheck := m.intervals()

		m.mu.Lock()
		due := m.deps.Reconciler != nil && m.now().Sub(m.lastQueueCheck) >= queueCheck
		if due {
			m.lastQueueCheck = m.now()
		}
		m.mu.Unlock()

		if due {
			m.deps.Reconciler.Run(ctx)
		}

		timer := time.NewTimer(coordinator)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}
