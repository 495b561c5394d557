package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/settings"
	"github.com/javi11/huntarr/internal/slogutil"
)

// State is the current step of an app worker.
type State string

const (
	StateIdle         State = "idle"
	StateLoadSettings State = "load_settings"
	StateConnectCheck State = "connect_check"
	StateHuntMissing  State = "hunt_missing"
	StateHuntUpgrades State = "hunt_upgrades"
	StateStalledCheck State = "stalled_check"
	StateSleeping     State = "sleeping"
	StateStopped      State = "stopped"
	StateDead         State = "dead"
)

// WorkerStatus is the externally visible state of an app worker.
type WorkerStatus struct {
	AppType       model.AppType `json:"app_type"`
	State         State         `json:"state"`
	Alive         bool          `json:"alive"`
	Cycles        int           `json:"cycles"`
	LastCycleAt   *time.Time    `json:"last_cycle_at,omitempty"`
	NextCycleTime *time.Time    `json:"next_cycle_time,omitempty"`
}

// AppWorker runs the hunting cycle of one app type.
type AppWorker struct {
	app   model.AppType
	sched *Context

	cancel context.CancelFunc
	done   chan struct{}
	reset  chan struct{}

	mu          sync.RWMutex
	state       State
	alive       bool
	cycles      int
	lastCycleAt time.Time
	nextCycleAt time.Time
}

func newAppWorker(app model.AppType, sched *Context) *AppWorker {
	return &AppWorker{
		app:   app,
		sched: sched,
		done:  make(chan struct{}),
		reset: make(chan struct{}, 1),
		state: StateIdle,
	}
}

func (w *AppWorker) start(parent context.Context) {
	ctx, cancel := context.WithCancel(slogutil.With(parent, "app_type", w.app))
	w.cancel = cancel

	w.mu.Lock()
	w.alive = true
	w.mu.Unlock()

	go w.run(ctx)
}

// stop cancels the worker and waits up to timeout. It reports whether the
// worker exited in time.
func (w *AppWorker) stop(timeout time.Duration) bool {
	if w.cancel != nil {
		w.cancel()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.done:
		return true
	case <-timer.C:
		return false
	}
}

// Reset wakes the worker from its sleep. It never blocks.
func (w *AppWorker) Reset() {
	select {
	case w.reset <- struct{}{}:
	default:
	}
}

// Alive reports whether the worker goroutine is still running.
func (w *AppWorker) Alive() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.alive
}

// Status returns a snapshot of the worker state.
func (w *AppWorker) Status() WorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := WorkerStatus{AppType: w.app, State: w.state, Alive: w.alive, Cycles: w.cycles}
	if !w.lastCycleAt.IsZero() {
		t := w.lastCycleAt
		s.LastCycleAt = &t
	}
	if w.state == StateSleeping && !w.nextCycleAt.IsZero() {
		t := w.nextCycleAt
		s.NextCycleTime = &t
	}
	return s
}

func (w *AppWorker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *AppWorker) run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "App worker crashed", "panic", p, "stack", string(debug.Stack()))
			w.mu.Lock()
			w.state = StateDead
			w.alive = false
			w.mu.Unlock()
		}
	}()

	slog.InfoContext(ctx, "App worker started")

	for {
		if ctx.Err() != nil {
			break
		}

		wait := w.cycle(ctx)
		if !w.sleep(ctx, wait) {
			break
		}
	}

	w.mu.Lock()
	w.state = StateStopped
	w.alive = false
	w.mu.Unlock()
	slog.InfoContext(ctx, "App worker stopped")
}

// cycle runs one pass over every configured instance and returns how long to sleep.
func (w *AppWorker) cycle(ctx context.Context) time.Duration {
	s := w.sched

	w.setState(StateLoadSettings)
	cfg, err := s.settings.Load(ctx, w.app)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load settings, retrying later", "error", err, "retry_in", s.opts.SettingsRetryDelay)
		return s.opts.SettingsRetryDelay
	}
	sleep := time.Duration(cfg.SleepDuration) * time.Second

	general, err := s.settings.LoadGeneral(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load general settings, using defaults", "error", err)
		general = settings.DefaultGeneralSettings()
	}
	if s.configurer != nil {
		s.configurer.Configure(time.Duration(general.APITimeout)*time.Second, general.SSLVerify)
	}

	instances, err := s.settings.ConfiguredInstances(ctx, w.app)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load instances", "error", err)
		return sleep
	}
	if len(instances) == 0 {
		slog.DebugContext(ctx, "No configured instances")
		w.finishCycle()
		return sleep
	}

	swaparr, err := s.settings.LoadSwaparr(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load swaparr settings, skipping stalled check", "error", err)
		swaparr = nil
	}

	for _, inst := range instances {
		if ctx.Err() != nil {
			return sleep
		}
		w.processInstance(slogutil.WithInstance(ctx, string(w.app), inst.DisplayName()), inst, cfg, general, swaparr)
	}

	w.finishCycle()
	slog.InfoContext(ctx, "Cycle complete", "sleep", sleep)
	return sleep
}

func (w *AppWorker) processInstance(ctx context.Context, inst model.Instance, cfg *settings.AppSettings, general *settings.GeneralSettings, swaparr *settings.SwaparrSettings) {
	s := w.sched

	w.setState(StateConnectCheck)
	client, err := s.clients.Get(w.app, inst)
	if err != nil {
		slog.WarnContext(ctx, "Instance skipped", "error", err)
		return
	}
	if err := client.CheckConnection(ctx); err != nil {
		slog.WarnContext(ctx, "Instance unreachable, skipping", "error", err)
		return
	}

	hunt := true
	if limit := general.MinimumDownloadQueueSize; limit >= 0 {
		queue, err := client.GetQueue(ctx)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "Failed to read queue size, hunting anyway", "error", err)
		case len(queue) >= limit:
			slog.InfoContext(ctx, "Download queue is full, skipping hunts", "queue_size", len(queue), "limit", limit)
			hunt = false
		}
	}

	if hunt {
		w.setState(StateHuntMissing)
		if _, err := s.hunter.HuntMissing(ctx, w.app, inst, cfg); err != nil {
			slog.ErrorContext(ctx, "Missing hunt failed", "error", err)
		}

		w.setState(StateHuntUpgrades)
		if _, err := s.hunter.HuntUpgrades(ctx, w.app, inst, cfg); err != nil {
			slog.ErrorContext(ctx, "Upgrade hunt failed", "error", err)
		}
	}

	if swaparr != nil && swaparr.Enabled {
		w.setState(StateStalledCheck)
		if _, err := s.hunter.CheckStalled(ctx, w.app, inst, swaparr); err != nil {
			slog.ErrorContext(ctx, "Stalled download check failed", "error", err)
		}
	}
}

func (w *AppWorker) finishCycle() {
	w.mu.Lock()
	w.cycles++
	w.lastCycleAt = w.sched.now()
	w.mu.Unlock()
}

// sleep waits d, a reset or cancellation. It returns false when ctx is done.
func (w *AppWorker) sleep(ctx context.Context, d time.Duration) bool {
	w.mu.Lock()
	w.state = StateSleeping
	w.nextCycleAt = w.sched.now().Add(d)
	w.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-w.reset:
		slog.InfoContext(ctx, "Cycle reset requested, waking up")
		return true
	case <-timer.C:
		return true
	}
}
