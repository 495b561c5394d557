// Package scheduler runs one hunting worker per configured app type, restarts
// workers that die and wakes sleeping workers on reset requests.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/javi11/huntarr/internal/arrs/clients"
	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/database"
	"github.com/javi11/huntarr/internal/hunting"
	"github.com/javi11/huntarr/internal/settings"
)

// SettingsSource is the cached settings view the workers read every cycle.
type SettingsSource interface {
	Load(ctx context.Context, app model.AppType) (*settings.AppSettings, error)
	LoadGeneral(ctx context.Context) (*settings.GeneralSettings, error)
	LoadSwaparr(ctx context.Context) (*settings.SwaparrSettings, error)
	ConfiguredInstances(ctx context.Context, app model.AppType) ([]model.Instance, error)
	ConfiguredApps(ctx context.Context) ([]model.AppType, error)
}

// Hunter runs the searches and stalled checks of one instance.
type Hunter interface {
	HuntMissing(ctx context.Context, app model.AppType, inst model.Instance, cfg *settings.AppSettings) (hunting.HuntResult, error)
	HuntUpgrades(ctx context.Context, app model.AppType, inst model.Instance, cfg *settings.AppSettings) (hunting.HuntResult, error)
	CheckStalled(ctx context.Context, app model.AppType, inst model.Instance, cfg *settings.SwaparrSettings) (hunting.StalledResult, error)
}

// ResetStore persists cycle reset requests.
type ResetStore interface {
	Create(ctx context.Context, appType string) (string, error)
	Pending(ctx context.Context) ([]database.ResetRequest, error)
	MarkProcessed(ctx context.Context, appType string) error
}

// ClientConfigurer receives the vendor timeout and TLS settings.
type ClientConfigurer interface {
	Configure(timeout time.Duration, verifySSL bool)
}

// Coordinator is a long running loop started next to the workers.
type Coordinator interface {
	Run(ctx context.Context)
}

// Options tune the scheduler.
type Options struct {
	SupervisorInterval time.Duration
	ShutdownTimeout    time.Duration
	SettingsRetryDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SupervisorInterval <= 0 {
		o.SupervisorInterval = 15 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	if o.SettingsRetryDelay <= 0 {
		o.SettingsRetryDelay = time.Minute
	}
}

// Deps are the collaborators of the scheduler.
type Deps struct {
	Settings    SettingsSource
	Clients     clients.Provider
	Hunter      Hunter
	Resets      ResetStore
	Configurer  ClientConfigurer
	Coordinator Coordinator
}

// Context owns the cancellation, the worker registry and the settings cache
// shared by every worker.
type Context struct {
	settings    SettingsSource
	clients     clients.Provider
	hunter      Hunter
	resets      ResetStore
	configurer  ClientConfigurer
	coordinator Coordinator
	opts        Options
	now         func() time.Time

	resetMu sync.Mutex

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	workers map[model.AppType]*AppWorker
	bg      sync.WaitGroup
	started bool
}

// New creates a scheduler. Call Start to launch it.
func New(deps Deps, opts Options) *Context {
	opts.setDefaults()

	return &Context{
		settings:    deps.Settings,
		clients:     deps.Clients,
		hunter:      deps.Hunter,
		resets:      deps.Resets,
		configurer:  deps.Configurer,
		coordinator: deps.Coordinator,
		opts:        opts,
		now:         time.Now,
		workers:     make(map[model.AppType]*AppWorker),
	}
}

// Start launches the coordinator, the workers of every configured app and the supervisor.
func (s *Context) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.mu.Unlock()

	if s.coordinator != nil {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			s.coordinator.Run(s.ctx)
		}()
	}

	s.supervise(s.ctx)

	s.bg.Add(1)
	go s.supervisorLoop()

	slog.InfoContext(ctx, "Scheduler started", "supervisor_interval", s.opts.SupervisorInterval)
	return nil
}

func (s *Context) supervisorLoop() {
	defer s.bg.Done()

	ticker := time.NewTicker(s.opts.SupervisorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.supervise(s.ctx)
		}
	}
}

// supervise starts workers for configured apps, restarts dead ones, stops
// workers of apps no longer configured and delivers pending resets.
func (s *Context) supervise(ctx context.Context) {
	apps, err := s.settings.ConfiguredApps(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read configured apps", "error", err)
		return
	}

	var stale []*AppWorker

	s.mu.Lock()
	for app, w := range s.workers {
		if slices.Contains(apps, app) {
			continue
		}
		slog.InfoContext(ctx, "App no longer configured, stopping worker", "app_type", app)
		stale = append(stale, w)
		delete(s.workers, app)
	}

	for _, app := range apps {
		if old, ok := s.workers[app]; ok {
			if old.Alive() {
				continue
			}
			slog.WarnContext(ctx, "Worker is dead, restarting", "app_type", app)
			old.cancel()
		}

		w := newAppWorker(app, s)
		s.workers[app] = w
		w.start(ctx)
	}
	s.mu.Unlock()

	for _, w := range stale {
		if !w.stop(s.opts.ShutdownTimeout) {
			slog.WarnContext(ctx, "Worker did not stop in time", "app_type", w.app)
		}
	}

	s.processResets(ctx)
}

// TriggerReset records a reset request for app and wakes its worker.
func (s *Context) TriggerReset(ctx context.Context, app model.AppType) error {
	if s.resets != nil {
		if _, err := s.resets.Create(ctx, string(app)); err != nil {
			return fmt.Errorf("record reset request: %w", err)
		}
		s.processResets(ctx)
		return nil
	}

	s.wake(ctx, app)
	return nil
}

func (s *Context) processResets(ctx context.Context) {
	if s.resets == nil {
		return
	}

	s.resetMu.Lock()
	defer s.resetMu.Unlock()

	pending, err := s.resets.Pending(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read reset requests", "error", err)
		return
	}

	handled := make(map[string]bool)
	for _, req := range pending {
		if handled[req.AppType] {
			continue
		}
		handled[req.AppType] = true

		s.wake(ctx, model.AppType(req.AppType))
		if err := s.resets.MarkProcessed(ctx, req.AppType); err != nil {
			slog.ErrorContext(ctx, "Failed to mark reset request processed", "app_type", req.AppType, "error", err)
		}
	}
}

func (s *Context) wake(ctx context.Context, app model.AppType) {
	s.mu.Lock()
	w, ok := s.workers[app]
	s.mu.Unlock()

	if !ok {
		slog.DebugContext(ctx, "Reset requested for app without a worker", "app_type", app)
		return
	}

	w.Reset()
	slog.InfoContext(ctx, "Cycle reset delivered", "app_type", app)
}

// Worker returns the worker of app.
func (s *Context) Worker(app model.AppType) (*AppWorker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[app]
	return w, ok
}

// Status returns every worker state in hunting order.
func (s *Context) Status() []WorkerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WorkerStatus, 0, len(s.workers))
	for _, app := range model.AllAppTypes() {
		if w, ok := s.workers[app]; ok {
			out = append(out, w.Status())
		}
	}
	return out
}

// Shutdown cancels every loop and waits up to the shutdown timeout for each worker.
func (s *Context) Shutdown(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	workers := make(map[model.AppType]*AppWorker, len(s.workers))
	for app, w := range s.workers {
		workers[app] = w
	}
	s.mu.Unlock()

	for app, w := range workers {
		if !w.stop(s.opts.ShutdownTimeout) {
			slog.WarnContext(ctx, "Worker did not stop within the shutdown timeout", "app_type", app, "timeout", s.opts.ShutdownTimeout)
		}
	}

	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.opts.ShutdownTimeout):
		slog.WarnContext(ctx, "Coordinator did not stop within the shutdown timeout", "timeout", s.opts.ShutdownTimeout)
	}

	slog.InfoContext(ctx, "Scheduler stopped")
}
