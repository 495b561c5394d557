// Package api serves the JSON API of the daemon on fiber.
package api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fLogger "github.com/gofiber/fiber/v2/middleware/logger"
	fRecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/javi11/huntarr/internal/arrs/model"
	"github.com/javi11/huntarr/internal/auth"
	"github.com/javi11/huntarr/internal/history"
	"github.com/javi11/huntarr/internal/hunting"
	"github.com/javi11/huntarr/internal/scheduler"
	"github.com/javi11/huntarr/internal/settings"
	"github.com/javi11/huntarr/internal/state"
)

// HistoryStore is the history view used by the handlers.
type HistoryStore interface {
	List(ctx context.Context, q history.ListQuery) (*history.Page, error)
	Clear(ctx context.Context, appType, instance string) error
}

// SettingsStore reads and writes settings documents.
type SettingsStore interface {
	Document(ctx context.Context, key string) (any, error)
	SaveDocument(ctx context.Context, key string, body []byte) (any, error)
	LoadGeneral(ctx context.Context) (*settings.GeneralSettings, error)
}

// StateTracker exposes processed-id summaries and resets.
type StateTracker interface {
	Summary(ctx context.Context, app model.AppType, instance string) (*state.Summary, error)
	Reset(ctx context.Context, app model.AppType) error
}

// Scheduler reports worker status and accepts cycle resets.
type Scheduler interface {
	Status() []scheduler.WorkerStatus
	TriggerReset(ctx context.Context, app model.AppType) error
}

// StatsService exposes the hunt counters.
type StatsService interface {
	Snapshot(ctx context.Context) (*hunting.Snapshot, error)
	Reset(ctx context.Context, app model.AppType) error
}

// PlexAPI is the plex.tv PIN flow.
type PlexAPI interface {
	auth.PlexAccountFetcher
	CreatePIN(ctx context.Context) (*auth.PlexPIN, error)
	CheckPIN(ctx context.Context, id int64) (string, error)
}

// ClientConfigurer receives timeout and TLS changes of the general settings.
type ClientConfigurer interface {
	Configure(timeout time.Duration, verifySSL bool)
}

// LevelUpdater receives log level changes of the general settings.
type LevelUpdater interface {
	UpdateLevel(level string) error
}

// Config represents API server configuration
type Config struct {
	BasePath string
	Version  string
	Debug    bool
}

// Deps are the services behind the handlers. Scheduler, Stats, Configurer
// and Logging are optional.
type Deps struct {
	Auth       *auth.Service
	Plex       PlexAPI
	History    HistoryStore
	Settings   SettingsStore
	State      StateTracker
	Scheduler  Scheduler
	Stats      StatsService
	Configurer ClientConfigurer
	Logging    LevelUpdater
}

// Server represents the API server
type Server struct {
	config    Config
	deps      Deps
	startTime time.Time
}

// NewServer creates the API server.
func NewServer(config Config, deps Deps) *Server {
	config.BasePath = strings.TrimRight(config.BasePath, "/")

	return &Server{
		config:    config,
		deps:      deps,
		startTime: time.Now(),
	}
}

// NewApp creates the fiber application with the shared error handler and
// request logging.
func NewApp(debug bool) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				slog.Error("Fiber error", "path", c.Path(), "method", c.Method(), "error", err)
			}
			return RespondError(c, code, errorCodeFor(code), err.Error(), "")
		},
	})

	app.Use(fRecover.New())
	if debug {
		app.Use(fLogger.New())
	}

	return app
}

func errorCodeFor(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return ErrCodeNotFound
	case fiber.StatusBadRequest:
		return ErrCodeBadRequest
	case fiber.StatusUnauthorized:
		return ErrCodeUnauthorized
	case fiber.StatusMethodNotAllowed:
		return ErrCodeBadRequest
	}
	return ErrCodeInternalServer
}

// SetupRoutes registers the auth middleware and every route on app.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Use(auth.Middleware(s.deps.Auth, s.deps.Settings, s.config.BasePath))

	root := app.Group(s.config.BasePath)
	root.Get("/login", s.handleLoginPage)
	root.Get("/setup", s.handleSetupPage)

	r := root.Group("/api")

	r.Get("/health", s.handleHealth)
	r.Get("/setup/status", s.handleSetupStatus)
	r.Post("/setup", s.handleSetup)
	r.Post("/login", s.handleLogin)
	r.Post("/auth/plex/pin", s.handlePlexPIN)
	r.Get("/auth/plex/check/:id", s.handlePlexCheck)
	r.Post("/auth/plex/login", s.handlePlexLogin)

	r.Post("/logout", s.handleLogout)
	r.Get("/user/info", s.handleUserInfo)
	r.Post("/user/change-password", s.handleChangePassword)
	r.Post("/user/change-username", s.handleChangeUsername)
	r.Post("/user/2fa/setup", s.handle2FASetup)
	r.Post("/user/2fa/verify", s.handle2FAVerify)
	r.Post("/user/2fa/disable", s.handle2FADisable)
	r.Post("/auth/plex/link", s.handlePlexLink)
	r.Post("/auth/plex/unlink", s.handlePlexUnlink)
	r.Get("/auth/plex/status", s.handlePlexStatus)

	r.Get("/history/:app_type", s.handleListHistory)
	r.Delete("/history/:app_type", s.handleClearHistory)

	r.Get("/settings/:app", s.handleGetSettings)
	r.Put("/settings/:app", s.handleUpdateSettings)

	r.Get("/state/:app/:instance", s.handleStateSummary)
	r.Post("/state/reset/:app", s.handleStateReset)

	r.Get("/scheduler/status", s.handleSchedulerStatus)
	r.Post("/cycle/reset/:app", s.handleCycleReset)

	r.Get("/stats", s.handleGetStats)
	r.Post("/stats/reset", s.handleResetStats)
}
