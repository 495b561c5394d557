package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/javi11/huntarr/internal/api"
	"github.com/javi11/huntarr/internal/arrs/clients"
	"github.com/javi11/huntarr/internal/arrs/data"
	"github.com/javi11/huntarr/internal/auth"
	"github.com/javi11/huntarr/internal/config"
	"github.com/javi11/huntarr/internal/database"
	"github.com/javi11/huntarr/internal/history"
	"github.com/javi11/huntarr/internal/hunting"
	"github.com/javi11/huntarr/internal/pathutil"
	"github.com/javi11/huntarr/internal/reconcile"
	"github.com/javi11/huntarr/internal/scheduler"
	"github.com/javi11/huntarr/internal/settings"
	"github.com/javi11/huntarr/internal/slogutil"
	"github.com/javi11/huntarr/internal/state"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the hunting daemon and the web API",
		Long:  `Start the per-app hunting workers, the queue reconciler and the web API using configuration from YAML file.`,
		RunE:  runServe,
	}

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		slog.Default().Error("failed to load config", "err", err)
		return err
	}

	logger, leveler := slogutil.SetupLogRotation(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("Starting Huntarr",
		"version", appVersion,
		"log_file", cfg.Log.File,
		"log_level", cfg.GetLogLevel(),
		"config_dir", cfg.Paths.ConfigDir)

	configManager := config.NewManager(cfg, configFile)
	registry := config.NewComponentRegistry(logger)
	registry.RegisterLogging(leveler)

	osFs := afero.NewOsFs()
	for _, dir := range []string{cfg.Paths.ConfigDir, cfg.HistoryDir()} {
		if err := pathutil.CheckDirectoryWritable(osFs, dir); err != nil {
			return err
		}
	}
	if err := pathutil.CheckFileDirectoryWritable(osFs, cfg.Database.Path, "database"); err != nil {
		return err
	}

	db, err := database.NewDB(database.Config{DatabasePath: cfg.Database.Path})
	if err != nil {
		logger.Error("failed to open database", "err", err)
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settingsStore := settings.NewStore(db.Settings, cfg.Hunting.SettingsCacheTTL)

	// The runtime log level lives in the general settings once saved.
	general, err := settingsStore.LoadGeneral(ctx)
	if err != nil {
		logger.Warn("Failed to load general settings, using defaults", "err", err)
		general = settings.DefaultGeneralSettings()
	}
	if general.LogLevel != "" {
		_ = leveler.UpdateLevel(general.LogLevel)
	}

	historyStore := history.NewStore(osFs, cfg.HistoryDir())
	tracker := state.New(db.State, func(ctx context.Context) int {
		g, err := settingsStore.LoadGeneral(ctx)
		if err != nil {
			return 0
		}
		return g.StatefulManagementHours
	})

	clientManager := clients.NewManager(time.Duration(general.APITimeout) * time.Second)
	clientManager.Configure(time.Duration(general.APITimeout)*time.Second, general.SSLVerify)

	queues := data.NewQueueCache(0)
	reconciler := reconcile.New(settingsStore, clientManager, historyStore, queues)
	stats := hunting.NewStats(db.Stats)

	huntingManager := hunting.NewManager(hunting.Deps{
		Instances:  settingsStore,
		Clients:    clientManager,
		History:    historyStore,
		State:      tracker,
		Stats:      stats,
		Queues:     queues,
		Reconciler: reconciler,
	}, cfg.Hunting.CoordinatorInterval, cfg.Hunting.QueueCheckInterval)
	registry.RegisterHunting(huntingManager)

	configManager.OnConfigChange(registry.ApplyUpdates)

	jobs := cron.New()
	if err := tracker.Register(ctx, jobs); err != nil {
		return err
	}
	if err := stats.Register(ctx, jobs); err != nil {
		return err
	}
	jobs.Start()
	defer jobs.Stop()

	sched := scheduler.New(scheduler.Deps{
		Settings:    settingsStore,
		Clients:     clientManager,
		Hunter:      huntingManager,
		Resets:      db.Resets,
		Configurer:  clientManager,
		Coordinator: huntingManager,
	}, scheduler.Options{
		SupervisorInterval: cfg.Hunting.SupervisorInterval,
		ShutdownTimeout:    cfg.Hunting.ShutdownTimeout,
	})
	if err := sched.Start(ctx); err != nil {
		return err
	}

	authService, err := auth.NewService(auth.Config{
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenDuration: cfg.Auth.TokenDuration,
		CookieSecure:  cfg.Auth.CookieSecure,
		Issuer:        cfg.Auth.Issuer,
	}, db.Users)
	if err != nil {
		return err
	}

	apiServer := api.NewServer(api.Config{
		BasePath: cfg.Server.BasePath,
		Version:  appVersion,
		Debug:    cfg.GetLogLevel() == "debug",
	}, api.Deps{
		Auth:       authService,
		Plex:       auth.NewPlexClient(cfg.Auth.PlexClientID, nil),
		History:    historyStore,
		Settings:   settingsStore,
		State:      tracker,
		Scheduler:  sched,
		Stats:      stats,
		Configurer: clientManager,
		Logging:    leveler,
	})

	app := api.NewApp(cfg.GetLogLevel() == "debug")
	apiServer.SetupRoutes(app)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Web API listening", "addr", cfg.ListenAddr(), "base_path", cfg.Server.BasePath)
		serverErr <- app.Listen(cfg.ListenAddr())
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	running := true
	for running {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if err := configManager.ReloadConfig(); err != nil {
					logger.Error("Failed to reload configuration", "err", err)
				} else {
					logger.Info("Configuration reloaded")
				}
				continue
			}
			logger.Info("Received shutdown signal", "signal", sig.String())
			running = false
		case err := <-serverErr:
			if err != nil {
				logger.Error("Web API stopped", "err", err)
			}
			running = false
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Hunting.ShutdownTimeout+5*time.Second)
	defer shutdownCancel()

	sched.Shutdown(shutdownCtx)

	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Error shutting down web API", "err", err)
	}

	logger.Info("Huntarr stopped")
	return nil
}
