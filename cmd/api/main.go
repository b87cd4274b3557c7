package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application Layer
	"reminders/internal/application/service"
	"reminders/internal/domain/repository"

	// Infrastructure Layer
	"reminders/internal/infrastructure/database/memory"
	"reminders/internal/infrastructure/database/sqlite"
	"reminders/internal/infrastructure/line"
	"reminders/internal/infrastructure/scheduler"

	// Interfaces Layer
	"reminders/internal/interfaces/api/handler"
	"reminders/internal/interfaces/api/router"

	// Packages
	"reminders/internal/pkg/config"
	"reminders/internal/pkg/eventbus"
	appLogger "reminders/internal/pkg/logger"
	"reminders/internal/pkg/metrics"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
)

type flags struct {
	configPath string
	logLevel   string
	logFile    string
	port       int64
	inMemory   bool
}

func main() {
	f := &flags{}

	app := &cli.Command{
		Name:  "reminders",
		Usage: "Daily reminders with local alerts",
		Description: `Serves the reminders JSON API and fires each reminder's alert every day,
ten minutes before its time. Alerts go to the log and, when enabled, to LINE.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to YAML config file",
				Sources:     cli.EnvVars("REMINDERS_CONFIG"),
				Value:       "config.yaml",
				Destination: &f.configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error), overrides log.level",
				Destination: &f.logLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file, overrides log.file",
				Destination: &f.logFile,
			},
			&cli.IntFlag{
				Name:        "port",
				Usage:       "HTTP port, overrides server.port",
				Destination: &f.port,
			},
			&cli.BoolFlag{
				Name:        "memory",
				Usage:       "keep reminders in memory instead of SQLite",
				Destination: &f.inMemory,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() > 0 {
				return fmt.Errorf("unexpected argument %q. Run 'reminders --help' for usage", c.Args().First())
			}
			return serve(ctx, f)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadConfig(f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFile != "" {
		cfg.Log.File = f.logFile
	}
	if f.port > 0 {
		cfg.Server.Port = int(f.port)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, f *flags) error {
	// --- Initialization ---
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	appLog, closeLog, err := appLogger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer closeLog()
	appLog.Info("Logger initialized.")

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	now := func() time.Time { return time.Now().In(loc) }

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	bus := eventbus.New()
	eventbus.RegisterPanicLogger(bus, appLog.With("eventbus"))

	// --- Infrastructure ---
	var reminderRepo repository.ReminderRepository
	if f.inMemory {
		reminderRepo = memory.NewReminderRepository(bus)
		appLog.Warn("Using in-memory reminder store; reminders are lost on exit.")
	} else {
		db, err := sqlite.NewDB(cfg.Database.Path, cfg.Database.LogLevel, appLog.With("gorm"))
		if err != nil {
			return err
		}
		defer func() {
			appLog.Info("Closing database connection...")
			if err := sqlite.CloseDB(db); err != nil {
				appLog.Error("Error closing database", err)
			}
		}()
		reminderRepo = sqlite.NewReminderRepository(db, bus)
	}
	appLog.Info("Reminder store initialized.")

	sinks := scheduler.MultiSink{scheduler.NewLogSink(appLog.With("alerts"))}
	var lineClient *line.Client
	if cfg.Line.Enabled {
		lineClient, err = line.NewClient(cfg.Line.ChannelSecret, cfg.Line.ChannelToken, cfg.Line.RecipientID, appLog.With("line"))
		if err != nil {
			return err
		}
		sinks = append(sinks, lineClient)
	}

	center := scheduler.NewLocalCenter(sinks, appLog.With("center"),
		scheduler.WithPermission(cfg.Notifications.Permission),
		scheduler.WithLocation(loc),
		scheduler.WithMetrics(recorder),
	)

	// --- Application Services ---
	schedulerSvc := service.NewSchedulerService(center, appLog, recorder, now)
	reminderSvc := service.NewReminderService(reminderRepo, schedulerSvc, appLog, recorder, service.WithClock(now))
	querySvc := service.NewQueryService(reminderRepo, bus, appLog, now)
	defer querySvc.Close()
	appLog.Info("Application services initialized.")

	if granted, err := schedulerSvc.RequestPermission(ctx); err != nil || !granted {
		appLog.Warn("Notification permission not granted; reminders will be saved but not scheduled.")
	}

	// --- Restore Schedules ---
	center.Start()
	if _, err := reminderSvc.RestoreSchedules(ctx); err != nil {
		// Log the error but continue starting the server
		appLog.Error("Failed to restore schedules on startup", err)
	}

	// --- API Handlers & Router ---
	routerCfg := &router.Config{
		ReminderHandler: handler.NewReminderHandler(reminderSvc, querySvc, schedulerSvc, appLog.With("api"), now),
		Gatherer:        registry,
		Logger:          appLog.With("http"),
	}
	if lineClient != nil {
		routerCfg.LineHandler = handler.NewLineHandler(lineClient, reminderSvc, appLog.With("line"))
	}

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.NewRouter(routerCfg),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// --- Start Server & Shutdown Handling ---
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		appLog.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-sigCtx.Done():
		appLog.Info("Shutting down gracefully, press Ctrl+C again to force")
	case runErr = <-serveErr:
		if runErr != nil {
			appLog.Error("HTTP server ListenAndServe error", runErr)
		}
	}
	stop()

	center.Stop()

	// The server has 5 seconds to finish the requests it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", err)
	}

	appLog.Info("Graceful shutdown complete.")
	return runErr
}
