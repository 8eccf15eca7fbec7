package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	configtools "github.com/xdoubleu/essentia/v2/pkg/config"
	"github.com/xdoubleu/essentia/v2/pkg/logging"
	"github.com/xdoubleu/essentia/v2/pkg/sentrytools"

	"github.com/sandeepkv93/aegis/internal/calendar"
	"github.com/sandeepkv93/aegis/internal/config"
	"github.com/sandeepkv93/aegis/internal/feeds"
	"github.com/sandeepkv93/aegis/internal/registry"
	"github.com/sandeepkv93/aegis/internal/scheduler"
	"github.com/sandeepkv93/aegis/internal/storage"
	"github.com/sandeepkv93/aegis/internal/tasks"
)

// Application holds the wired services shared by the TUI and the
// subcommands.
type Application struct {
	logger    *slog.Logger
	config    *config.Config
	store     *storage.SQLiteStore
	registry  *registry.Registry
	calendar  *calendar.Engine
	tasks     *tasks.App
	feeds     *feeds.Service
	reminders *calendar.Reminders
	logFile   *os.File
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "aegis.yaml"
	}
	return filepath.Join(dir, "aegis", "config.yaml")
}

// resolvePath makes p relative to the config file's directory.
func resolvePath(configPath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg = config.FromEnv(cfg)
	cfg.DataPath = resolvePath(path, cfg.DataPath)
	cfg.LogPath = resolvePath(path, cfg.LogPath)
	return cfg, nil
}

// newLogger writes to the log file when the TUI owns the terminal and to
// stderr otherwise.
func newLogger(cfg *config.Config, toFile bool) (*slog.Logger, *os.File, error) {
	var out io.Writer = os.Stderr
	var file *os.File
	if toFile {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, file = f, f
	}
	level := slog.LevelInfo
	if cfg.Env == configtools.DevEnv {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(sentrytools.NewLogHandler(cfg.Env, handler)), file, nil
}

// NewApplication opens storage and loads every service. notifier receives
// reminder notifications; nil disables reminders.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, notifier calendar.Notifier) (*Application, error) {
	store, err := storage.OpenSQLite(ctx, cfg.DataPath)
	if err != nil {
		return nil, err
	}
	app := &Application{
		logger:   logger,
		config:   cfg,
		store:    store,
		registry: registry.New(),
	}
	loc := cfg.Location()

	app.tasks = tasks.NewApp(store,
		tasks.WithLogger(logger.With(slog.String("service", tasks.ServiceName))),
		tasks.WithUndoLimit(cfg.TaskUndoLimit),
	)
	if err := app.tasks.Load(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.registry.Register(tasks.ServiceName, app.tasks); err != nil {
		app.Close()
		return nil, err
	}

	sources := make([]feeds.Source, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		sources = append(sources, feeds.Source{ID: f.ID, Name: f.Name, URL: f.URL})
	}
	feedLogger := logger.With(slog.String("service", feeds.ServiceName))
	app.feeds = feeds.NewService(
		feeds.NewFetcher(store, feeds.WithFetcherLogger(feedLogger)),
		sources,
		feeds.WithLogger(feedLogger),
		feeds.WithLocation(loc),
		feeds.WithHorizon(cfg.FeedHorizonDuration()),
	)
	if err := app.registry.Register(feeds.ServiceName, app.feeds); err != nil {
		app.Close()
		return nil, err
	}

	opts := []calendar.Option{
		calendar.WithLogger(logger.With(slog.String("service", "calendar"))),
		calendar.WithWeekStart(cfg.WeekStartDay()),
		calendar.WithHistoryLimit(cfg.HistoryLimit),
		calendar.WithAnalysisWindow(cfg.AnalysisWindowDuration()),
		calendar.WithMinGap(cfg.MinGapDuration()),
	}
	if notifier != nil {
		app.reminders = calendar.NewReminders(
			scheduler.NewEngine(cfg.SchedulerBuffer),
			notifier,
			store,
			calendar.WithReminderLogger(logger.With(slog.String("service", "reminders"))),
			calendar.WithReminderLocation(loc),
		)
		if err := app.reminders.LoadFired(ctx); err != nil {
			logger.Warn("could not load fired reminders", logging.ErrAttr(err))
		}
		opts = append(opts, calendar.WithReminders(app.reminders))
	}
	app.calendar = calendar.NewEngine(store, app.registry, opts...)
	if err := app.calendar.Load(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Start runs the reminder poll and the feed refresh schedule.
func (app *Application) Start(ctx context.Context) error {
	if app.reminders != nil {
		if err := app.reminders.Start(ctx, app.config.ReminderPoll); err != nil {
			return err
		}
	}
	if len(app.feeds.Sources()) > 0 {
		if err := app.feeds.Start(ctx, app.config.FeedRefresh); err != nil {
			return err
		}
	}
	return nil
}

func (app *Application) Stop() {
	if app.reminders != nil {
		app.reminders.Stop()
	}
	app.feeds.Stop()
}

func (app *Application) Close() {
	if err := app.store.Close(); err != nil {
		app.logger.Error("failed to close store", logging.ErrAttr(err))
	}
	if app.logFile != nil {
		_ = app.logFile.Close()
	}
}
