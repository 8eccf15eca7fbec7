package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"
	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"github.com/sandeepkv93/aegis/internal/update"
)

// uiRefreshSpec redraws overlays that change in the background, such as
// refreshed feeds.
const uiRefreshSpec = "@every 1m"

func runTUI(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, logFile, err := newLogger(cfg, true)
	if err != nil {
		return err
	}

	feed := update.NewNotificationFeed(logger)
	app, err := NewApplication(ctx, cfg, logger, feed)
	if err != nil {
		_ = logFile.Close()
		return err
	}
	app.logFile = logFile
	defer app.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer app.Stop()

	var notifier update.DesktopNotifier = update.NoopDesktopNotifier{}
	if cfg.DesktopNotifications {
		notifier = update.ExecDesktopNotifier{}
	}
	model := update.NewModel(update.Deps{
		Calendar:      app.calendar,
		Tasks:         app.tasks,
		Notifications: feed,
		Store:         app.store,
		Notifier:      notifier,
		Desktop:       cfg.DesktopNotifications,
		Logger:        logger,
		Location:      cfg.Location(),
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	ticker := cron.New()
	if _, err := ticker.AddFunc(uiRefreshSpec, func() { program.Send(update.RefreshMsg{}) }); err != nil {
		return err
	}
	ticker.Start()
	defer func() { <-ticker.Stop().Done() }()

	logger.Info("aegis started", "config", configPath, "data", cfg.DataPath)
	if _, err := program.Run(); err != nil {
		logger.Error("tui exited with error", logging.ErrAttr(err))
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
