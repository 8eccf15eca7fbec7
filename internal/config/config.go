package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	configtools "github.com/xdoubleu/essentia/v2/pkg/config"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// FeedConfig is a read-only ICS subscription shown as an overlay.
type FeedConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// CalDAVConfig enables push/pull against a CalDAV collection.
type CalDAVConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Calendar string `yaml:"calendar"`
}

type Config struct {
	Env      string `yaml:"env"`
	DataPath string `yaml:"data_path"`
	LogPath  string `yaml:"log_path"`
	Timezone string `yaml:"timezone"`

	// WeekStart is "monday" or "sunday".
	WeekStart string `yaml:"week_start"`

	AnalysisWindow string `yaml:"analysis_window"`
	MinGap         string `yaml:"min_gap"`
	HistoryLimit   int    `yaml:"history_limit"`
	TaskUndoLimit  int    `yaml:"task_undo_limit"`

	ReminderPoll         string `yaml:"reminder_poll"`
	SchedulerBuffer      int    `yaml:"scheduler_buffer"`
	DesktopNotifications bool   `yaml:"desktop_notifications"`

	FeedRefresh string       `yaml:"feed_refresh"`
	FeedHorizon string       `yaml:"feed_horizon"`
	Feeds       []FeedConfig `yaml:"feeds"`

	CalDAV *CalDAVConfig `yaml:"caldav,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Env:             configtools.ProdEnv,
		DataPath:        "aegis.db",
		LogPath:         "aegis.log",
		Timezone:        "Local",
		WeekStart:       "monday",
		AnalysisWindow:  "7d",
		MinGap:          "60m",
		HistoryLimit:    50,
		TaskUndoLimit:   20,
		ReminderPoll:    "@every 1m",
		SchedulerBuffer: 64,
		FeedRefresh:     "*/30 * * * *",
		FeedHorizon:     "30d",
		Feeds:           []FeedConfig{},
	}
}

// Normalize replaces missing or invalid values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	switch c.Env {
	case configtools.ProdEnv, configtools.DevEnv, configtools.TestEnv:
	default:
		c.Env = def.Env
	}
	if strings.TrimSpace(c.DataPath) == "" {
		c.DataPath = def.DataPath
	}
	if strings.TrimSpace(c.LogPath) == "" {
		c.LogPath = def.LogPath
	}
	if _, err := loadLocation(c.Timezone); err != nil {
		c.Timezone = def.Timezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart != "monday" && c.WeekStart != "sunday" {
		c.WeekStart = def.WeekStart
	}
	if _, err := str2duration.ParseDuration(c.AnalysisWindow); err != nil {
		c.AnalysisWindow = def.AnalysisWindow
	}
	if _, err := str2duration.ParseDuration(c.MinGap); err != nil {
		c.MinGap = def.MinGap
	}
	if _, err := str2duration.ParseDuration(c.FeedHorizon); err != nil {
		c.FeedHorizon = def.FeedHorizon
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.TaskUndoLimit <= 0 {
		c.TaskUndoLimit = def.TaskUndoLimit
	}
	if c.SchedulerBuffer <= 0 {
		c.SchedulerBuffer = def.SchedulerBuffer
	}
	if ValidateCron(c.ReminderPoll) != nil {
		c.ReminderPoll = def.ReminderPoll
	}
	if ValidateCron(c.FeedRefresh) != nil {
		c.FeedRefresh = def.FeedRefresh
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		if c.Feeds[i].ID == "" {
			c.Feeds[i].ID = fmt.Sprintf("feed-%d", i+1)
		}
		if c.Feeds[i].Name == "" {
			c.Feeds[i].Name = c.Feeds[i].ID
		}
	}
	if c.CalDAV != nil && strings.TrimSpace(c.CalDAV.URL) == "" {
		c.CalDAV = nil
	}
}

// ValidateCron accepts standard five-field specs and descriptors such as @every.
func ValidateCron(spec string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := loadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

func (c *Config) AnalysisWindowDuration() time.Duration {
	return mustDuration(c.AnalysisWindow, 7*24*time.Hour)
}

func (c *Config) MinGapDuration() time.Duration {
	return mustDuration(c.MinGap, time.Hour)
}

func (c *Config) FeedHorizonDuration() time.Duration {
	return mustDuration(c.FeedHorizon, 30*24*time.Hour)
}

func mustDuration(raw string, fallback time.Duration) time.Duration {
	d, err := str2duration.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// Load reads the YAML file at path. A missing file is created with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".aegis-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// FromEnv applies AEGIS_* overrides on top of base.
func FromEnv(base *Config) *Config {
	cfg := *base
	if v, ok := getEnvString("AEGIS_ENV"); ok {
		cfg.Env = v
	}
	if v, ok := getEnvString("AEGIS_DATA_PATH"); ok {
		cfg.DataPath = v
	}
	if v, ok := getEnvString("AEGIS_LOG_PATH"); ok {
		cfg.LogPath = v
	}
	if v, ok := getEnvString("AEGIS_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvString("AEGIS_WEEK_START"); ok {
		cfg.WeekStart = v
	}
	if v, ok := getEnvString("AEGIS_MIN_GAP"); ok {
		cfg.MinGap = v
	}
	if v, ok := getEnvBool("AEGIS_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvInt("AEGIS_HISTORY_LIMIT"); ok && v > 0 {
		cfg.HistoryLimit = v
	}
	if v, ok := getEnvInt("AEGIS_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	cfg.Normalize()
	return &cfg
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
