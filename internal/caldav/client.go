// Package caldav pushes local events to a CalDAV collection and pulls
// remote ones back into the calendar.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-webdav/caldav"
	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"github.com/sandeepkv93/aegis/internal/calendar"
	"github.com/sandeepkv93/aegis/internal/config"
)

var (
	ErrNotConfigured    = errors.New("caldav: not configured")
	ErrNoCalendar       = errors.New("caldav: no calendar found")
	ErrCalendarNotFound = errors.New("caldav: calendar not found")
)

type Client struct {
	cfg    config.CalDAVConfig
	client *http.Client
	dav    *caldav.Client
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location

	mu   sync.Mutex
	path string
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithHTTPClient replaces the basic-auth client; the caller is then
// responsible for authentication.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

func NewClient(cfg *config.CalDAVConfig, opts ...Option) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrNotConfigured
	}
	c := &Client{
		cfg:    *cfg,
		logger: logging.NewNopLogger(),
		now:    time.Now,
		loc:    time.Local,
		client: &http.Client{
			Transport: &basicAuthTransport{username: cfg.Username, password: cfg.Password},
			Timeout:   30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	dav, err := caldav.NewClient(c.client, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to caldav: %w", err)
	}
	c.dav = dav
	return c, nil
}

type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.username != "" {
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.username, t.password)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// calendarPath resolves the configured collection. A value starting with
// "/" is used as is; otherwise it names a calendar found by discovery, and
// an empty value picks the first one.
func (c *Client) calendarPath(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path != "" {
		return c.path, nil
	}
	if strings.HasPrefix(c.cfg.Calendar, "/") {
		c.path = c.cfg.Calendar
		return c.path, nil
	}

	principal, err := c.dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := c.dav.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find home set: %w", err)
	}
	cals, err := c.dav.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", ErrNoCalendar
	}
	if c.cfg.Calendar == "" {
		c.path = cals[0].Path
		return c.path, nil
	}
	for _, cal := range cals {
		if strings.EqualFold(cal.Name, c.cfg.Calendar) {
			c.path = cal.Path
			return c.path, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrCalendarNotFound, c.cfg.Calendar)
}

func objectPath(collection, id string) string {
	if !strings.HasSuffix(collection, "/") {
		collection += "/"
	}
	return collection + id + ".ics"
}

type PushResult struct {
	Pushed int
	Errors []error
}

// Push uploads every event, replacing the remote copy with the same UID.
// One failed upload does not stop the others.
func (c *Client) Push(ctx context.Context, events []calendar.Event) (PushResult, error) {
	var res PushResult
	path, err := c.calendarPath(ctx)
	if err != nil {
		return res, err
	}
	stamp := c.now()
	for _, ev := range events {
		if _, err := c.dav.PutCalendarObject(ctx, objectPath(path, ev.ID), toCalendarObject(ev, stamp)); err != nil {
			c.logger.Warn("caldav push failed", slog.String("event", ev.ID), logging.ErrAttr(err))
			res.Errors = append(res.Errors, fmt.Errorf("push %s: %w", ev.ID, err))
			continue
		}
		res.Pushed++
	}
	c.logger.Info("caldav push done", slog.Int("pushed", res.Pushed), slog.Int("failed", len(res.Errors)))
	return res, nil
}

// Remove deletes the remote copy of an event.
func (c *Client) Remove(ctx context.Context, id string) error {
	path, err := c.calendarPath(ctx)
	if err != nil {
		return err
	}
	if err := c.dav.RemoveAll(ctx, objectPath(path, id)); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

// Pull fetches the remote events intersecting [from, to].
func (c *Client) Pull(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	path, err := c.calendarPath(ctx)
	if err != nil {
		return nil, err
	}
	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: from,
				End:   to,
			}},
		},
	}
	objects, err := c.dav.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	events := make([]calendar.Event, 0, len(objects))
	for _, obj := range objects {
		ev, err := fromCalendarObject(obj.Data, c.loc)
		if err != nil {
			c.logger.Debug("skipping caldav object", slog.String("path", obj.Path), logging.ErrAttr(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

type SyncResult struct {
	Added   int
	Updated int
	Errors  []error
}

// PullInto pulls [from, to] and merges it into engine: known IDs are
// replaced, unknown ones added.
func (c *Client) PullInto(ctx context.Context, engine *calendar.Engine, from, to time.Time) (SyncResult, error) {
	var res SyncResult
	events, err := c.Pull(ctx, from, to)
	if err != nil {
		return res, err
	}
	for _, ev := range events {
		if existing, err := engine.GetEvent(ev.ID); err == nil {
			ev.CalendarID = existing.CalendarID
			ev.Reminders = existing.Reminders
			if _, err := engine.ReplaceEvent(ctx, ev); err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			res.Updated++
			continue
		}
		if _, err := engine.AddEvent(ctx, ev); err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Added++
	}
	return res, nil
}
