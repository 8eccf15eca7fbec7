package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xdoubleu/essentia/v2/pkg/logging"
	"github.com/xdoubleu/essentia/v2/pkg/threading"

	"github.com/sandeepkv93/aegis/internal/calendar"
)

var ErrUnknownFeed = errors.New("feeds: unknown feed")

// Status describes the last refresh of one feed.
type Status struct {
	Source      Source
	Events      int
	Occurrences int
	FromCache   bool
	RefreshedAt time.Time
	Err         error
}

// Service refreshes every configured feed and serves the expanded
// occurrences as an agenda overlay. Refreshes expand [now-1d, now+horizon].
type Service struct {
	fetcher *Fetcher
	sources []Source
	horizon time.Duration
	loc     *time.Location
	logger  *slog.Logger
	now     func() time.Time
	workers int

	mu     sync.RWMutex
	items  map[string][]calendar.Occurrence
	status map[string]Status
	cron   *cron.Cron
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithHorizon(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.horizon = d
		}
	}
}

func NewService(fetcher *Fetcher, sources []Source, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		sources: append([]Source(nil), sources...),
		horizon: 30 * 24 * time.Hour,
		loc:     time.Local,
		logger:  logging.NewNopLogger(),
		now:     time.Now,
		workers: 4,
		items:   make(map[string][]calendar.Occurrence),
		status:  make(map[string]Status),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Sources() []Source {
	return append([]Source(nil), s.sources...)
}

// Refresh fetches all feeds in parallel. A feed that fails keeps its
// previous occurrences. The joined error lists every failed feed.
func (s *Service) Refresh(ctx context.Context) ([]Status, error) {
	if len(s.sources) == 0 {
		return nil, nil
	}
	pool := threading.NewWorkerPool(s.logger, min(s.workers, len(s.sources)), len(s.sources))

	var mu sync.Mutex
	results := make([]Status, 0, len(s.sources))
	for _, src := range s.sources {
		pool.EnqueueWork(func(_ context.Context, _ *slog.Logger) error {
			st := s.refreshOne(ctx, src)
			mu.Lock()
			results = append(results, st)
			mu.Unlock()
			return st.Err
		})
	}
	pool.WaitUntilDone()

	sort.Slice(results, func(i, j int) bool { return results[i].Source.ID < results[j].Source.ID })
	var errs []error
	for _, st := range results {
		if st.Err != nil {
			errs = append(errs, st.Err)
		}
	}
	return results, errors.Join(errs...)
}

// RefreshOne refreshes a single feed by ID.
func (s *Service) RefreshOne(ctx context.Context, id string) (Status, error) {
	for _, src := range s.sources {
		if src.ID == id {
			st := s.refreshOne(ctx, src)
			return st, st.Err
		}
	}
	return Status{}, fmt.Errorf("%w: %q", ErrUnknownFeed, id)
}

func (s *Service) refreshOne(ctx context.Context, src Source) Status {
	now := s.now()
	st := Status{Source: src, RefreshedAt: now}
	defer func() {
		s.mu.Lock()
		s.status[src.ID] = st
		s.mu.Unlock()
	}()

	res, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		st.Err = err
		s.logger.Warn("feed refresh failed", slog.String("feed", src.ID), logging.ErrAttr(err))
		return st
	}
	st.FromCache = res.FromCache

	events, parseErrs, err := Parse(res.Body, s.loc)
	if err != nil {
		st.Err = fmt.Errorf("%s: %w", src.ID, err)
		s.logger.Warn("feed parse failed", slog.String("feed", src.ID), logging.ErrAttr(err))
		return st
	}
	for _, perr := range parseErrs {
		s.logger.Debug("skipped feed entry", slog.String("feed", src.ID), logging.ErrAttr(perr))
	}
	st.Events = len(events)

	from := now.AddDate(0, 0, -1)
	expanded := Expand(src, events, from, now.Add(s.horizon), 0)
	if len(expanded.Truncated) > 0 || len(expanded.BadRules) > 0 {
		s.logger.Warn("feed expansion incomplete",
			slog.String("feed", src.ID),
			slog.String("truncated", strings.Join(expanded.Truncated, ",")),
			slog.String("bad_rules", strings.Join(expanded.BadRules, ",")))
	}
	st.Occurrences = len(expanded.Occurrences)

	s.mu.Lock()
	s.items[src.ID] = expanded.Occurrences
	s.mu.Unlock()
	s.logger.Info("feed refreshed",
		slog.String("feed", src.ID),
		slog.Int("events", st.Events),
		slog.Int("occurrences", st.Occurrences),
		slog.Bool("from_cache", st.FromCache))
	return st
}

// Occurrences serves cached items intersecting [from, to].
func (s *Service) Occurrences(_ context.Context, from, to time.Time) ([]calendar.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]calendar.Occurrence, 0)
	for _, src := range s.sources {
		for _, occ := range s.items[src.ID] {
			if intersects(occ.Start, occ.End, from, to) {
				out = append(out, occ)
			}
		}
	}
	return out, nil
}

func (s *Service) Status() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Status, 0, len(s.status))
	for _, src := range s.sources {
		if st, ok := s.status[src.ID]; ok {
			out = append(out, st)
		}
	}
	return out
}

// Start refreshes once and then on spec until Stop.
func (s *Service) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Warn("scheduled feed refresh had failures", logging.ErrAttr(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule feed refresh: %w", err)
	}
	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return errors.New("feeds: already started")
	}
	s.cron = c
	s.mu.Unlock()

	go func() {
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Warn("initial feed refresh had failures", logging.ErrAttr(err))
		}
	}()
	c.Start()
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
