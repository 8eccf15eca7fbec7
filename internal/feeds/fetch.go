// Package feeds keeps read-only ICS subscriptions: conditional HTTP fetches,
// parsing, recurrence expansion and a cached overlay for the calendar.
package feeds

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"github.com/sandeepkv93/aegis/internal/storage"
)

const cacheKeyPrefix = "aegis_feed_cache_"

var ErrEmptyURL = errors.New("feeds: source url is empty")

type Source struct {
	ID   string
	Name string
	URL  string
}

type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool
}

// cacheEntry is what the store keeps per URL for revalidation.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"lastModified,omitempty"`
	Body         string    `json:"body"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Fetcher downloads ICS payloads, revalidating with ETag and Last-Modified
// and falling back to the last good body when the server misbehaves.
type Fetcher struct {
	client *http.Client
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFetcher(store storage.Store, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		store:  store,
		logger: logging.NewNopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, ErrEmptyURL
	}
	key := cacheKey(src.URL)
	cached := f.loadCache(ctx, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, fmt.Errorf("build request: %w", err)
	}
	if cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}
	if cached.LastModified != "" {
		req.Header.Set("If-Modified-Since", cached.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if cached.Body != "" {
			f.logger.Warn("feed fetch failed, using cached body",
				slog.String("feed", src.ID), slog.String("url", redactURL(src.URL)), logging.ErrAttr(err))
			return FetchResult{Source: src, Body: []byte(cached.Body), FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("fetch %s: %w", src.ID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{}, fmt.Errorf("read %s: %w", src.ID, err)
		}
		entry := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         string(body),
			UpdatedAt:    f.now().UTC(),
		}
		if f.store != nil {
			if err := f.store.Set(ctx, key, entry); err != nil {
				f.logger.Error("failed to cache feed", slog.String("feed", src.ID), logging.ErrAttr(err))
			}
		}
		return FetchResult{Source: src, Body: body}, nil
	case http.StatusNotModified:
		if cached.Body == "" {
			return FetchResult{}, fmt.Errorf("fetch %s: not modified but nothing cached", src.ID)
		}
		return FetchResult{Source: src, Body: []byte(cached.Body), FromCache: true}, nil
	default:
		if cached.Body != "" {
			f.logger.Warn("feed returned an error status, using cached body",
				slog.String("feed", src.ID), slog.Int("status", resp.StatusCode))
			return FetchResult{Source: src, Body: []byte(cached.Body), FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("fetch %s: %s", src.ID, resp.Status)
	}
}

func (f *Fetcher) loadCache(ctx context.Context, key string) cacheEntry {
	var entry cacheEntry
	if f.store == nil {
		return entry
	}
	if _, err := f.store.Get(ctx, key, &entry); err != nil {
		f.logger.Warn("ignoring unreadable feed cache", slog.String("key", key), logging.ErrAttr(err))
		return cacheEntry{}
	}
	return entry
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return cacheKeyPrefix + hex.EncodeToString(sum[:8])
}

// redactURL keeps scheme and host only; subscription URLs often carry tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/..."
}
