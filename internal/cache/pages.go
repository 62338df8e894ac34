package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
	"github.com/codehound/hound-search/internal/pkg/logger"
)

const (
	// MaxPages is how many pages' worth of results a cache miss asks
	// the producer for, regardless of the page requested. Typical UI
	// usage walks forward page by page, so one larger fan-out
	// pre-populates the pages that follow.
	MaxPages = 10

	// ResultTTL bounds the lifetime of cached result pages. Entries
	// are never updated in place; the next fan-out for the same
	// fingerprint overwrites them wholesale.
	ResultTTL = 5 * time.Minute
)

// Produced is everything a producer returns for one fan-out: the
// decoded result pages (zero-indexed) and the pre-filter counts.
type Produced struct {
	Pages      []json.RawMessage
	TotalCount int
	FileCount  int
}

// Producer runs the actual search, decoding at most pageLimit pages.
type Producer func(ctx context.Context, pageLimit int) (*Produced, error)

// Result is one fetched page with its counts.
type Result struct {
	Page       json.RawMessage
	TotalCount int
	FileCount  int
	FromCache  bool
}

// FetchRequest describes one page lookup.
type FetchRequest struct {
	Fingerprint Fingerprint

	// Page is the 1-based requested page.
	Page int

	// PerPage is the page size.
	PerPage int

	// MaxPerPage is the largest page size the cache will serve.
	MaxPerPage int

	// ProjectIDs is the concrete target scope. A nil slice is the
	// "all projects" sentinel and always bypasses the cache.
	ProjectIDs []int64
}

type pageEntry struct {
	Results    json.RawMessage `json:"results"`
	TotalCount int             `json:"total_count"`
	FileCount  int             `json:"file_count"`
}

// PageCache stores precomputed pages of decoded results in Redis.
type PageCache struct {
	rdb     *redis.Client
	enabled bool
	prefix  string
	ttl     time.Duration
	log     *logger.Logger
}

// NewPageCache connects to Redis and returns a page cache. The enabled
// flag is the injected feature toggle; when off, every Fetch bypasses
// the store.
func NewPageCache(url string, enabled bool, log *logger.Logger) (*PageCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewPageCacheWithClient(client, enabled, log), nil
}

// NewPageCacheWithClient wraps an existing Redis client.
func NewPageCacheWithClient(client *redis.Client, enabled bool, log *logger.Logger) *PageCache {
	if log == nil {
		log = logger.Default()
	}
	return &PageCache{
		rdb:     client,
		enabled: enabled,
		prefix:  "hound:pages:",
		ttl:     ResultTTL,
		log:     log,
	}
}

// Fetch returns the requested page, reading it from the cache when
// possible and invoking the producer on a miss. When caching does not
// apply, the producer runs with pageLimit equal to the requested page
// so no extra pages are computed.
func (c *PageCache) Fetch(ctx context.Context, req FetchRequest, produce Producer) (*Result, error) {
	if !c.applies(req) {
		produced, err := produce(ctx, req.Page)
		if err != nil {
			return nil, err
		}
		return pick(produced, req.Page, false), nil
	}

	key := c.key(req.Fingerprint, req.PerPage, req.Page)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var entry pageEntry
		if err := json.Unmarshal(raw, &entry); err == nil {
			return &Result{
				Page:       entry.Results,
				TotalCount: entry.TotalCount,
				FileCount:  entry.FileCount,
				FromCache:  true,
			}, nil
		}
		// A corrupt entry falls through to a refetch.
		c.log.Warn("discarding corrupt cache entry", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "reading page cache", err)
	}

	pageLimit := max(req.Page, MaxPages+1)
	produced, err := produce(ctx, pageLimit)
	if err != nil {
		return nil, err
	}

	if len(produced.Pages) > 0 && produced.TotalCount > 0 && produced.FileCount > 0 {
		if err := c.writePages(ctx, req, produced); err != nil {
			// Serving the result matters more than caching it.
			c.log.Warn("writing page cache failed", "error", err)
		}
	}

	return pick(produced, req.Page, false), nil
}

// applies reports whether the enablement guard allows caching for this
// request.
func (c *PageCache) applies(req FetchRequest) bool {
	return c.enabled &&
		len(req.ProjectIDs) > 0 &&
		req.PerPage <= req.MaxPerPage
}

// writePages persists up to MaxPages+1 pages in one atomic batched
// write, each page under its own key so later page requests are point
// lookups.
func (c *PageCache) writePages(ctx context.Context, req FetchRequest, produced *Produced) error {
	pages := produced.Pages
	if len(pages) > MaxPages+1 {
		pages = pages[:MaxPages+1]
	}

	pipe := c.rdb.TxPipeline()
	for i, page := range pages {
		entry, err := json.Marshal(pageEntry{
			Results:    page,
			TotalCount: produced.TotalCount,
			FileCount:  produced.FileCount,
		})
		if err != nil {
			return err
		}
		pipe.Set(ctx, c.key(req.Fingerprint, req.PerPage, i+1), entry, c.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (c *PageCache) key(fp Fingerprint, perPage, page int) string {
	return fmt.Sprintf("%s%s:%d:%d", c.prefix, fp, perPage, page)
}

// Client exposes the underlying Redis client so other caches can share
// the connection.
func (c *PageCache) Client() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection.
func (c *PageCache) Close() error {
	return c.rdb.Close()
}

func pick(produced *Produced, page int, fromCache bool) *Result {
	result := &Result{
		TotalCount: produced.TotalCount,
		FileCount:  produced.FileCount,
		FromCache:  fromCache,
	}
	if page >= 1 && page <= len(produced.Pages) {
		result.Page = produced.Pages[page-1]
	}
	return result
}
