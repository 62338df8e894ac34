// Package search assembles search results: it picks the mode, resolves
// targets, dispatches to the backend, decodes, filters stale projects,
// and paginates.
package search

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/codehound/hound-search/internal/backend"
	"github.com/codehound/hound-search/internal/cache"
	"github.com/codehound/hound-search/internal/decoder"
	"github.com/codehound/hound-search/internal/directory"
	"github.com/codehound/hound-search/internal/events"
	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
	"github.com/codehound/hound-search/internal/pkg/logger"
	"github.com/codehound/hound-search/internal/query"
)

// Config configures the orchestrator.
type Config struct {
	// PerPage is the default page size.
	PerPage int

	// MaxPerPage is the largest page size the cache will serve.
	MaxPerPage int

	// CountLimit caps the reported total match count regardless of
	// what the backend reports.
	CountLimit int

	// NumContextLines bounds context spliced around matches.
	NumContextLines int

	// MaxChunksPerFile is the default per-file chunk ceiling for
	// multi-match searches.
	MaxChunksPerFile int

	// RewriteFilters enables API filter syntax rewriting.
	RewriteFilters bool
}

// DefaultConfig returns the documented operational defaults.
func DefaultConfig() Config {
	return Config{
		PerPage:          20,
		MaxPerPage:       40,
		CountLimit:       5000,
		NumContextLines:  3,
		MaxChunksPerFile: decoder.DefaultMaxChunksPerFile,
	}
}

// BackendClient dispatches one fan-out envelope.
type BackendClient interface {
	Search(ctx context.Context, req *backend.SearchRequest) (*backend.SearchResponse, error)
}

// PageFetcher drives the pagination cache.
type PageFetcher interface {
	Fetch(ctx context.Context, req cache.FetchRequest, produce cache.Producer) (*cache.Result, error)
}

// RouteProvider returns the (possibly cached) routing table for a scope.
type RouteProvider interface {
	Routes(ctx context.Context, projectIDs []int64, compute cache.ComputeRoutes) (cache.RoutingTable, error)
}

// Service is the result assembly orchestrator.
type Service struct {
	cfg        Config
	translator *query.Translator
	builder    *backend.Builder
	client     BackendClient
	pages      PageFetcher
	routing    RouteProvider
	dir        directory.Directory
	nodes      directory.Nodes
	router     directory.Router
	indexer    directory.AsyncIndexer
	events     events.Publisher
	log        *logger.Logger
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Client  BackendClient
	Pages   PageFetcher
	Routing RouteProvider
	Dir     directory.Directory
	Nodes   directory.Nodes
	Router  directory.Router
	Indexer directory.AsyncIndexer
	Events  events.Publisher
	Log     *logger.Logger
}

// NewService creates the orchestrator.
func NewService(cfg Config, deps Deps) *Service {
	if cfg.PerPage == 0 {
		cfg = DefaultConfig()
	}
	if cfg.MaxPerPage == 0 {
		cfg.MaxPerPage = cfg.PerPage * 2
	}
	log := deps.Log
	if log == nil {
		log = logger.Default()
	}
	var publisher events.Publisher = deps.Events
	if publisher == nil {
		publisher = events.NewMemoryPublisher()
	}

	return &Service{
		cfg:        cfg,
		translator: query.NewTranslator(cfg.RewriteFilters, log),
		builder:    backend.NewBuilder(deps.Nodes, log),
		client:     deps.Client,
		pages:      deps.Pages,
		routing:    deps.Routing,
		dir:        deps.Dir,
		nodes:      deps.Nodes,
		router:     deps.Router,
		indexer:    deps.Indexer,
		events:     publisher,
		log:        log,
	}
}

// Request is one top-level search call.
type Request struct {
	// Query is the raw search string.
	Query string `json:"query"`

	// ProjectIDs is the target scope. Nil means all projects; an
	// empty non-nil slice short-circuits to an empty result.
	ProjectIDs []int64 `json:"project_ids,omitempty"`

	// NodeID dispatches directly to a single backend node.
	NodeID *int64 `json:"node_id,omitempty"`

	// Source is where the request originated.
	Source query.Source `json:"source,omitempty"`

	// Regex overrides mode selection; absent means source-dependent.
	Regex *RegexFlag `json:"regex,omitempty"`

	// MultiMatch selects chunked decoding.
	MultiMatch bool `json:"multi_match,omitempty"`

	// MaxChunksPerFile overrides the chunk ceiling for this call.
	MaxChunksPerFile int `json:"max_chunks_per_file,omitempty"`

	// Page is the 1-based page to return.
	Page int `json:"page,omitempty"`

	// PerPage is the page size.
	PerPage int `json:"per_page,omitempty"`

	// IncludeArchived keeps archived projects in scope.
	IncludeArchived bool `json:"include_archived,omitempty"`

	// IncludeForked keeps forked projects in scope.
	IncludeForked bool `json:"include_forked,omitempty"`

	// Member reports project membership for private-repo access.
	Member func(projectID int64) bool `json:"-"`
}

// RegexFlag is a boolean that also accepts the string forms "true" and
// "false", which some API clients send.
type RegexFlag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *RegexFlag) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseBool(strings.Trim(string(data), `"`))
	if err != nil {
		return apperrors.InvalidRequestError("regex flag must be a boolean")
	}
	*f = RegexFlag(v)
	return nil
}

func (f *RegexFlag) asBool() *bool {
	if f == nil {
		return nil
	}
	v := bool(*f)
	return &v
}

// Item is one result row: the single-snippet form fills Path, Line and
// Content; the multi-match form fills Chunks and the match counts.
type Item struct {
	Path       string `json:"path"`
	ProjectID  int64  `json:"project_id"`
	LineNumber int    `json:"line,omitempty"`
	Content    string `json:"content,omitempty"`

	Chunks          []decoder.Chunk `json:"chunks,omitempty"`
	MatchCountTotal int             `json:"match_count_total,omitempty"`
	MatchCount      int             `json:"match_count,omitempty"`
}

// contribution is what this item adds to the displayed total.
func (it Item) contribution() int {
	if len(it.Chunks) > 0 {
		return it.MatchCountTotal
	}
	return 1
}

// ResultSet is the paginated outcome of one search call. A degraded
// search carries zero items, a populated Error, and zero counts.
type ResultSet struct {
	Items      []Item `json:"items"`
	TotalCount int    `json:"total_count"`
	FileCount  int    `json:"file_count"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Error      string `json:"error,omitempty"`
}

// Search runs the full pipeline for one call.
func (s *Service) Search(ctx context.Context, req Request) (*ResultSet, error) {
	start := time.Now()

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage <= 0 {
		req.PerPage = s.cfg.PerPage
	}

	empty := &ResultSet{
		Items:   []Item{},
		Page:    req.Page,
		PerPage: req.PerPage,
	}

	if strings.TrimSpace(req.Query) == "" {
		return empty, nil
	}
	if req.ProjectIDs != nil && len(req.ProjectIDs) == 0 {
		return empty, nil
	}

	mode := query.DefaultMode(req.Regex.asBool(), req.Source)

	scope, shortCircuit, err := s.resolveScope(ctx, req)
	if err != nil {
		return nil, err
	}
	if shortCircuit {
		return empty, nil
	}

	expr, err := s.translator.Translate(req.Query, mode, req.Source)
	if err != nil {
		return nil, err
	}

	maxChunks := 0
	if req.MultiMatch {
		maxChunks = req.MaxChunksPerFile
		if maxChunks <= 0 {
			maxChunks = s.cfg.MaxChunksPerFile
		}
	}

	fp := cache.NewFingerprint(req.Query, scope, mode, maxChunks)

	fetched, err := s.pages.Fetch(ctx, cache.FetchRequest{
		Fingerprint: fp,
		Page:        req.Page,
		PerPage:     req.PerPage,
		MaxPerPage:  s.cfg.MaxPerPage,
		ProjectIDs:  scope,
	}, s.producer(req, expr, scope, maxChunks))

	if err != nil {
		if apperrors.IsConnection(err) {
			s.log.WithError(err).Warn("search degraded: backend unreachable")
			s.publish(events.Event{
				Type:         events.TypeSearchDegraded,
				Fingerprint:  string(fp),
				Mode:         string(mode),
				ProjectCount: len(scope),
				DurationMs:   time.Since(start).Milliseconds(),
				Error:        err.Error(),
			})
			degraded := *empty
			degraded.Error = "The search backend could not be reached. Please try again later."
			return &degraded, nil
		}
		return nil, err
	}

	items := []Item{}
	if len(fetched.Page) > 0 {
		if err := json.Unmarshal(fetched.Page, &items); err != nil {
			return nil, apperrors.DecodeError("unmarshaling cached page", err)
		}
	}

	items, total, err := s.filterStale(ctx, items, fetched.TotalCount)
	if err != nil {
		return nil, err
	}

	s.publish(events.Event{
		Type:         events.TypeSearchPerformed,
		Fingerprint:  string(fp),
		Mode:         string(mode),
		ProjectCount: len(scope),
		TotalCount:   total,
		FromCache:    fetched.FromCache,
		DurationMs:   time.Since(start).Milliseconds(),
	})

	return wrap(items, NewPaginator(req.Page, req.PerPage, total), fetched.FileCount), nil
}

// resolveScope applies visibility filtering and the not-yet-indexed
// short circuit. The returned scope is nil for an all-projects search.
func (s *Service) resolveScope(ctx context.Context, req Request) ([]int64, bool, error) {
	if req.ProjectIDs == nil {
		return nil, false, nil
	}

	projects, err := s.dir.Resolve(ctx, req.ProjectIDs)
	if err != nil {
		return nil, false, err
	}

	visible := directory.FilterVisible(projects, directory.FilterOptions{
		IncludeArchived: req.IncludeArchived,
		IncludeForked:   req.IncludeForked,
		Member:          req.Member,
	})
	if len(visible) == 0 {
		return nil, true, nil
	}

	// A single project whose repository has content but no index yet
	// gets indexing scheduled; results arrive on a future call.
	if req.NodeID == nil && len(visible) == 1 {
		p := visible[0]
		if !p.EmptyRepo && !p.Indexed {
			if err := s.indexer.IndexAsync(ctx, p.ID); err != nil {
				s.log.WithError(err).Warn("scheduling async indexing failed", "project_id", p.ID)
			}
			return nil, true, nil
		}
	}

	scope := make([]int64, len(visible))
	for i, p := range visible {
		scope[i] = p.ID
	}
	return scope, false, nil
}

// producer builds the cache-miss callback: dispatch, decode, convert to
// items, and batch into pages.
func (s *Service) producer(req Request, expr query.Expr, scope []int64, maxChunks int) cache.Producer {
	return func(ctx context.Context, pageLimit int) (*cache.Produced, error) {
		resp, err := s.dispatch(ctx, expr, scope, req.NodeID)
		if err != nil {
			return nil, err
		}

		total := resp.MatchCount
		if total > s.cfg.CountLimit {
			total = s.cfg.CountLimit
		}

		var pages [][]Item
		if req.MultiMatch {
			chunkPages, err := decoder.DecodeChunks(resp, decoder.Options{
				PerPage:          req.PerPage,
				PageLimit:        pageLimit,
				NumContextLines:  s.cfg.NumContextLines,
				MaxChunksPerFile: maxChunks,
			})
			if err != nil {
				return nil, err
			}
			pages = chunkPagesToItems(chunkPages)
		} else {
			snippetPages, err := decoder.DecodeSnippets(resp, req.PerPage, pageLimit)
			if err != nil {
				return nil, err
			}
			pages = snippetPagesToItems(snippetPages)
		}

		produced := &cache.Produced{
			TotalCount: total,
			FileCount:  resp.FileCount,
		}
		for _, page := range pages {
			raw, err := json.Marshal(page)
			if err != nil {
				return nil, apperrors.InternalError("marshaling result page", err)
			}
			produced.Pages = append(produced.Pages, raw)
		}
		return produced, nil
	}
}

// dispatch sends the envelope: directly to one node when a node id is
// given, otherwise federated across the routing table.
func (s *Service) dispatch(ctx context.Context, expr query.Expr, scope []int64, nodeID *int64) (*backend.SearchResponse, error) {
	var targets map[int64][]int64

	if nodeID != nil {
		targets = map[int64][]int64{*nodeID: scope}
	} else {
		table, err := s.routing.Routes(ctx, scope, func(ctx context.Context) (cache.RoutingTable, error) {
			return s.router.Routes(ctx, scope)
		})
		if err != nil {
			return nil, err
		}
		targets = table
	}

	envelope, err := s.builder.BuildEnvelope(ctx, expr, targets)
	if err != nil {
		return nil, err
	}

	return s.client.Search(ctx, envelope)
}

// filterStale drops items whose project no longer exists or is pending
// deletion, shrinking the total by each dropped item's contribution so
// displayed counts stay consistent with displayed rows.
func (s *Service) filterStale(ctx context.Context, items []Item, total int) ([]Item, int, error) {
	if len(items) == 0 {
		return items, total, nil
	}

	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if !seen[it.ProjectID] {
			seen[it.ProjectID] = true
			ids = append(ids, it.ProjectID)
		}
	}

	projects, err := s.dir.Resolve(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	alive := make(map[int64]bool, len(projects))
	for _, p := range projects {
		if !p.PendingDelete {
			alive[p.ID] = true
		}
	}

	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if !alive[it.ProjectID] {
			total -= it.contribution()
			continue
		}
		kept = append(kept, it)
	}
	if total < 0 {
		total = 0
	}

	return kept, total, nil
}

func (s *Service) publish(event events.Event) {
	if err := s.events.Publish(context.Background(), event); err != nil {
		s.log.WithError(err).Debug("publishing audit event failed")
	}
}

func chunkPagesToItems(pages [][]decoder.FileChunks) [][]Item {
	out := make([][]Item, len(pages))
	for i, page := range pages {
		items := make([]Item, len(page))
		for j, fc := range page {
			items[j] = Item{
				Path:            fc.Path,
				ProjectID:       fc.ProjectID,
				Chunks:          fc.Chunks,
				MatchCountTotal: fc.MatchCountTotal,
				MatchCount:      fc.MatchCount,
			}
		}
		out[i] = items
	}
	return out
}

func snippetPagesToItems(pages [][]decoder.Snippet) [][]Item {
	out := make([][]Item, len(pages))
	for i, page := range pages {
		items := make([]Item, len(page))
		for j, sn := range page {
			items[j] = Item{
				Path:       sn.Path,
				ProjectID:  sn.ProjectID,
				LineNumber: sn.LineNumber,
				Content:    sn.Content,
			}
		}
		out[i] = items
	}
	return out
}
