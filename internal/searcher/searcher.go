package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/apidocs/internal/fuzzy"
	"github.com/dshills/apidocs/internal/render"
	"github.com/dshills/apidocs/pkg/types"
)

const (
	DefaultLimit     = 50
	MaxLimit         = 500
	DefaultCacheSize = 1000
	DefaultCacheTTL  = time.Hour
)

var (
	// ErrReleaseNotFound is returned when the requested release has no search index
	ErrReleaseNotFound = errors.New("release not indexed")
	// ErrNoCatalog is returned when searching before any index was published
	ErrNoCatalog = errors.New("no index available")
)

// IndexProvider gives access to the search index of each release
type IndexProvider interface {
	SearchIndex(release string) (*Index, bool)
}

// Request contains parameters for a search operation
type Request struct {
	Release  string
	Query    string
	Limit    int
	Kinds    []types.EntryKind // Empty means all kinds
	UseCache bool
}

// Result is one matched item
type Result struct {
	Item    Item  `json:"item"`
	Offsets []int `json:"offsets"`
	Score   int   `json:"score"`
	Rank    int   `json:"rank"`
}

// Title renders the matched item's title with the match highlighted
func (r Result) Title() ([]render.Node, error) {
	return r.Item.Title(r.Offsets)
}

// Response contains search results and metadata
type Response struct {
	Release      string        `json:"release"`
	Query        string        `json:"query"`
	Results      []Result      `json:"results"`
	TotalMatches int           `json:"total_matches"` // Matches before truncation to the limit
	Duration     time.Duration `json:"duration"`
	CacheHit     bool          `json:"cache_hit"`
}

// Options configures a Searcher
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher runs fuzzy queries against the search indexes of a provider
type Searcher struct {
	provider IndexProvider
	ttl      time.Duration
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewSearcher creates a new Searcher instance
func NewSearcher(provider IndexProvider, opts *Options) (*Searcher, error) {
	size, ttl := DefaultCacheSize, DefaultCacheTTL
	if opts != nil {
		if opts.CacheSize > 0 {
			size = opts.CacheSize
		}
		if opts.CacheTTL > 0 {
			ttl = opts.CacheTTL
		}
	}

	cache, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &Searcher{
		provider: provider,
		ttl:      ttl,
		cache:    cache,
	}, nil
}

// Search matches the query against every item of the release's index.
// Results are ordered by descending score; equal scores keep index order.
// An empty query returns the items in index order.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached, ok := s.checkCache(req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	if s.provider == nil {
		return nil, ErrNoCatalog
	}
	idx, ok := s.provider.SearchIndex(req.Release)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReleaseNotFound, req.Release)
	}

	results, err := match(ctx, idx, req)
	if err != nil {
		return nil, err
	}

	total := len(results)
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	response := &Response{
		Release:      req.Release,
		Query:        req.Query,
		Results:      results,
		TotalMatches: total,
		Duration:     time.Since(startTime),
	}

	if req.UseCache {
		s.storeInCache(req, response)
	}

	return response, nil
}

func match(ctx context.Context, idx *Index, req Request) ([]Result, error) {
	var results []Result
	for i, it := range idx.Items() {
		// Large releases have a few thousand items; check for cancellation periodically
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if len(req.Kinds) > 0 && !slices.Contains(req.Kinds, it.Kind) {
			continue
		}
		m, ok := fuzzy.Match(req.Query, it.Text)
		if !ok {
			continue
		}
		results = append(results, Result{Item: it, Offsets: m.Offsets, Score: m.Score})
	}

	if req.Query != "" {
		slices.SortStableFunc(results, func(a, b Result) int {
			return b.Score - a.Score
		})
	}
	return results, nil
}

// validateRequest ensures search request is valid
func validateRequest(req *Request) error {
	if req.Release == "" {
		return types.ErrEmptyReleaseName
	}

	req.Query = strings.TrimSpace(req.Query)

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	for _, k := range req.Kinds {
		if err := k.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// checkCache looks up cached search results
func (s *Searcher) checkCache(req Request) (*Response, bool) {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil, false
	}

	response := copyResponse(entry.response)
	s.cacheMu.RUnlock()

	return response, true
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(req Request, response *Response) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(s.ttl),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// copyResponse creates a copy of a Response that shares no offsets slices.
// Items are immutable and are shared.
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Results = make([]Result, len(src.Results))
	for i, r := range src.Results {
		dst.Results[i] = r
		dst.Results[i].Offsets = slices.Clone(r.Offsets)
	}
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req Request) [32]byte {
	var data strings.Builder
	data.WriteString(req.Release)
	data.WriteString("|")
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(strconv.Itoa(req.Limit))
	data.WriteString("|kinds:")
	for _, k := range req.Kinds {
		data.WriteString(string(k))
		data.WriteString(",")
	}

	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops every cached response. Called after reindexing.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}
