package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/apidocs/pkg/types"
)

// mapProvider serves fixed indexes for testing
type mapProvider map[string]*Index

func (m mapProvider) SearchIndex(release string) (*Index, bool) {
	idx, ok := m[release]
	return idx, ok
}

// setupTestSearcher creates a searcher over one indexed release
func setupTestSearcher(t *testing.T, opts *Options) *Searcher {
	t.Helper()

	provider := mapProvider{"v1.0.0": BuildIndex("v1.0.0", testClasses())}
	s, err := NewSearcher(provider, opts)
	if err != nil {
		t.Fatalf("failed to create searcher: %v", err)
	}
	return s
}

// TestNewSearcher verifies searcher creation
func TestNewSearcher(t *testing.T) {
	s := setupTestSearcher(t, nil)
	if s.ttl != DefaultCacheTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultCacheTTL, s.ttl)
	}
	if s.cache == nil {
		t.Fatal("expected cache to be created")
	}

	s = setupTestSearcher(t, &Options{CacheSize: 10, CacheTTL: time.Minute})
	if s.ttl != time.Minute {
		t.Errorf("expected TTL 1m, got %v", s.ttl)
	}
}

// TestValidateRequest tests request validation
func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         Request
		expectError bool
		validate    func(t *testing.T, req *Request)
	}{
		{
			name:        "EmptyRelease",
			req:         Request{Query: "page"},
			expectError: true,
		},
		{
			name: "ZeroLimit_DefaultsTo50",
			req:  Request{Release: "v1.0.0", Query: "page"},
			validate: func(t *testing.T, req *Request) {
				if req.Limit != DefaultLimit {
					t.Errorf("expected default limit %d, got %d", DefaultLimit, req.Limit)
				}
			},
		},
		{
			name: "ExcessiveLimit_CapsAt500",
			req:  Request{Release: "v1.0.0", Query: "page", Limit: 10000},
			validate: func(t *testing.T, req *Request) {
				if req.Limit != MaxLimit {
					t.Errorf("expected capped limit %d, got %d", MaxLimit, req.Limit)
				}
			},
		},
		{
			name: "QueryTrimmed",
			req:  Request{Release: "v1.0.0", Query: "  goto "},
			validate: func(t *testing.T, req *Request) {
				if req.Query != "goto" {
					t.Errorf("expected trimmed query, got %q", req.Query)
				}
			},
		},
		{
			name:        "UnknownKind",
			req:         Request{Release: "v1.0.0", Kinds: []types.EntryKind{"function"}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(&tt.req)

			if tt.expectError && err == nil {
				t.Fatal("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, &tt.req)
			}
		})
	}
}

func TestSearch_RanksBestMatchFirst(t *testing.T) {
	s := setupTestSearcher(t, nil)

	resp, err := s.Search(context.Background(), Request{Release: "v1.0.0", Query: "goto"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}

	top := resp.Results[0]
	if top.Item.Text != "page.goto(url[, options])" {
		t.Errorf("expected page.goto first, got %q", top.Item.Text)
	}
	if top.Rank != 1 {
		t.Errorf("expected rank 1, got %d", top.Rank)
	}
	want := []int{5, 6, 7, 8}
	if len(top.Offsets) != len(want) {
		t.Fatalf("expected offsets %v, got %v", want, top.Offsets)
	}
	for i := range want {
		if top.Offsets[i] != want[i] {
			t.Fatalf("expected offsets %v, got %v", want, top.Offsets)
		}
	}

	nodes, err := top.Title()
	if err != nil {
		t.Fatalf("title failed: %v", err)
	}
	if len(nodes) != 2 || nodes[1].Runs[0].Text != "goto" || !nodes[1].Runs[0].Highlight {
		t.Errorf("unexpected title nodes: %+v", nodes)
	}

	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i-1].Score < resp.Results[i].Score {
			t.Errorf("results not in descending order at position %d", i)
		}
	}
}

func TestSearch_EmptyQueryKeepsIndexOrder(t *testing.T) {
	s := setupTestSearcher(t, nil)

	resp, err := s.Search(context.Background(), Request{Release: "v1.0.0"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.TotalMatches != 7 || len(resp.Results) != 7 {
		t.Fatalf("expected all 7 items, got %d", len(resp.Results))
	}
	if resp.Results[0].Item.Text != "Page" || resp.Results[6].Item.Name != "evaluate" {
		t.Errorf("expected index order, got %q .. %q", resp.Results[0].Item.Text, resp.Results[6].Item.Text)
	}
	for _, r := range resp.Results {
		if len(r.Offsets) != 0 {
			t.Errorf("expected no offsets for empty query, got %v", r.Offsets)
		}
	}
}

func TestSearch_KindFilterAndLimit(t *testing.T) {
	s := setupTestSearcher(t, nil)

	resp, err := s.Search(context.Background(), Request{
		Release: "v1.0.0",
		Kinds:   []types.EntryKind{types.KindMethod},
		Limit:   2,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.TotalMatches != 3 {
		t.Errorf("expected 3 methods before truncation, got %d", resp.TotalMatches)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	for _, r := range resp.Results {
		if r.Item.Kind != types.KindMethod {
			t.Errorf("unexpected kind %s", r.Item.Kind)
		}
	}
}

func TestSearch_NoMatches(t *testing.T) {
	s := setupTestSearcher(t, nil)

	resp, err := s.Search(context.Background(), Request{Release: "v1.0.0", Query: "zzzz"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected no results, got %d", len(resp.Results))
	}
}

func TestSearch_UnknownRelease(t *testing.T) {
	s := setupTestSearcher(t, nil)

	_, err := s.Search(context.Background(), Request{Release: "v9.9.9", Query: "page"})
	if !errors.Is(err, ErrReleaseNotFound) {
		t.Errorf("expected ErrReleaseNotFound, got %v", err)
	}
}

func TestSearch_NoProvider(t *testing.T) {
	s, err := NewSearcher(nil, nil)
	if err != nil {
		t.Fatalf("failed to create searcher: %v", err)
	}

	_, err = s.Search(context.Background(), Request{Release: "v1.0.0"})
	if !errors.Is(err, ErrNoCatalog) {
		t.Errorf("expected ErrNoCatalog, got %v", err)
	}
}

func TestSearch_ContextCancellation(t *testing.T) {
	s := setupTestSearcher(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, Request{Release: "v1.0.0", Query: "page"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSearchWithCache(t *testing.T) {
	s := setupTestSearcher(t, nil)
	ctx := context.Background()
	req := Request{Release: "v1.0.0", Query: "page", UseCache: true}

	first, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if first.CacheHit {
		t.Error("first search should not hit the cache")
	}
	if s.CacheLen() != 1 {
		t.Fatalf("expected 1 cached entry, got %d", s.CacheLen())
	}

	// Mutating a returned response must not leak into the cache
	first.Results[0].Offsets[0] = 99

	second, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !second.CacheHit {
		t.Error("second search should hit the cache")
	}
	if second.Results[0].Offsets[0] == 99 {
		t.Error("cached response shares offsets with a returned response")
	}

	s.InvalidateCache()
	if s.CacheLen() != 0 {
		t.Errorf("expected empty cache after invalidation, got %d", s.CacheLen())
	}
}

func TestCheckCache_Expired(t *testing.T) {
	s := setupTestSearcher(t, &Options{CacheTTL: time.Nanosecond})
	req := Request{Release: "v1.0.0", Query: "page", Limit: DefaultLimit}

	s.storeInCache(req, &Response{Release: "v1.0.0"})
	time.Sleep(time.Millisecond)

	if _, ok := s.checkCache(req); ok {
		t.Error("expected expired entry to miss")
	}
	if s.CacheLen() != 0 {
		t.Errorf("expected expired entry to be removed, got %d entries", s.CacheLen())
	}
}

// TestComputeQueryHash tests query hash computation
func TestComputeQueryHash(t *testing.T) {
	base := Request{Release: "v1.0.0", Query: "page", Limit: 10}

	tests := []struct {
		name     string
		other    Request
		shouldEq bool
	}{
		{"IdenticalRequests", base, true},
		{"CacheFlagIgnored", Request{Release: "v1.0.0", Query: "page", Limit: 10, UseCache: true}, true},
		{"DifferentRelease", Request{Release: "v2.0.0", Query: "page", Limit: 10}, false},
		{"DifferentQuery", Request{Release: "v1.0.0", Query: "goto", Limit: 10}, false},
		{"DifferentLimit", Request{Release: "v1.0.0", Query: "page", Limit: 20}, false},
		{"DifferentKinds", Request{Release: "v1.0.0", Query: "page", Limit: 10, Kinds: []types.EntryKind{types.KindEvent}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eq := computeQueryHash(base) == computeQueryHash(tt.other)
			if eq != tt.shouldEq {
				t.Errorf("expected equal=%v, got %v", tt.shouldEq, eq)
			}
		})
	}
}
