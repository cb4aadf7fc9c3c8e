package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/apidocs/internal/app"
	"github.com/dshills/apidocs/internal/indexer"
	"github.com/dshills/apidocs/internal/lifespan"
	"github.com/dshills/apidocs/internal/render"
	"github.com/dshills/apidocs/internal/searcher"
	"github.com/dshills/apidocs/pkg/types"
)

type releaseResponse struct {
	Name       string    `json:"name"`
	Priority   int       `json:"priority"`
	ClassCount int       `json:"class_count"`
	IndexedAt  time.Time `json:"indexed_at"`
}

type classSummary struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Lifespan    types.Lifespan `json:"lifespan"`
	Events      int            `json:"events"`
	Methods     int            `json:"methods"`
	Namespaces  int            `json:"namespaces"`
}

type memberResponse struct {
	Name        string         `json:"name"`
	Args        string         `json:"args,omitempty"`
	Description string         `json:"description,omitempty"`
	Lifespan    types.Lifespan `json:"lifespan"`
}

type classResponse struct {
	Release     string           `json:"release"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Lifespan    types.Lifespan   `json:"lifespan"`
	Events      []memberResponse `json:"events"`
	Methods     []memberResponse `json:"methods"`
	Namespaces  []memberResponse `json:"namespaces"`
}

type searchResult struct {
	Rank        int             `json:"rank"`
	Score       int             `json:"score"`
	Kind        types.EntryKind `json:"kind"`
	Class       string          `json:"class"`
	Name        string          `json:"name"`
	Text        string          `json:"text"`
	Icon        string          `json:"icon"`
	Description string          `json:"description,omitempty"`
	Offsets     []int           `json:"offsets"`
	Nodes       []render.Node   `json:"nodes"`
	HTML        string          `json:"html"`
}

type searchResponse struct {
	Release      string         `json:"release"`
	Query        string         `json:"query"`
	TotalMatches int            `json:"total_matches"`
	CacheHit     bool           `json:"cache_hit"`
	DurationMS   int64          `json:"duration_ms"`
	Results      []searchResult `json:"results"`
}

type historyResponse struct {
	Class       string                `json:"class"`
	Kind        types.EntryKind       `json:"kind"`
	Name        string                `json:"name,omitempty"`
	Occurrences []lifespan.Occurrence `json:"occurrences"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"indexed": s.app.Indexer.Catalog() != nil,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.app.Storage.GetStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"releases_count":       status.ReleasesCount,
		"classes_count":        status.ClassesCount,
		"members_count":        status.MembersCount,
		"newest_release":       status.NewestRelease,
		"oldest_release":       status.OldestRelease,
		"index_size_mb":        status.IndexSizeMB,
		"schema_version":       status.Health.SchemaVersion,
		"build_mode":           status.Health.BuildMode,
		"indexing_in_progress": s.app.Indexer.IsIndexing(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Index(r.Context(), app.IndexOptions{})
	var headingErr *types.HeadingError
	switch {
	case err == nil:
	case errors.Is(err, indexer.ErrIndexingInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, indexer.ErrNoReleases), errors.As(err, &headingErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"releases_indexed": stats.ReleasesIndexed,
		"releases_skipped": stats.ReleasesSkipped,
		"classes":          stats.Classes,
		"members":          stats.Members,
		"newest_release":   stats.NewestRelease,
		"oldest_release":   stats.OldestRelease,
		"duration_ms":      stats.Duration.Milliseconds(),
		"errors":           stats.ErrorMessages,
	})
}

func (s *Server) handleListReleases(w http.ResponseWriter, r *http.Request) {
	releases, err := s.app.Storage.ListReleases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]releaseResponse, 0, len(releases))
	for _, rel := range releases {
		out = append(out, releaseResponse{
			Name:       rel.Name,
			Priority:   rel.Priority,
			ClassCount: rel.ClassCount,
			IndexedAt:  rel.IndexedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// catalogRelease resolves the published catalog and the {release} URL parameter
func (s *Server) catalogRelease(w http.ResponseWriter, r *http.Request) (*indexer.Catalog, string, bool) {
	catalog := s.app.Indexer.Catalog()
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "nothing indexed yet")
		return nil, "", false
	}
	release := chi.URLParam(r, "release")
	if !catalog.Lifespans().HasRelease(release) {
		writeError(w, http.StatusNotFound, "release not indexed: "+release)
		return nil, "", false
	}
	return catalog, release, true
}

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	catalog, release, ok := s.catalogRelease(w, r)
	if !ok {
		return
	}

	classes, _ := catalog.Classes(release)
	out := make([]classSummary, 0, len(classes))
	for _, c := range classes {
		l, _ := catalog.Lifespans().Lookup(release, c.Name, types.KindClass, "")
		out = append(out, classSummary{
			Name:        c.Name,
			Description: c.Description,
			Lifespan:    l,
			Events:      len(c.Events),
			Methods:     len(c.Methods),
			Namespaces:  len(c.Namespaces),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	catalog, release, ok := s.catalogRelease(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "class")
	c, ok := catalog.Class(release, name)
	if !ok {
		writeError(w, http.StatusNotFound, "class not found: "+name)
		return
	}
	ls, _ := catalog.Lifespans().Class(release, name)

	members := func(kind types.EntryKind, in []types.Member) []memberResponse {
		out := make([]memberResponse, 0, len(in))
		for _, m := range in {
			l, _ := ls.Member(kind, m.Name)
			out = append(out, memberResponse{
				Name:        m.Name,
				Args:        m.Args,
				Description: m.Description,
				Lifespan:    l,
			})
		}
		return out
	}

	writeJSON(w, http.StatusOK, classResponse{
		Release:     release,
		Name:        c.Name,
		Description: c.Description,
		Lifespan:    ls.Class(),
		Events:      members(types.KindEvent, c.Events),
		Methods:     members(types.KindMethod, c.Methods),
		Namespaces:  members(types.KindNamespace, c.Namespaces),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	_, release, ok := s.catalogRelease(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := s.app.Config.Search.Limit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > searcher.MaxLimit {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and "+strconv.Itoa(searcher.MaxLimit))
			return
		}
		limit = n
	}

	kinds, err := parseKinds(q["kind"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.app.Searcher.Search(r.Context(), searcher.Request{
		Release:  release,
		Query:    q.Get("q"),
		Limit:    limit,
		Kinds:    kinds,
		UseCache: true,
	})
	if errors.Is(err, searcher.ErrReleaseNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := searchResponse{
		Release:      resp.Release,
		Query:        resp.Query,
		TotalMatches: resp.TotalMatches,
		CacheHit:     resp.CacheHit,
		DurationMS:   resp.Duration.Milliseconds(),
		Results:      make([]searchResult, 0, len(resp.Results)),
	}
	for _, res := range resp.Results {
		nodes, err := res.Title()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out.Results = append(out.Results, searchResult{
			Rank:        res.Rank,
			Score:       res.Score,
			Kind:        res.Item.Kind,
			Class:       res.Item.Class,
			Name:        res.Item.Name,
			Text:        res.Item.Text,
			Icon:        res.Item.Icon,
			Description: res.Item.Description,
			Offsets:     res.Offsets,
			Nodes:       nodes,
			HTML:        render.HTML(nodes),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	catalog := s.app.Indexer.Catalog()
	if catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "nothing indexed yet")
		return
	}

	class := chi.URLParam(r, "class")
	q := r.URL.Query()
	kind := types.KindClass
	if v := q.Get("kind"); v != "" {
		k, err := types.ParseKind(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		kind = k
	}
	name := q.Get("name")
	if kind.IsMember() && name == "" {
		writeError(w, http.StatusBadRequest, "name is required for members")
		return
	}

	occurrences := catalog.Lifespans().History(class, kind, name)
	if len(occurrences) == 0 {
		writeError(w, http.StatusNotFound, "symbol not found in any release")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Class:       class,
		Kind:        kind,
		Name:        name,
		Occurrences: occurrences,
	})
}

// parseKinds accepts repeated and comma-separated kind parameters
func parseKinds(values []string) ([]types.EntryKind, error) {
	var kinds []types.EntryKind
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			k, err := types.ParseKind(part)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}
