package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/apidocs/internal/lifespan"
	"github.com/dshills/apidocs/internal/logger"
	"github.com/dshills/apidocs/internal/parser"
	"github.com/dshills/apidocs/internal/searcher"
	"github.com/dshills/apidocs/internal/storage"
	"github.com/dshills/apidocs/pkg/types"
)

// DefaultPattern matches every markdown document under the releases directory
const DefaultPattern = "**/*.md"

var (
	// ErrIndexingInProgress is returned when a rebuild is already running
	ErrIndexingInProgress = errors.New("indexing already in progress")
	// ErrNoReleases is returned when no release document matches the pattern
	ErrNoReleases = errors.New("no release documents found")
)

// Indexer coordinates the indexing pipeline:
// discover -> parse -> lifespan index -> search indexes -> store -> publish
type Indexer struct {
	parser  *parser.Parser
	storage storage.Storage // Optional

	lock    IndexLock
	catalog atomic.Pointer[Catalog]

	mu        sync.Mutex
	onPublish []func(*Catalog)
}

// Config contains configuration for one indexing run
type Config struct {
	Workers  int            // Number of concurrent workers (default: runtime.NumCPU())
	Pattern  string         // Doublestar glob relative to the releases directory (default: DefaultPattern)
	Progress func(Progress) // Called after each release document set is parsed
}

// Progress reports parsing progress
type Progress struct {
	Total   int
	Done    int
	Release string
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	FilesParsed     int
	ReleasesIndexed int
	ReleasesSkipped int
	Classes         int
	Members         int
	NewestRelease   string
	OldestRelease   string
	Duration        time.Duration
	ErrorMessages   []string
}

// New creates a new Indexer instance. store may be nil, in which case the
// computed index is only kept in memory.
func New(store storage.Storage) *Indexer {
	return &Indexer{
		parser:  parser.New(),
		storage: store,
	}
}

// OnPublish registers fn to be called each time a new catalog is published
func (idx *Indexer) OnPublish(fn func(*Catalog)) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.onPublish = append(idx.onPublish, fn)
}

// Catalog returns the most recently published catalog, or nil
func (idx *Indexer) Catalog() *Catalog {
	return idx.catalog.Load()
}

// SearchIndex implements searcher.IndexProvider over the current catalog
func (idx *Indexer) SearchIndex(release string) (*searcher.Index, bool) {
	c := idx.catalog.Load()
	if c == nil {
		return nil, false
	}
	return c.SearchIndex(release)
}

// IsIndexing reports whether a rebuild is running
func (idx *Indexer) IsIndexing() bool {
	return idx.lock.Held()
}

// IndexReleases parses every release document under dir, computes the
// lifespan and search indexes, persists them and publishes a new catalog.
//
// Documents are grouped into releases by the first path segment without its
// .md suffix, so both "v1.2.0.md" and "v1.2.0/api.md" belong to v1.2.0.
// Releases whose name is not a version are skipped and reported in the
// statistics. A malformed heading sequence in any release fails the run and
// leaves the current catalog in place.
func (idx *Indexer) IndexReleases(ctx context.Context, dir string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pattern := config.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}

	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	groups, err := discoverReleases(os.DirFS(dir), pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to discover releases: %w", err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w in %s matching %s", ErrNoReleases, dir, pattern)
	}
	logger.Debug("discovered %d releases in %s", len(groups), dir)

	releases, err := idx.parseReleases(ctx, dir, groups, workers, config.Progress, stats)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, fmt.Errorf("%w: every release was skipped", ErrNoReleases)
	}

	types.SortNewestFirst(releases)
	lifespans, err := lifespan.Build(releases, &lifespan.Options{Workers: workers})
	if err != nil {
		return nil, fmt.Errorf("failed to build lifespan index: %w", err)
	}

	classes := make(map[string][]types.Class, len(releases))
	priorities := make(map[string]int, len(releases))
	for _, r := range releases {
		// Build has already scanned every release without error
		cls, err := types.ScanClasses(r)
		if err != nil {
			return nil, err
		}
		classes[r.Name] = cls
		priorities[r.Name] = r.Priority
	}

	catalog := newCatalog(lifespans, classes)

	if idx.storage != nil {
		if err := idx.storage.ReplaceIndex(ctx, catalog.snapshot(priorities, time.Since(startTime))); err != nil {
			return nil, fmt.Errorf("failed to store index: %w", err)
		}
	}

	idx.publish(catalog)

	s := lifespans.Stats()
	names := lifespans.Releases()
	stats.ReleasesIndexed = s.Releases
	stats.Classes = s.Classes
	stats.Members = s.Members
	stats.NewestRelease = names[0]
	stats.OldestRelease = names[len(names)-1]
	stats.Duration = time.Since(startTime)

	logger.Info("indexed %d releases (%s..%s), %d classes, %d members in %v",
		stats.ReleasesIndexed, stats.OldestRelease, stats.NewestRelease,
		stats.Classes, stats.Members, stats.Duration)

	return stats, nil
}

// LoadFromStorage publishes a catalog rebuilt from the stored index.
// It returns false when nothing has been stored yet.
func (idx *Indexer) LoadFromStorage(ctx context.Context) (bool, error) {
	if idx.storage == nil {
		return false, nil
	}

	snap, err := idx.storage.LoadSnapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load stored index: %w", err)
	}
	if len(snap.Releases) == 0 {
		return false, nil
	}

	catalog, err := catalogFromSnapshot(snap)
	if err != nil {
		return false, err
	}
	idx.publish(catalog)
	logger.Debug("loaded %d releases from storage", len(snap.Releases))
	return true, nil
}

func (idx *Indexer) publish(c *Catalog) {
	idx.catalog.Store(c)

	idx.mu.Lock()
	hooks := slices.Clone(idx.onPublish)
	idx.mu.Unlock()

	for _, fn := range hooks {
		fn(c)
	}
}

// releaseGroup is the set of documents making up one release
type releaseGroup struct {
	name  string
	files []string // Slash-separated paths relative to the releases directory, sorted
}

// discoverReleases finds release documents matching pattern and groups them by release name
func discoverReleases(fsys fs.FS, pattern string) ([]releaseGroup, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)

	byName := make(map[string]*releaseGroup)
	var groups []*releaseGroup
	for _, m := range matches {
		name := releaseName(m)
		if name == "" || strings.HasPrefix(name, ".") {
			continue
		}
		g, ok := byName[name]
		if !ok {
			g = &releaseGroup{name: name}
			byName[name] = g
			groups = append(groups, g)
		}
		g.files = append(g.files, m)
	}

	out := make([]releaseGroup, len(groups))
	for i, g := range groups {
		out[i] = *g
	}
	return out, nil
}

// releaseName returns the first path segment without a .md suffix
func releaseName(p string) string {
	first, _, _ := strings.Cut(path.Clean(p), "/")
	return strings.TrimSuffix(first, ".md")
}

// parseReleases parses each release group concurrently. Groups whose name is
// not a valid version are skipped; read failures abort the run.
func (idx *Indexer) parseReleases(ctx context.Context, dir string, groups []releaseGroup, workers int,
	progress func(Progress), stats *Statistics) ([]*types.Release, error) {

	results := make([]*types.Release, len(groups))
	var (
		done    atomic.Int32
		files   atomic.Int32
		skipped atomic.Int32
		mu      sync.Mutex // Protect stats.ErrorMessages and progress callback
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, group := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if _, err := types.ParsePriority(group.name); err != nil {
				skipped.Add(1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: skipped: %v", group.name, err))
				mu.Unlock()
				logger.Warn("skipping %s: %v", group.name, err)
			} else {
				r, err := idx.parseGroup(dir, group)
				if err != nil {
					return err
				}
				results[i] = r
				files.Add(int32(len(group.files)))
			}

			n := int(done.Add(1))
			if progress != nil {
				mu.Lock()
				progress(Progress{Total: len(groups), Done: n, Release: group.name})
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.FilesParsed = int(files.Load())
	stats.ReleasesSkipped = int(skipped.Load())

	releases := make([]*types.Release, 0, len(results))
	for _, r := range results {
		if r != nil {
			releases = append(releases, r)
		}
	}
	return releases, nil
}

// parseGroup concatenates the headings of every document of a release in path order
func (idx *Indexer) parseGroup(dir string, group releaseGroup) (*types.Release, error) {
	var headings []types.Heading
	for _, f := range group.files {
		result, err := idx.parser.ParseFile(filepath.Join(dir, filepath.FromSlash(f)))
		if err != nil {
			return nil, fmt.Errorf("release %s: %s: %w", group.name, f, err)
		}
		headings = append(headings, result.Headings...)
	}
	return types.NewRelease(group.name, headings)
}
