package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/apidocs/internal/searcher"
	"github.com/dshills/apidocs/internal/storage"
	"github.com/dshills/apidocs/pkg/types"
)

func setupTestStorage(t testing.TB) storage.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "Failed to create test storage")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// createTestFile creates a release document for testing
func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, name)
	err := os.MkdirAll(filepath.Dir(filePath), 0755)
	require.NoError(t, err)

	err = os.WriteFile(filePath, []byte(content), 0644)
	require.NoError(t, err)

	return filePath
}

const (
	docV1 = `# API v1.0.0

### class: Page

A single tab.

#### event: 'close'

#### page.click(selector)

Clicks an element.

#### page.keyboard

### class: Worker

#### worker.url()
`
	docV11 = `# API v1.1.0

### class: Page

A single tab.

#### page.click(selector[, options])

Clicks an element.

#### page.goto(url)

#### page.keyboard
`
)

// createReleases writes the standard two-release fixture and returns its directory
func createReleases(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	createTestFile(t, dir, "v1.0.0.md", docV1)
	createTestFile(t, dir, "v1.1.0.md", docV11)
	return dir
}

func TestNew(t *testing.T) {
	idx := New(nil)
	require.NotNil(t, idx)
	assert.NotNil(t, idx.parser)
	assert.Nil(t, idx.Catalog())
	assert.False(t, idx.IsIndexing())

	_, ok := idx.SearchIndex("v1.0.0")
	assert.False(t, ok)
}

func TestIndexReleases_Success(t *testing.T) {
	dir := createReleases(t)
	idx := New(setupTestStorage(t))

	stats, err := idx.IndexReleases(context.Background(), dir, &Config{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesParsed)
	assert.Equal(t, 2, stats.ReleasesIndexed)
	assert.Equal(t, 0, stats.ReleasesSkipped)
	assert.Equal(t, 2, stats.Classes)
	// Page: close, click, keyboard, goto; Worker: url
	assert.Equal(t, 5, stats.Members)
	assert.Equal(t, "v1.1.0", stats.NewestRelease)
	assert.Equal(t, "v1.0.0", stats.OldestRelease)
	assert.Greater(t, stats.Duration, time.Duration(0))

	catalog := idx.Catalog()
	require.NotNil(t, catalog)
	assert.Equal(t, []string{"v1.1.0", "v1.0.0"}, catalog.Releases())

	l, ok := catalog.Lifespans().Lookup("v1.0.0", "Page", types.KindEvent, "close")
	require.True(t, ok)
	assert.Equal(t, types.Lifespan{Since: "v1.0.0", Until: "v1.1.0"}, l)

	l, ok = catalog.Lifespans().Lookup("v1.1.0", "Page", types.KindMethod, "click")
	require.True(t, ok)
	assert.Equal(t, types.Lifespan{Since: "v1.0.0"}, l)

	cl, ok := catalog.Lifespans().Class("v1.0.0", "Worker")
	require.True(t, ok)
	assert.Equal(t, "v1.1.0", cl.Until)

	page, ok := catalog.Class("v1.1.0", "Page")
	require.True(t, ok)
	assert.Equal(t, "A single tab.", page.Description)
	require.Len(t, page.Methods, 2)
	assert.Equal(t, "selector[, options]", page.Methods[0].Args)

	si, ok := idx.SearchIndex("v1.1.0")
	require.True(t, ok)
	assert.Equal(t, 4, si.Len())
}

func TestIndexReleases_Persists(t *testing.T) {
	dir := createReleases(t)
	store := setupTestStorage(t)
	idx := New(store)

	_, err := idx.IndexReleases(context.Background(), dir, nil)
	require.NoError(t, err)

	ctx := context.Background()
	releases, err := store.ListReleases(ctx)
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.Equal(t, "v1.1.0", releases[0].Name)
	assert.Equal(t, 10100, releases[0].Priority)

	l, err := store.GetSymbolLifespan(ctx, "v1.0.0", "Page", types.KindEvent, "close")
	require.NoError(t, err)
	assert.Equal(t, types.Lifespan{Since: "v1.0.0", Until: "v1.1.0"}, l)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.ClassesCount)
	assert.Equal(t, 5, status.MembersCount)
	require.NotNil(t, status.LastRun)
}

func TestLoadFromStorage(t *testing.T) {
	dir := createReleases(t)
	store := setupTestStorage(t)

	first := New(store)
	_, err := first.IndexReleases(context.Background(), dir, nil)
	require.NoError(t, err)

	second := New(store)
	loaded, err := second.LoadFromStorage(context.Background())
	require.NoError(t, err)
	require.True(t, loaded)

	want, got := first.Catalog(), second.Catalog()
	require.NotNil(t, got)
	assert.Equal(t, want.Releases(), got.Releases())
	assert.Equal(t, want.Lifespans().Stats(), got.Lifespans().Stats())

	for _, release := range want.Releases() {
		wantClasses, _ := want.Classes(release)
		gotClasses, ok := got.Classes(release)
		require.True(t, ok)
		assert.Equal(t, wantClasses, gotClasses, release)

		for _, c := range wantClasses {
			wl, _ := want.Lifespans().Class(release, c.Name)
			gl, ok := got.Lifespans().Class(release, c.Name)
			require.True(t, ok)
			assert.Equal(t, wl, gl)
		}

		wi, _ := want.SearchIndex(release)
		gi, _ := got.SearchIndex(release)
		assert.Equal(t, wi.Items(), gi.Items())
	}
}

func TestLoadFromStorage_Empty(t *testing.T) {
	loaded, err := New(setupTestStorage(t)).LoadFromStorage(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)

	loaded, err = New(nil).LoadFromStorage(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)
}

func TestIndexReleases_WithoutStorage(t *testing.T) {
	idx := New(nil)
	stats, err := idx.IndexReleases(context.Background(), createReleases(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ReleasesIndexed)
	assert.NotNil(t, idx.Catalog())
}

func TestIndexReleases_SkipsNonVersionNames(t *testing.T) {
	dir := createReleases(t)
	createTestFile(t, dir, "README.md", "# Releases\n")

	stats, err := New(nil).IndexReleases(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ReleasesIndexed)
	assert.Equal(t, 1, stats.ReleasesSkipped)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "README")
}

func TestIndexReleases_TipRelease(t *testing.T) {
	dir := createReleases(t)
	createTestFile(t, dir, "tip.md", "### class: Page\n#### page.goto(url)\n")

	idx := New(nil)
	stats, err := idx.IndexReleases(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "tip", stats.NewestRelease)

	l, ok := idx.Catalog().Lifespans().Lookup("v1.1.0", "Page", types.KindMethod, "click")
	require.True(t, ok)
	assert.Equal(t, "tip", l.Until)
}

func TestIndexReleases_DirectoryPerRelease(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "v2.0.0/a-page.md", "### class: Page\n#### page.goto(url)\n")
	createTestFile(t, dir, "v2.0.0/b-worker.md", "### class: Worker\n#### worker.url()\n")
	createTestFile(t, dir, "v1.0.0.md", "### class: Page\n")

	idx := New(nil)
	stats, err := idx.IndexReleases(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.FilesParsed)
	assert.Equal(t, 2, stats.ReleasesIndexed)

	classes, ok := idx.Catalog().Classes("v2.0.0")
	require.True(t, ok)
	require.Len(t, classes, 2)
	assert.Equal(t, "Page", classes[0].Name)
	assert.Equal(t, "Worker", classes[1].Name)
}

func TestIndexReleases_OrphanSymbolFailsRun(t *testing.T) {
	dir := createReleases(t)
	idx := New(nil)
	_, err := idx.IndexReleases(context.Background(), dir, nil)
	require.NoError(t, err)
	before := idx.Catalog()

	createTestFile(t, dir, "v1.2.0.md", "#### page.goto(url)\n### class: Page\n")

	_, err = idx.IndexReleases(context.Background(), dir, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrOrphanSymbol)

	var headingErr *types.HeadingError
	require.ErrorAs(t, err, &headingErr)
	assert.Equal(t, "v1.2.0", headingErr.Release)

	// Previous catalog stays published
	assert.Same(t, before, idx.Catalog())
}

func TestIndexReleases_NoReleases(t *testing.T) {
	_, err := New(nil).IndexReleases(context.Background(), t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrNoReleases)

	dir := t.TempDir()
	createTestFile(t, dir, "notes.md", "# Notes\n")
	_, err = New(nil).IndexReleases(context.Background(), dir, nil)
	assert.ErrorIs(t, err, ErrNoReleases)
}

func TestIndexReleases_InvalidPattern(t *testing.T) {
	_, err := New(nil).IndexReleases(context.Background(), createReleases(t), &Config{Pattern: "[.md"})
	assert.Error(t, err)
}

func TestIndexReleases_Progress(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []Progress
	)
	config := &Config{
		Workers: 1,
		Progress: func(p Progress) {
			mu.Lock()
			calls = append(calls, p)
			mu.Unlock()
		},
	}

	_, err := New(nil).IndexReleases(context.Background(), createReleases(t), config)
	require.NoError(t, err)

	require.Len(t, calls, 2)
	for i, p := range calls {
		assert.Equal(t, 2, p.Total)
		assert.Equal(t, i+1, p.Done)
	}
}

func TestIndexReleases_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).IndexReleases(ctx, createReleases(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexReleases_ConcurrentCalls(t *testing.T) {
	idx := New(nil)
	require.True(t, idx.lock.TryAcquire())
	assert.True(t, idx.IsIndexing())

	_, err := idx.IndexReleases(context.Background(), createReleases(t), nil)
	assert.ErrorIs(t, err, ErrIndexingInProgress)

	idx.lock.Release()
	_, err = idx.IndexReleases(context.Background(), createReleases(t), nil)
	assert.NoError(t, err)
}

func TestOnPublish(t *testing.T) {
	idx := New(nil)

	var published atomic.Int32
	s, err := searcher.NewSearcher(idx, nil)
	require.NoError(t, err)
	idx.OnPublish(func(*Catalog) {
		published.Add(1)
		s.InvalidateCache()
	})

	dir := createReleases(t)
	_, err = idx.IndexReleases(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), published.Load())

	resp, err := s.Search(context.Background(), searcher.Request{Release: "v1.1.0", Query: "goto", UseCache: true})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, 1, s.CacheLen())

	_, err = idx.IndexReleases(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), published.Load())
	assert.Equal(t, 0, s.CacheLen())
}

func TestDiscoverReleases(t *testing.T) {
	fsys := fstest.MapFS{
		"v1.0.0.md":         {Data: []byte("a")},
		"v1.1.0/page.md":    {Data: []byte("b")},
		"v1.1.0/browser.md": {Data: []byte("c")},
		"v1.1.0/notes.txt":  {Data: []byte("d")},
		".cache/v9.md":      {Data: []byte("e")},
	}

	groups, err := discoverReleases(fsys, DefaultPattern)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "v1.0.0", groups[0].name)
	assert.Equal(t, []string{"v1.0.0.md"}, groups[0].files)
	assert.Equal(t, "v1.1.0", groups[1].name)
	assert.Equal(t, []string{"v1.1.0/browser.md", "v1.1.0/page.md"}, groups[1].files)

	groups, err = discoverReleases(fsys, "*.md")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "v1.0.0", groups[0].name)
}

func TestReleaseName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"v1.2.0.md", "v1.2.0"},
		{"v1.2.0/api.md", "v1.2.0"},
		{"v1.2.0/docs/api/class-page.md", "v1.2.0"},
		{"./tip.md", "tip"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, releaseName(tt.path))
		})
	}
}

func TestCatalogSnapshot(t *testing.T) {
	idx := New(nil)
	_, err := idx.IndexReleases(context.Background(), createReleases(t), nil)
	require.NoError(t, err)

	snap := idx.Catalog().snapshot(map[string]int{"v1.1.0": 10100, "v1.0.0": 10000}, time.Second)
	require.Len(t, snap.Releases, 2)
	assert.Equal(t, 0, snap.Releases[0].Position)
	assert.Equal(t, 1, snap.Releases[0].ClassCount)
	assert.Equal(t, 2, snap.Releases[1].ClassCount)
	assert.Len(t, snap.Classes, 3)
	// v1.1.0: click, goto, keyboard; v1.0.0: close, click, keyboard, url
	assert.Len(t, snap.Members, 7)
	assert.Equal(t, time.Second, snap.Duration)
}

func TestIndexLock_ConcurrentAcquisition(t *testing.T) {
	var lock IndexLock
	const numGoroutines = 100

	var (
		wg       sync.WaitGroup
		acquired atomic.Int32
	)
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			if lock.TryAcquire() {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load(), "exactly one goroutine should acquire the lock")
	assert.True(t, lock.Held())

	lock.Release()
	assert.False(t, lock.Held())
	assert.True(t, lock.TryAcquire(), "lock should be available after Release")
}

func BenchmarkIndexReleases(b *testing.B) {
	dir := b.TempDir()
	for i := 0; i < 20; i++ {
		content := "### class: Page\n"
		for j := 0; j < 50; j++ {
			if (i+j)%7 != 0 {
				content += fmt.Sprintf("#### page.method%d(arg)\n", j)
			}
		}
		createTestFile(b, dir, fmt.Sprintf("v1.%d.0.md", i), content)
	}

	idx := New(nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.IndexReleases(context.Background(), dir, nil); err != nil {
			b.Fatal(err)
		}
	}
}
