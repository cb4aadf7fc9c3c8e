// Package indexer runs the end-to-end pipeline that turns a directory of
// per-release API documents into a searchable lifespan catalog.
//
// # Basic Usage
//
//	idx := indexer.New(store)
//
//	stats, err := idx.IndexReleases(ctx, "./releases", &indexer.Config{
//	    Workers: 4,
//	    Pattern: "**/*.md",
//	})
//
//	fmt.Printf("Indexed %d releases in %v\n", stats.ReleasesIndexed, stats.Duration)
//
// # Indexing Pipeline
//
//  1. Discovery: match documents with a doublestar glob and group them by
//     release name (first path segment, .md suffix removed)
//  2. Parse: extract headings of every release concurrently
//  3. Lifespan: sort releases newest first and build the lifespan index
//  4. Search: build one search index per release
//  5. Store: replace the stored index in a single transaction
//  6. Publish: swap in the new Catalog and notify OnPublish hooks
//
// A failure at any step leaves the previously published catalog in place.
//
// # Concurrency
//
// Only one rebuild runs at a time; a concurrent IndexReleases call returns
// ErrIndexingInProgress immediately. Readers obtain the current Catalog with
// Catalog() and never observe a partially built one.
package indexer
