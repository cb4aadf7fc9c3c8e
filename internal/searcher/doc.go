// Package searcher builds the per-release search index of API entries and
// runs fuzzy queries against it.
//
// Every class, event, namespace and method of a release becomes one Item
// with a canonical text:
//
//	Page                        class
//	page.on('close')            event
//	page.keyboard               namespace
//	page.click(selector)        method
//
// The class variable prefix is the class name in lowerCamel form, so the
// JSHandle class yields "jsHandle.evaluate(pageFunction)".
//
// # Basic Usage
//
//	idx := searcher.BuildIndex("v1.2.0", classes)
//
//	s, err := searcher.NewSearcher(catalog, nil)
//	resp, err := s.Search(ctx, searcher.Request{
//	    Release: "v1.2.0",
//	    Query:   "pgclick",
//	    Limit:   20,
//	})
//
//	for _, r := range resp.Results {
//	    nodes, _ := r.Title()
//	    fmt.Println(r.Rank, render.DefaultTheme().ANSI(nodes))
//	}
//
// # Caching
//
// Responses of requests with UseCache set are kept in an LRU cache keyed by
// a SHA-256 hash of the request. Entries expire after the configured TTL and
// the whole cache is purged with InvalidateCache when a new index is
// published.
package searcher
