// Package lifespan reconstructs, from per-release snapshots of an API
// reference, the version in which every class, event, method and namespace
// was introduced and the version in which it was removed.
//
// # Basic Usage
//
//	types.SortNewestFirst(releases)
//	idx, err := lifespan.Build(releases, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l, ok := idx.Lookup("v1.0.0", "Page", types.KindMethod, "close")
//	if ok {
//	    fmt.Printf("since %s until %s\n", l.Since, l.Until)
//	}
//
// # Pipeline
//
// Build runs three phases, each returning a fresh sequence of per-release
// snapshots:
//
//   - build: every release is scanned on its own; every class and member it
//     documents is marked as introduced at that release
//   - since: walking from oldest to newest, an entry present in two adjacent
//     releases inherits the introduction version of the older one
//   - until: walking from newest to oldest, an entry present in a release but
//     absent from the next newer one is marked as removed at that newer
//     release; otherwise it inherits the newer release's removal version
//
// The reconstruction samples discrete releases. An entry that disappears and
// later comes back under the same name is seen as newly introduced at the
// release where it reappears; older releases keep the first removal version.
package lifespan
