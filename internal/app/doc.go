// Package app wires storage, indexer and searcher together for the
// command-line tool and its servers.
package app
