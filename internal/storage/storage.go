package storage

import (
	"context"
	"time"

	"github.com/dshills/apidocs/pkg/types"
)

// Storage defines the interface for persisting and querying the computed
// lifespan index. Raw release documents are never stored.
type Storage interface {
	// Index operations
	ReplaceIndex(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// Release operations
	ListReleases(ctx context.Context) ([]*Release, error)
	GetRelease(ctx context.Context, name string) (*Release, error)

	// Class and member operations
	ListClasses(ctx context.Context, release string) ([]*Class, error)
	ListMembers(ctx context.Context, release, class string) ([]*Member, error)
	GetClassLifespan(ctx context.Context, release, class string) (*types.ClassLifespan, error)
	GetSymbolLifespan(ctx context.Context, release, class string, kind types.EntryKind, name string) (types.Lifespan, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Snapshot is a complete computed index, written and read as a unit
type Snapshot struct {
	Releases []*Release // Newest first
	Classes  []*Class
	Members  []*Member
	Duration time.Duration // Time taken to compute the index
}

// Release represents one indexed release
type Release struct {
	Name       string
	Priority   int
	Position   int // 0 for the newest release
	ClassCount int
	IndexedAt  time.Time
}

// Class represents a class as documented in one release, with its lifespan
// as seen from that release
type Class struct {
	Release     string
	Name        string
	Position    int // Document order within the release
	Description string
	Since       string
	Until       string
}

// Member represents an event, method or namespace of a class in one release
type Member struct {
	Release     string
	Class       string
	Kind        types.EntryKind
	Name        string
	Position    int // Document order within the class and kind
	Args        string
	Description string
	Since       string
	Until       string
}

// Lifespan returns the member's lifespan
func (m *Member) Lifespan() types.Lifespan {
	return types.Lifespan{Since: m.Since, Until: m.Until}
}

// IndexRun records one completed indexing run
type IndexRun struct {
	ID        int64
	Releases  int
	Classes   int
	Members   int
	Duration  time.Duration
	CreatedAt time.Time
}

// Status contains statistics about the stored index
type Status struct {
	ReleasesCount int
	ClassesCount  int
	MembersCount  int
	NewestRelease string
	OldestRelease string
	IndexSizeMB   float64
	LastRun       *IndexRun // Nil if nothing was indexed yet
	Health        HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible bool
	SchemaVersion      string
	BuildMode          string
}
