package lifespan

import (
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/apidocs/pkg/types"
)

var (
	// ErrUnsorted is returned when releases are not ordered newest first
	ErrUnsorted = errors.New("releases must be ordered newest first")
	// ErrDuplicateRelease is returned when two releases share a name
	ErrDuplicateRelease = errors.New("duplicate release name")
)

// snapshot is the lifespan view of a single release at some phase of the pipeline
type snapshot struct {
	release string
	classes map[string]*types.ClassLifespan
	order   []string // Class names in document order
}

// clone returns a deep copy so that each phase works on its own data
func (s snapshot) clone() snapshot {
	classes := make(map[string]*types.ClassLifespan, len(s.classes))
	for name, cl := range s.classes {
		classes[name] = cl.Clone()
	}
	return snapshot{release: s.release, classes: classes, order: s.order}
}

func cloneAll(in []snapshot) []snapshot {
	out := make([]snapshot, len(in))
	for i, s := range in {
		out[i] = s.clone()
	}
	return out
}

// Options configures index construction
type Options struct {
	Workers int // Concurrent release scans in the build phase (default: runtime.NumCPU())
}

// Build computes the lifespan index for releases ordered newest first.
//
// The pipeline runs three phases in strict order: build (per release,
// independent), since propagation (oldest to newest) and until propagation
// (newest to oldest). A single malformed release fails the whole build.
func Build(releases []*types.Release, opts *Options) (*Index, error) {
	if err := checkOrder(releases); err != nil {
		return nil, err
	}

	workers := runtime.NumCPU()
	if opts != nil && opts.Workers > 0 {
		workers = opts.Workers
	}

	built, err := buildPhase(releases, workers)
	if err != nil {
		return nil, err
	}
	final := propagateUntil(propagateSince(built))
	return newIndex(final), nil
}

// checkOrder verifies that priorities never increase and names are unique.
// Equal priorities keep the caller's order.
func checkOrder(releases []*types.Release) error {
	seen := make(map[string]bool, len(releases))
	for i, r := range releases {
		if r == nil {
			return fmt.Errorf("release %d is nil", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateRelease, r.Name)
		}
		seen[r.Name] = true
		if i > 0 && r.Priority > releases[i-1].Priority {
			return fmt.Errorf("%w: %s (%d) follows %s (%d)", ErrUnsorted,
				r.Name, r.Priority, releases[i-1].Name, releases[i-1].Priority)
		}
	}
	return nil
}

// buildPhase scans every release concurrently. Results are stored by
// position so the outcome does not depend on scheduling; when several
// releases fail, the newest one is reported.
func buildPhase(releases []*types.Release, workers int) ([]snapshot, error) {
	snaps := make([]snapshot, len(releases))
	errs := make([]error, len(releases))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, r := range releases {
		g.Go(func() error {
			s, err := scanRelease(r)
			if err != nil {
				errs[i] = err
				return err
			}
			snaps[i] = s
			return nil
		})
	}

	if g.Wait() != nil {
		for i, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("failed to scan release %s: %w", releases[i].Name, err)
			}
		}
	}
	return snaps, nil
}

// scanRelease creates one lifespan entry per class, with every class and
// member introduced at this release and nothing removed yet
func scanRelease(r *types.Release) (snapshot, error) {
	classes, err := types.ScanClasses(r)
	if err != nil {
		return snapshot{}, err
	}

	s := snapshot{
		release: r.Name,
		classes: make(map[string]*types.ClassLifespan, len(classes)),
		order:   make([]string, 0, len(classes)),
	}
	for i := range classes {
		class := &classes[i]
		cl := types.NewClassLifespan(r.Name)
		for _, kind := range types.MemberKinds {
			members, err := class.Members(kind)
			if err != nil {
				return snapshot{}, err
			}
			since, err := cl.SinceMap(kind)
			if err != nil {
				return snapshot{}, err
			}
			for _, m := range members {
				since[m.Name] = r.Name
			}
		}
		s.classes[class.Name] = cl
		s.order = append(s.order, class.Name)
	}
	return s, nil
}

// propagateSince walks from the second oldest release to the newest and
// carries introduction versions forward through adjacent releases
func propagateSince(in []snapshot) []snapshot {
	out := cloneAll(in)
	for i := len(out) - 2; i >= 0; i-- {
		cur, prev := out[i], out[i+1]
		for name, cl := range cur.classes {
			p, ok := prev.classes[name]
			if !ok {
				continue
			}
			cl.Since = p.Since
			for _, kind := range types.MemberKinds {
				since, _ := cl.SinceMap(kind)
				prevSince, _ := p.SinceMap(kind)
				for member := range since {
					if v, ok := prevSince[member]; ok {
						since[member] = v
					}
				}
			}
		}
	}
	return out
}

// propagateUntil walks from the newest release to the oldest and resolves
// the release at which each class and member was first found absent
func propagateUntil(in []snapshot) []snapshot {
	out := cloneAll(in)
	for i := 1; i < len(out); i++ {
		cur, next := out[i], out[i-1]
		for name, cl := range cur.classes {
			n, ok := next.classes[name]
			if !ok {
				// The whole class vanished, taking its members with it
				cl.Until = next.release
				for _, kind := range types.MemberKinds {
					since, _ := cl.SinceMap(kind)
					until, _ := cl.UntilMap(kind)
					for member := range since {
						until[member] = next.release
					}
				}
				continue
			}

			cl.Until = n.Until
			for _, kind := range types.MemberKinds {
				since, _ := cl.SinceMap(kind)
				until, _ := cl.UntilMap(kind)
				nextSince, _ := n.SinceMap(kind)
				nextUntil, _ := n.UntilMap(kind)
				for member := range since {
					if v, ok := nextUntil[member]; ok {
						until[member] = v
					} else if _, ok := nextSince[member]; !ok {
						until[member] = next.release
					}
				}
			}
		}
	}
	return out
}

// Index is the finished lifespan index. It is read-only after Build returns.
type Index struct {
	releases  []string // Newest first
	byRelease map[string]snapshot
}

func newIndex(snaps []snapshot) *Index {
	idx := &Index{
		releases:  make([]string, len(snaps)),
		byRelease: make(map[string]snapshot, len(snaps)),
	}
	for i, s := range snaps {
		idx.releases[i] = s.release
		idx.byRelease[s.release] = s
	}
	return idx
}

// Releases returns release names, newest first
func (idx *Index) Releases() []string {
	return slices.Clone(idx.releases)
}

// HasRelease reports whether the release was indexed
func (idx *Index) HasRelease(release string) bool {
	_, ok := idx.byRelease[release]
	return ok
}

// ClassNames returns the classes documented in a release, in document order
func (idx *Index) ClassNames(release string) []string {
	s, ok := idx.byRelease[release]
	if !ok {
		return nil
	}
	return slices.Clone(s.order)
}

// ClassesLifespan returns a copy of the class lifespans of a release keyed by class name
func (idx *Index) ClassesLifespan(release string) (map[string]*types.ClassLifespan, bool) {
	s, ok := idx.byRelease[release]
	if !ok {
		return nil, false
	}
	out := make(map[string]*types.ClassLifespan, len(s.classes))
	for name, cl := range s.classes {
		out[name] = cl.Clone()
	}
	return out, true
}

// Class returns the lifespan entry of a class as seen from a release
func (idx *Index) Class(release, class string) (types.ClassLifespan, bool) {
	s, ok := idx.byRelease[release]
	if !ok {
		return types.ClassLifespan{}, false
	}
	cl, ok := s.classes[class]
	if !ok {
		return types.ClassLifespan{}, false
	}
	return *cl.Clone(), true
}

// Lookup returns the lifespan of a class (kind KindClass, name ignored) or of
// one of its members as seen from a release. Unknown entries yield false.
func (idx *Index) Lookup(release, class string, kind types.EntryKind, name string) (types.Lifespan, bool) {
	s, ok := idx.byRelease[release]
	if !ok {
		return types.Lifespan{}, false
	}
	cl, ok := s.classes[class]
	if !ok {
		return types.Lifespan{}, false
	}
	switch kind {
	case types.KindClass:
		return cl.Class(), true
	case types.KindEvent, types.KindMethod, types.KindNamespace:
		return cl.Member(kind, name)
	default:
		return types.Lifespan{}, false
	}
}

// Occurrence is the lifespan of an entry as seen from one release containing it
type Occurrence struct {
	Release  string         `json:"release"`
	Lifespan types.Lifespan `json:"lifespan"`
}

// History lists every release, newest first, in which the entry is present
func (idx *Index) History(class string, kind types.EntryKind, name string) []Occurrence {
	var out []Occurrence
	for _, release := range idx.releases {
		if l, ok := idx.Lookup(release, class, kind, name); ok {
			out = append(out, Occurrence{Release: release, Lifespan: l})
		}
	}
	return out
}

// Stats summarises the index contents
type Stats struct {
	Releases int
	Classes  int // Distinct class names across all releases
	Members  int // Distinct (class, kind, member) triples across all releases
}

// Stats computes summary counts
func (idx *Index) Stats() Stats {
	classes := make(map[string]bool)
	members := make(map[string]bool)
	for _, s := range idx.byRelease {
		for name, cl := range s.classes {
			classes[name] = true
			for _, kind := range types.MemberKinds {
				since, _ := cl.SinceMap(kind)
				for m := range maps.Keys(since) {
					members[name+"|"+string(kind)+"|"+m] = true
				}
			}
		}
	}
	return Stats{Releases: len(idx.releases), Classes: len(classes), Members: len(members)}
}
