package lifespan

import (
	"fmt"

	"github.com/dshills/apidocs/pkg/types"
)

// Restored is one release of a previously computed index, as read back from storage
type Restored struct {
	Release   string
	Classes   []string // Class names in document order
	Lifespans map[string]*types.ClassLifespan
}

// Restore rebuilds an Index from previously computed results without
// running the pipeline again. Releases must be given newest first.
func Restore(releases []Restored) (*Index, error) {
	snaps := make([]snapshot, len(releases))
	seen := make(map[string]bool, len(releases))

	for i, r := range releases {
		if r.Release == "" {
			return nil, types.ErrEmptyReleaseName
		}
		if seen[r.Release] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRelease, r.Release)
		}
		seen[r.Release] = true

		s := snapshot{
			release: r.Release,
			classes: make(map[string]*types.ClassLifespan, len(r.Classes)),
			order:   append([]string(nil), r.Classes...),
		}
		for _, name := range r.Classes {
			cl, ok := r.Lifespans[name]
			if !ok || cl == nil {
				return nil, fmt.Errorf("release %s: class %s has no lifespan", r.Release, name)
			}
			s.classes[name] = cl.Clone()
		}
		if len(s.classes) != len(r.Lifespans) {
			return nil, fmt.Errorf("release %s: lifespans do not match class list", r.Release)
		}
		snaps[i] = s
	}

	return newIndex(snaps), nil
}
