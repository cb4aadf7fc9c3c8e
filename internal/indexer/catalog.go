package indexer

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/dshills/apidocs/internal/lifespan"
	"github.com/dshills/apidocs/internal/searcher"
	"github.com/dshills/apidocs/internal/storage"
	"github.com/dshills/apidocs/pkg/types"
)

// Catalog is an immutable, fully built view of every indexed release
type Catalog struct {
	lifespans *lifespan.Index
	classes   map[string][]types.Class
	search    map[string]*searcher.Index
	builtAt   time.Time
}

func newCatalog(idx *lifespan.Index, classes map[string][]types.Class) *Catalog {
	c := &Catalog{
		lifespans: idx,
		classes:   classes,
		search:    make(map[string]*searcher.Index, len(classes)),
		builtAt:   time.Now(),
	}
	for release, cls := range classes {
		c.search[release] = searcher.BuildIndex(release, cls)
	}
	return c
}

// Lifespans returns the lifespan index
func (c *Catalog) Lifespans() *lifespan.Index {
	return c.lifespans
}

// Releases returns release names, newest first
func (c *Catalog) Releases() []string {
	return c.lifespans.Releases()
}

// Classes returns the classes a release documents, in document order
func (c *Catalog) Classes(release string) ([]types.Class, bool) {
	cls, ok := c.classes[release]
	return cls, ok
}

// Class returns one class of a release
func (c *Catalog) Class(release, name string) (types.Class, bool) {
	for _, cl := range c.classes[release] {
		if cl.Name == name {
			return cl, true
		}
	}
	return types.Class{}, false
}

// SearchIndex implements searcher.IndexProvider
func (c *Catalog) SearchIndex(release string) (*searcher.Index, bool) {
	idx, ok := c.search[release]
	return idx, ok
}

// BuiltAt returns when the catalog was assembled
func (c *Catalog) BuiltAt() time.Time {
	return c.builtAt
}

// snapshot flattens the catalog into storage rows
func (c *Catalog) snapshot(priorities map[string]int, duration time.Duration) *storage.Snapshot {
	snap := &storage.Snapshot{Duration: duration}

	for pos, release := range c.lifespans.Releases() {
		classes := c.classes[release]
		snap.Releases = append(snap.Releases, &storage.Release{
			Name:       release,
			Priority:   priorities[release],
			Position:   pos,
			ClassCount: len(classes),
		})

		for cpos, cl := range classes {
			ls, _ := c.lifespans.Class(release, cl.Name)
			snap.Classes = append(snap.Classes, &storage.Class{
				Release:     release,
				Name:        cl.Name,
				Position:    cpos,
				Description: cl.Description,
				Since:       ls.Since,
				Until:       ls.Until,
			})

			for _, kind := range types.MemberKinds {
				members, _ := cl.Members(kind)
				for mpos, m := range members {
					l, _ := ls.Member(kind, m.Name)
					snap.Members = append(snap.Members, &storage.Member{
						Release:     release,
						Class:       cl.Name,
						Kind:        kind,
						Name:        m.Name,
						Position:    mpos,
						Args:        m.Args,
						Description: m.Description,
						Since:       l.Since,
						Until:       l.Until,
					})
				}
			}
		}
	}

	return snap
}

// catalogFromSnapshot rebuilds a catalog from stored rows
func catalogFromSnapshot(snap *storage.Snapshot) (*Catalog, error) {
	type classKey struct{ release, class string }

	classes := make(map[string][]types.Class, len(snap.Releases))
	lifespans := make(map[string]map[string]*types.ClassLifespan, len(snap.Releases))
	members := make(map[classKey][]*storage.Member)

	for _, m := range snap.Members {
		k := classKey{m.Release, m.Class}
		members[k] = append(members[k], m)
	}

	for _, c := range snap.Classes {
		cl := types.Class{Name: c.Name, Description: c.Description}
		ls := types.NewClassLifespan(c.Since)
		ls.Until = c.Until

		ms := members[classKey{c.Release, c.Name}]
		slices.SortStableFunc(ms, func(a, b *storage.Member) int {
			return cmp.Compare(a.Position, b.Position)
		})
		for _, m := range ms {
			member := types.Member{Name: m.Name, Args: m.Args, Description: m.Description}
			switch m.Kind {
			case types.KindEvent:
				cl.Events = append(cl.Events, member)
			case types.KindMethod:
				cl.Methods = append(cl.Methods, member)
			case types.KindNamespace:
				cl.Namespaces = append(cl.Namespaces, member)
			default:
				return nil, fmt.Errorf("stored member %s.%s: %w: %q", c.Name, m.Name, types.ErrUnknownKind, m.Kind)
			}
			since, _ := ls.SinceMap(m.Kind)
			since[m.Name] = m.Since
			if m.Until != "" {
				until, _ := ls.UntilMap(m.Kind)
				until[m.Name] = m.Until
			}
		}

		classes[c.Release] = append(classes[c.Release], cl)
		if lifespans[c.Release] == nil {
			lifespans[c.Release] = make(map[string]*types.ClassLifespan)
		}
		lifespans[c.Release][c.Name] = ls
	}

	restored := make([]lifespan.Restored, 0, len(snap.Releases))
	for _, r := range snap.Releases {
		names := make([]string, 0, len(classes[r.Name]))
		for _, cl := range classes[r.Name] {
			names = append(names, cl.Name)
		}
		restored = append(restored, lifespan.Restored{
			Release:   r.Name,
			Classes:   names,
			Lifespans: lifespans[r.Name],
		})
		if classes[r.Name] == nil {
			classes[r.Name] = []types.Class{}
		}
	}

	idx, err := lifespan.Restore(restored)
	if err != nil {
		return nil, fmt.Errorf("failed to restore lifespan index: %w", err)
	}
	return newCatalog(idx, classes), nil
}
