package types

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// TipPriority orders tip-of-tree snapshots after every published release
const TipPriority = math.MaxInt32

// tipAliases are release names that denote an unreleased snapshot
var tipAliases = map[string]bool{
	"tip":    true,
	"main":   true,
	"master": true,
	"next":   true,
}

// Release is one snapshot of a library's API surface
type Release struct {
	Name     string
	Priority int // major*10000 + minor*100 + patch
	Headings []Heading
}

// NewRelease creates a release whose priority is derived from its name
func NewRelease(name string, headings []Heading) (*Release, error) {
	priority, err := ParsePriority(name)
	if err != nil {
		return nil, err
	}
	return &Release{
		Name:     name,
		Priority: priority,
		Headings: headings,
	}, nil
}

// ParsePriority computes the total order key for a release name.
// Tip aliases get TipPriority.
func ParsePriority(name string) (int, error) {
	if name == "" {
		return 0, ErrEmptyReleaseName
	}
	if tipAliases[strings.ToLower(name)] {
		return TipPriority, nil
	}
	v, err := semver.NewVersion(name)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidVersion, name, err)
	}
	if v.Minor() > 99 || v.Patch() > 99 {
		return 0, fmt.Errorf("%w %q: minor and patch must be below 100", ErrInvalidVersion, name)
	}
	return int(v.Major())*10000 + int(v.Minor())*100 + int(v.Patch()), nil
}

// Validate checks that the release can be indexed
func (r *Release) Validate() error {
	if r.Name == "" {
		return ErrEmptyReleaseName
	}
	return nil
}

// CompareNewestFirst orders releases by descending priority, ties by descending name
func CompareNewestFirst(a, b *Release) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return cmp.Compare(b.Name, a.Name)
}

// SortNewestFirst sorts releases in place, newest first
func SortNewestFirst(releases []*Release) {
	slices.SortStableFunc(releases, CompareNewestFirst)
}
