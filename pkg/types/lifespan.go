package types

import (
	"fmt"
	"maps"
)

// Lifespan is the inferred [Since, Until) version range of an API entry.
// An empty Until means the entry is still present in the newest scanned release.
type Lifespan struct {
	Since string `json:"since"`
	Until string `json:"until,omitempty"`
}

// Removed reports whether the entry disappeared in a scanned release
func (l Lifespan) Removed() bool {
	return l.Until != ""
}

// ClassLifespan holds the lifespan of a class and of every member seen in it
type ClassLifespan struct {
	Since string `json:"since"`
	Until string `json:"until,omitempty"`

	EventsSince     map[string]string `json:"eventsSince"`
	MethodsSince    map[string]string `json:"methodsSince"`
	NamespacesSince map[string]string `json:"namespacesSince"`

	EventsUntil     map[string]string `json:"eventsUntil"`
	MethodsUntil    map[string]string `json:"methodsUntil"`
	NamespacesUntil map[string]string `json:"namespacesUntil"`
}

// NewClassLifespan creates an entry introduced at the given release with empty member maps
func NewClassLifespan(since string) *ClassLifespan {
	return &ClassLifespan{
		Since:           since,
		EventsSince:     make(map[string]string),
		MethodsSince:    make(map[string]string),
		NamespacesSince: make(map[string]string),
		EventsUntil:     make(map[string]string),
		MethodsUntil:    make(map[string]string),
		NamespacesUntil: make(map[string]string),
	}
}

// SinceMap returns the introduction map for a member kind
func (c *ClassLifespan) SinceMap(kind EntryKind) (map[string]string, error) {
	switch kind {
	case KindEvent:
		return c.EventsSince, nil
	case KindMethod:
		return c.MethodsSince, nil
	case KindNamespace:
		return c.NamespacesSince, nil
	case KindClass:
		return nil, fmt.Errorf("%w: class has no member map", ErrUnknownKind)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// UntilMap returns the removal map for a member kind
func (c *ClassLifespan) UntilMap(kind EntryKind) (map[string]string, error) {
	switch kind {
	case KindEvent:
		return c.EventsUntil, nil
	case KindMethod:
		return c.MethodsUntil, nil
	case KindNamespace:
		return c.NamespacesUntil, nil
	case KindClass:
		return nil, fmt.Errorf("%w: class has no member map", ErrUnknownKind)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Class returns the lifespan of the class itself
func (c *ClassLifespan) Class() Lifespan {
	return Lifespan{Since: c.Since, Until: c.Until}
}

// Member returns the lifespan of a member, or false if the member is not
// present in the release this entry belongs to
func (c *ClassLifespan) Member(kind EntryKind, name string) (Lifespan, bool) {
	since, err := c.SinceMap(kind)
	if err != nil {
		return Lifespan{}, false
	}
	s, ok := since[name]
	if !ok {
		return Lifespan{}, false
	}
	until, _ := c.UntilMap(kind)
	return Lifespan{Since: s, Until: until[name]}, true
}

// Clone returns a deep copy
func (c *ClassLifespan) Clone() *ClassLifespan {
	return &ClassLifespan{
		Since:           c.Since,
		Until:           c.Until,
		EventsSince:     maps.Clone(c.EventsSince),
		MethodsSince:    maps.Clone(c.MethodsSince),
		NamespacesSince: maps.Clone(c.NamespacesSince),
		EventsUntil:     maps.Clone(c.EventsUntil),
		MethodsUntil:    maps.Clone(c.MethodsUntil),
		NamespacesUntil: maps.Clone(c.NamespacesUntil),
	}
}
