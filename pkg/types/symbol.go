package types

import "fmt"

// EntryKind discriminates the kinds of documented API entries
type EntryKind string

const (
	KindClass     EntryKind = "class"
	KindEvent     EntryKind = "event"
	KindMethod    EntryKind = "method"
	KindNamespace EntryKind = "namespace"
)

// MemberKinds lists the kinds a class owns, in search listing order
var MemberKinds = []EntryKind{KindEvent, KindNamespace, KindMethod}

// ParseKind converts a kind name into an EntryKind
func ParseKind(s string) (EntryKind, error) {
	switch EntryKind(s) {
	case KindClass, KindEvent, KindMethod, KindNamespace:
		return EntryKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Validate checks if the kind is one of the known kinds
func (k EntryKind) Validate() error {
	_, err := ParseKind(string(k))
	return err
}

// IsMember returns true for kinds owned by a class
func (k EntryKind) IsMember() bool {
	return k == KindEvent || k == KindMethod || k == KindNamespace
}

// Member is one event, method or namespace documented under a class
type Member struct {
	Name        string
	Args        string // Raw argument list for methods, e.g. "selector[, options]"
	Description string
}

// Class is the API surface of one class in a single release
type Class struct {
	Name        string
	Description string

	// Members in document order
	Events     []Member
	Methods    []Member
	Namespaces []Member
}

// Members returns the members of the given kind
func (c *Class) Members(kind EntryKind) ([]Member, error) {
	switch kind {
	case KindEvent:
		return c.Events, nil
	case KindMethod:
		return c.Methods, nil
	case KindNamespace:
		return c.Namespaces, nil
	case KindClass:
		return nil, fmt.Errorf("%w: class is not a member kind", ErrUnknownKind)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Has reports whether the class documents a member of the given kind and name
func (c *Class) Has(kind EntryKind, name string) bool {
	members, err := c.Members(kind)
	if err != nil {
		return false
	}
	for _, m := range members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// add appends a member unless one with the same name already exists
func (c *Class) add(kind EntryKind, m Member) {
	if c.Has(kind, m.Name) {
		return
	}
	switch kind {
	case KindEvent:
		c.Events = append(c.Events, m)
	case KindMethod:
		c.Methods = append(c.Methods, m)
	case KindNamespace:
		c.Namespaces = append(c.Namespaces, m)
	}
}
