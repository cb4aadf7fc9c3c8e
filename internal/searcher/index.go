package searcher

import (
	"unicode"

	"github.com/dshills/apidocs/internal/render"
	"github.com/dshills/apidocs/pkg/types"
)

// Icons shown next to search items
const (
	IconClass     = "symbol-class"
	IconMethod    = "symbol-method"
	IconEvent     = "symbol-event"
	IconNamespace = "symbol-namespace"
)

// Item is one searchable API entry of a release
type Item struct {
	Kind        types.EntryKind `json:"kind"`
	Class       string          `json:"class"`
	Name        string          `json:"name"` // Class name for class items
	Text        string          `json:"text"` // Canonical text the matcher runs against
	Icon        string          `json:"icon"`
	Description string          `json:"description,omitempty"`
	Tokens      []render.Token  `json:"tokens"`
}

// Title renders the item's canonical text with the given rune offsets highlighted
func (it Item) Title(offsets []int) ([]render.Node, error) {
	return render.Render(it.Tokens, offsets)
}

// Index is the ordered list of search items of one release.
// It performs no matching itself.
type Index struct {
	release string
	items   []Item
}

// BuildIndex creates the search index of a release. For each class, in
// document order, the class item comes first, then its events, namespaces
// and methods.
func BuildIndex(release string, classes []types.Class) *Index {
	idx := &Index{release: release}
	for _, c := range classes {
		idx.items = append(idx.items, classItem(c))
		prefix := lowerCamel(c.Name)
		for _, e := range c.Events {
			idx.items = append(idx.items, memberItem(c.Name, prefix, types.KindEvent, e))
		}
		for _, ns := range c.Namespaces {
			idx.items = append(idx.items, memberItem(c.Name, prefix, types.KindNamespace, ns))
		}
		for _, m := range c.Methods {
			idx.items = append(idx.items, memberItem(c.Name, prefix, types.KindMethod, m))
		}
	}
	return idx
}

// Release returns the release the index was built from
func (idx *Index) Release() string {
	return idx.release
}

// Items returns the items in index order. The slice must not be modified.
func (idx *Index) Items() []Item {
	return idx.items
}

// Len returns the number of items
func (idx *Index) Len() int {
	return len(idx.items)
}

func classItem(c types.Class) Item {
	return Item{
		Kind:        types.KindClass,
		Class:       c.Name,
		Name:        c.Name,
		Text:        c.Name,
		Icon:        IconClass,
		Description: c.Description,
		Tokens:      []render.Token{{Text: c.Name, Style: render.StyleName}},
	}
}

func memberItem(class, prefix string, kind types.EntryKind, m types.Member) Item {
	var rest, icon string
	switch kind {
	case types.KindEvent:
		rest = "on('" + m.Name + "')"
		icon = IconEvent
	case types.KindNamespace:
		rest = m.Name
		icon = IconNamespace
	default:
		rest = m.Name + "(" + m.Args + ")"
		icon = IconMethod
	}

	return Item{
		Kind:        kind,
		Class:       class,
		Name:        m.Name,
		Text:        prefix + "." + rest,
		Icon:        icon,
		Description: m.Description,
		Tokens: []render.Token{
			{Text: prefix + ".", Style: render.StyleClass},
			{Text: rest, Style: render.StyleName},
		},
	}
}

// lowerCamel converts a class name into the variable name used in member
// headings: the leading run of capitals is lowercased, except that the last
// capital of a multi-letter run stays upper when a lowercase letter follows
// (JSHandle -> jsHandle, Page -> page, URL -> url).
func lowerCamel(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n == 0 {
		return name
	}

	end := n
	if n > 1 && n < len(runes) && unicode.IsLower(runes[n]) {
		end = n - 1
	}
	for i := 0; i < end; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
