package types

import (
	"regexp"
	"strings"
)

// Heading is a markdown section heading extracted from a release's API document
type Heading struct {
	Level       int    // 3 for class headings, 4 for member headings
	Text        string // Heading text without the leading hashes
	Description string // First paragraph following the heading, if any
}

// Raw returns the heading in its markdown form, e.g. "### class: Page"
func (h Heading) Raw() string {
	if h.Level <= 0 {
		return h.Text
	}
	return strings.Repeat("#", h.Level) + " " + h.Text
}

// ParseHeadingLine converts a markdown heading line into a Heading.
// Lines that are not ATX headings are returned with Level 0.
func ParseHeadingLine(line string) Heading {
	line = strings.TrimSpace(line)
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || (level < len(line) && line[level] != ' ') {
		return Heading{Text: line}
	}
	return Heading{Level: level, Text: strings.TrimSpace(line[level:])}
}

// Classification is the result of matching a heading against the API grammar
type Classification struct {
	Kind EntryKind // Empty when the heading is not part of the API grammar
	Name string
	Args string // Methods only
}

// IsAPI returns true if the heading opens a class or a member section
func (c Classification) IsAPI() bool {
	return c.Kind != ""
}

const (
	classPrefix = "class:"
	eventPrefix = "event:"
)

// memberPattern matches "classVar.name" optionally followed by an argument list
var memberPattern = regexp.MustCompile(`^([A-Za-z_$][\w$]*)\.([\w$]+)(\(.*)?$`)

// ClassifyHeading classifies a heading according to the API document grammar:
//
//	### class: Name          class
//	#### event: 'name'       event
//	#### classVar.name(args) method
//	#### classVar.name       namespace
//
// Method and namespace headings are told apart by the opening parenthesis.
func ClassifyHeading(h Heading) Classification {
	text := strings.TrimSpace(h.Text)
	switch h.Level {
	case 3:
		if rest, ok := strings.CutPrefix(text, classPrefix); ok {
			name := strings.TrimSpace(rest)
			if name != "" {
				return Classification{Kind: KindClass, Name: name}
			}
		}
	case 4:
		if rest, ok := strings.CutPrefix(text, eventPrefix); ok {
			name := strings.Trim(strings.TrimSpace(rest), `'"`)
			if name != "" {
				return Classification{Kind: KindEvent, Name: name}
			}
			return Classification{}
		}
		m := memberPattern.FindStringSubmatch(text)
		if m == nil {
			return Classification{}
		}
		if m[3] == "" {
			return Classification{Kind: KindNamespace, Name: m[2]}
		}
		args := strings.TrimPrefix(m[3], "(")
		args = strings.TrimSuffix(args, ")")
		return Classification{Kind: KindMethod, Name: m[2], Args: args}
	}
	return Classification{}
}

// ParseResult is the output of extracting headings from one API document
type ParseResult struct {
	Title    string    // First level-1 heading, if any
	Headings []Heading // Every heading in document order
}

// APIHeadings returns only the headings that belong to the API grammar
func (pr *ParseResult) APIHeadings() []Heading {
	out := make([]Heading, 0, len(pr.Headings))
	for _, h := range pr.Headings {
		if ClassifyHeading(h).IsAPI() {
			out = append(out, h)
		}
	}
	return out
}
