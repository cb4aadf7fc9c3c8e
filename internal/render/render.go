package render

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsortedOffsets is returned when match offsets are not strictly increasing
	ErrUnsortedOffsets = errors.New("match offsets are not strictly increasing")

	// ErrOffsetOutOfRange is returned when a match offset falls outside the rendered text
	ErrOffsetOutOfRange = errors.New("match offset out of range")
)

// Style is the visual role of a token
type Style string

const (
	StyleClass Style = "class" // Owning class prefix, e.g. "page."
	StyleName  Style = "name"  // Entry name and signature
)

// Token is a styled fragment of a search item's canonical text
type Token struct {
	Text  string `json:"text"`
	Style Style  `json:"style"`
}

// Run is a maximal stretch of a token's text sharing one highlight state
type Run struct {
	Text      string `json:"text"`
	Highlight bool   `json:"highlight,omitempty"`
}

// Node is one rendered token: its style and the runs it splits into
type Node struct {
	Style Style `json:"style"`
	Runs  []Run `json:"runs"`
}

// Text joins the token texts
func Text(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Render splits tokens into highlighted and plain runs.
//
// offsets are rune positions into the concatenation of all token texts and
// must be strictly increasing. Highlighted runs never span two tokens, so a
// match crossing a token boundary yields one run on each side. Empty runs are
// never produced.
func Render(tokens []Token, offsets []int) ([]Node, error) {
	if len(offsets) == 0 {
		nodes := make([]Node, 0, len(tokens))
		for _, t := range tokens {
			n := Node{Style: t.Style}
			if t.Text != "" {
				n.Runs = []Run{{Text: t.Text}}
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	}

	total := 0
	for _, t := range tokens {
		total += utf8.RuneCountInString(t.Text)
	}
	if err := checkOffsets(offsets, total); err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(tokens))
	global := 0 // Rune offset of the current token's first character
	next := 0   // Index into offsets of the first offset not yet consumed

	for _, t := range tokens {
		runes := []rune(t.Text)
		n := Node{Style: t.Style}

		start := 0
		highlight := false
		for pos := 0; pos <= len(runes); pos++ {
			matched := false
			if pos < len(runes) && next < len(offsets) && offsets[next] == global+pos {
				matched = true
			}
			if pos == len(runes) || (pos > start && matched != highlight) {
				if pos > start {
					n.Runs = append(n.Runs, Run{Text: string(runes[start:pos]), Highlight: highlight})
				}
				start = pos
			}
			if pos < len(runes) {
				highlight = matched
				if matched {
					next++
				}
			}
		}

		nodes = append(nodes, n)
		global += len(runes)
	}

	return nodes, nil
}

func checkOffsets(offsets []int, total int) error {
	for i, o := range offsets {
		if o < 0 || o >= total {
			return fmt.Errorf("%w: %d not in [0, %d)", ErrOffsetOutOfRange, o, total)
		}
		if i > 0 && o <= offsets[i-1] {
			return fmt.Errorf("%w: %d follows %d", ErrUnsortedOffsets, o, offsets[i-1])
		}
	}
	return nil
}

// Plain joins the text of every run, dropping highlight information
func Plain(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		for _, r := range n.Runs {
			b.WriteString(r.Text)
		}
	}
	return b.String()
}

// Highlighted returns the highlighted substrings in order
func Highlighted(nodes []Node) []string {
	var out []string
	for _, n := range nodes {
		for _, r := range n.Runs {
			if r.Highlight {
				out = append(out, r.Text)
			}
		}
	}
	return out
}
