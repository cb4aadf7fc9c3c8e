package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/apidocs/pkg/types"
)

// Parser extracts section headings from markdown API documents
type Parser struct {
	md goldmark.Markdown
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// ParseFile reads a markdown file and extracts its headings
func (p *Parser) ParseFile(filePath string) (*types.ParseResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(content), nil
}

// ParseRelease extracts headings from src and wraps them into a release whose
// priority is derived from name
func (p *Parser) ParseRelease(name string, src []byte) (*types.Release, error) {
	result := p.Parse(src)
	release, err := types.NewRelease(name, result.Headings)
	if err != nil {
		return nil, fmt.Errorf("failed to create release %s: %w", name, err)
	}
	return release, nil
}

// Parse extracts every top-level heading of a markdown document in order.
// The first paragraph directly following a heading becomes its description.
func (p *Parser) Parse(src []byte) *types.ParseResult {
	doc := p.md.Parser().Parse(text.NewReader(src))
	result := &types.ParseResult{}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}

		heading := types.Heading{
			Level: h.Level,
			Text:  nodeText(h, src),
		}
		if para, ok := h.NextSibling().(*ast.Paragraph); ok {
			heading.Description = nodeText(para, src)
		}

		if h.Level == 1 && result.Title == "" {
			result.Title = heading.Text
		}
		result.Headings = append(result.Headings, heading)
	}

	return result
}

// nodeText concatenates the inline text under n, with line breaks collapsed to spaces
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
