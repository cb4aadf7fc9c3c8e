package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/apidocs/internal/render"
	"github.com/dshills/apidocs/pkg/types"
)

func testClasses() []types.Class {
	return []types.Class{
		{
			Name:        "Page",
			Description: "A browser tab.",
			Events:      []types.Member{{Name: "close"}},
			Methods: []types.Member{
				{Name: "goto", Args: "url[, options]", Description: "Navigates."},
				{Name: "title"},
			},
			Namespaces: []types.Member{{Name: "keyboard"}},
		},
		{
			Name:    "JSHandle",
			Methods: []types.Member{{Name: "evaluate", Args: "pageFunction[, ...args]"}},
		},
	}
}

func TestBuildIndex_Order(t *testing.T) {
	idx := BuildIndex("v1.0.0", testClasses())
	assert.Equal(t, "v1.0.0", idx.Release())
	require.Equal(t, 7, idx.Len())

	var texts []string
	for _, it := range idx.Items() {
		texts = append(texts, it.Text)
	}
	assert.Equal(t, []string{
		"Page",
		"page.on('close')",
		"page.keyboard",
		"page.goto(url[, options])",
		"page.title()",
		"JSHandle",
		"jsHandle.evaluate(pageFunction[, ...args])",
	}, texts)
}

func TestBuildIndex_Items(t *testing.T) {
	items := BuildIndex("v1.0.0", testClasses()).Items()

	assert.Equal(t, Item{
		Kind:        types.KindClass,
		Class:       "Page",
		Name:        "Page",
		Text:        "Page",
		Icon:        IconClass,
		Description: "A browser tab.",
		Tokens:      []render.Token{{Text: "Page", Style: render.StyleName}},
	}, items[0])

	assert.Equal(t, Item{
		Kind:  types.KindEvent,
		Class: "Page",
		Name:  "close",
		Text:  "page.on('close')",
		Icon:  IconEvent,
		Tokens: []render.Token{
			{Text: "page.", Style: render.StyleClass},
			{Text: "on('close')", Style: render.StyleName},
		},
	}, items[1])

	assert.Equal(t, IconNamespace, items[2].Icon)
	assert.Equal(t, types.KindNamespace, items[2].Kind)

	assert.Equal(t, IconMethod, items[3].Icon)
	assert.Equal(t, "Navigates.", items[3].Description)
	assert.Equal(t, []render.Token{
		{Text: "page.", Style: render.StyleClass},
		{Text: "goto(url[, options])", Style: render.StyleName},
	}, items[3].Tokens)
}

func TestBuildIndex_TokensJoinToText(t *testing.T) {
	for _, it := range BuildIndex("v1.0.0", testClasses()).Items() {
		assert.Equal(t, it.Text, render.Text(it.Tokens), it.Text)
	}
}

func TestBuildIndex_Empty(t *testing.T) {
	idx := BuildIndex("v1.0.0", nil)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Items())
}

func TestItemTitle(t *testing.T) {
	items := BuildIndex("v1.0.0", testClasses()).Items()
	nodes, err := items[3].Title([]int{0, 1, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []string{"pa", "go"}, render.Highlighted(nodes))
	assert.Equal(t, "page.goto(url[, options])", render.Plain(nodes))
}

func TestLowerCamel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Page", "page"},
		{"JSHandle", "jsHandle"},
		{"URL", "url"},
		{"BrowserContext", "browserContext"},
		{"CDPSession", "cdpSession"},
		{"A", "a"},
		{"already", "already"},
		{"", ""},
		{"ElementHandle", "elementHandle"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, lowerCamel(tt.in))
		})
	}
}
