// Package render turns a search item's styled tokens and a set of matched
// character offsets into runs that a UI can draw.
//
// Offsets count runes across the concatenated token texts. Each token becomes
// one Node whose runs alternate between plain and highlighted text:
//
//	tokens := []render.Token{{"page.", render.StyleClass}, {"goto(url)", render.StyleName}}
//	nodes, err := render.Render(tokens, []int{0, 1, 5, 6})
//	// nodes[0].Runs: "pa"* "ge."
//	// nodes[1].Runs: "go"* "to(url)"
//
// The Node list can be printed with Theme.ANSI, HTML or Plain.
package render
