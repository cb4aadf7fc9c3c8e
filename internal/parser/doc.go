// Package parser extracts the section headings of a release's markdown API
// reference using goldmark.
//
// The parser does not interpret the headings; it only returns them in
// document order together with the paragraph that follows each one.
// Classification into classes, events, methods and namespaces is done by
// types.ClassifyHeading.
//
// # Basic Usage
//
//	p := parser.New()
//	release, err := p.ParseRelease("v1.2.0", content)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	classes, err := types.ScanClasses(release)
package parser
