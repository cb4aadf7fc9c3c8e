// Package types provides the domain types shared by the apidocs packages.
//
// A Release is one snapshot of a library's API document, reduced to its
// markdown headings. ClassifyHeading maps a heading onto the document
// grammar:
//
//	### class: Page              class
//	#### event: 'close'          event
//	#### page.click(selector)    method
//	#### page.keyboard           namespace
//
// ScanClasses groups the classified headings into Class values in document
// order. Releases are totally ordered by ParsePriority, which accepts
// semantic versions (major*10000 + minor*100 + patch) and the tip aliases
// "tip", "main", "master" and "next".
//
// Lifespan and ClassLifespan carry the computed [Since, Until) ranges of
// classes and their members as seen from one release. An empty Until means
// the entry is still present in the newest release.
package types
