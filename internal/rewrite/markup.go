// Package rewrite contains the text-level transformations applied to the
// staging tree after compilation: markup classification, type-import
// stripping, extension reference rewrites and metadata edits.
//
// Everything here is pattern-based, not syntax-aware. The helpers are kept
// behind small functions so a real parser could replace them later without
// touching call sites.
package rewrite

import "regexp"

// markupPattern matches an opening-tag-like sequence: '<', word characters,
// then whitespace or a self-closing bracket. Generic syntax or string
// literals that happen to match are misclassified, and attribute-less tags
// like <div> are missed; both are accepted limitations of the heuristic.
var markupPattern = regexp.MustCompile(`<\w+(\s|/>)`)

// LooksLikeMarkup reports whether emitted JavaScript still contains embedded
// UI markup and should carry the .jsx extension.
func LooksLikeMarkup(text string) bool {
	return markupPattern.MatchString(text)
}
