package rewrite

import (
	"regexp"
	"strings"
)

// Import-like references: the old extension inside a quoted module path.
// Order matters: .tsx must be rewritten before .ts so the shared prefix does
// not leave a dangling "x".
var (
	quotedTSXRef = regexp.MustCompile(`(['"][^'"]*)\.tsx(['"])`)
	quotedTSRef  = regexp.MustCompile(`(['"][^'"]*)\.ts(['"])`)
)

// RewriteExtensionRefs replaces literal occurrences of the old source
// extensions with their converted counterparts inside quoted references.
// Only these literal substitutions are performed; no reference graph is
// built - the upstream entry points are structurally fixed.
func RewriteExtensionRefs(text string) string {
	text = quotedTSXRef.ReplaceAllString(text, `${1}.jsx${2}`)
	text = quotedTSRef.ReplaceAllString(text, `${1}.js${2}`)
	return text
}

// Known view-template directives referencing the old entry/page paths.
var templateRefs = [][2]string{
	{`src="/app/entry.client.tsx"`, `src="/app/entry.client.jsx"`},
	{`src="/app/root.tsx"`, `src="/app/root.jsx"`},
}

// RewriteViewTemplate patches the exact known markup patterns in the view
// template. Returns the patched text and whether anything changed.
func RewriteViewTemplate(text string) (string, bool) {
	changed := false
	for _, ref := range templateRefs {
		if replaced := strings.ReplaceAll(text, ref[0], ref[1]); replaced != text {
			text = replaced
			changed = true
		}
	}
	return text, changed
}
