package rewrite

import (
	"regexp"
	"strings"
)

var ignoresArray = regexp.MustCompile(`(ignores\s*:\s*\[)([^\]]*)(\])`)

// RewriteLintIgnores removes every entry of the lint config's ignores array
// that textually references the staging output directory, preserving all
// other entries and their order. Content without an ignores array is
// returned unchanged.
func RewriteLintIgnores(text, stagingDir string) string {
	return ignoresArray.ReplaceAllStringFunc(text, func(block string) string {
		m := ignoresArray.FindStringSubmatch(block)
		if m == nil {
			return block
		}
		entries := strings.Split(m[2], ",")
		kept := make([]string, 0, len(entries))
		for _, entry := range entries {
			trimmed := strings.TrimSpace(entry)
			if trimmed == "" {
				continue
			}
			if strings.Contains(trimmed, stagingDir) {
				continue
			}
			kept = append(kept, trimmed)
		}
		return m[1] + strings.Join(kept, ", ") + m[3]
	})
}
