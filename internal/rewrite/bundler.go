package rewrite

import (
	"regexp"
	"strings"
)

// The two known source paths the bundler config points at.
var bundlerPathRefs = [][2]string{
	{"app/entry.client.tsx", "app/entry.client.jsx"},
	{"app/entry.server.tsx", "app/entry.server.jsx"},
}

// dirnameHelper is the run-time replacement for the CommonJS __dirname
// variable in an ES-module bundler config.
const dirnameHelper = "const __dirname = path.dirname(fileURLToPath(import.meta.url));"

const fileURLImport = "import { fileURLToPath } from 'node:url';"

var lastImportLine = regexp.MustCompile(`(?m)^import\b[^\n]*\n(?:import\b[^\n]*\n)*`)

// RewriteBundlerConfig converts the bundler config in place: strips
// type-only imports, retargets the known source paths, and injects the
// __dirname helper when the variable is referenced but not yet defined.
// Re-running against already-converted content is a no-op.
func RewriteBundlerConfig(text string) string {
	text = StripTypeImports(text)

	for _, ref := range bundlerPathRefs {
		text = strings.ReplaceAll(text, ref[0], ref[1])
	}

	if strings.Contains(text, "__dirname") && !strings.Contains(text, "fileURLToPath") {
		helper := fileURLImport + "\n\n" + dirnameHelper + "\n"
		if loc := lastImportLine.FindStringIndex(text); loc != nil {
			text = text[:loc[1]] + "\n" + helper + text[loc[1]:]
		} else {
			text = helper + "\n" + text
		}
	}

	return text
}
