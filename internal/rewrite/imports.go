package rewrite

import (
	"regexp"
	"strings"
)

// Two regex forms cover the type-only import syntax left behind once the
// compiler emits with annotations stripped from .ts config files we patch
// textually (the bundler config is not run through the compiler).
var (
	// import type { Foo } from 'pkg';  /  import type Foo from 'pkg';
	standaloneTypeImport = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+type[ \t][^;\n]*;[ \t]*\r?\n?`)

	// Named import lists that mix value and type members:
	// import { defineConfig, type UserConfig } from 'vite';
	namedImport = regexp.MustCompile(`import[ \t]*\{([^}]*)\}[ \t]*from[ \t]*(['"][^'"]+['"])[ \t]*;?`)
)

// StripTypeImports removes type-only import statements and type members of
// named import lists. The result is a fixed point: applying the function to
// its own output changes nothing.
func StripTypeImports(text string) string {
	text = standaloneTypeImport.ReplaceAllString(text, "")

	return namedImport.ReplaceAllStringFunc(text, func(stmt string) string {
		m := namedImport.FindStringSubmatch(stmt)
		if m == nil {
			return stmt
		}
		members := strings.Split(m[1], ",")
		kept := make([]string, 0, len(members))
		for _, member := range members {
			trimmed := strings.TrimSpace(member)
			if trimmed == "" || strings.HasPrefix(trimmed, "type ") {
				continue
			}
			kept = append(kept, trimmed)
		}
		if len(kept) == 0 {
			// Whole statement was type-only.
			return ""
		}
		return "import { " + strings.Join(kept, ", ") + " } from " + m[2] + ";"
	})
}
