package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTypeImportsStandalone(t *testing.T) {
	in := "import type { UserConfig } from 'vite';\nimport react from '@vitejs/plugin-react';\n"
	out := StripTypeImports(in)
	assert.NotContains(t, out, "import type")
	assert.Contains(t, out, "import react from '@vitejs/plugin-react';")
}

func TestStripTypeImportsNamedMembers(t *testing.T) {
	in := "import { defineConfig, type UserConfig, loadEnv } from 'vite';\n"
	out := StripTypeImports(in)
	assert.Equal(t, "import { defineConfig, loadEnv } from 'vite';\n", out)
}

func TestStripTypeImportsAllMembersTypeOnly(t *testing.T) {
	in := "import { type A, type B } from 'pkg';\nconst x = 1;\n"
	out := StripTypeImports(in)
	assert.NotContains(t, out, "'pkg'")
	assert.Contains(t, out, "const x = 1;")
}

func TestStripTypeImportsFixedPoint(t *testing.T) {
	in := "import type Foo from 'foo';\nimport { defineConfig, type Opt } from 'vite';\nexport default defineConfig({});\n"
	once := StripTypeImports(in)
	twice := StripTypeImports(once)
	assert.Equal(t, once, twice, "stripping must be idempotent")
}

func TestStripTypeImportsLeavesValueImports(t *testing.T) {
	in := "import { a, b } from 'mod';\n"
	assert.Equal(t, "import { a, b } from 'mod';\n", StripTypeImports(in))
}
