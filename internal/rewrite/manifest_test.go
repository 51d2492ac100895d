package rewrite

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewritePackageJSON(t *testing.T) {
	in := []byte(`{
  "name": "vendor/react-starter-kit",
  "description": "React starter kit with TypeScript",
  "dependencies": { "react": "^19.0.0" },
  "devDependencies": {
    "typescript": "^5.6.0",
    "@types/react": "^19.0.0",
    "@types/react-dom": "^19.0.0",
    "@types/node": "^22.0.0",
    "vite": "^6.0.0"
  }
}`)

	out, err := RewritePackageJSON(in)
	require.NoError(t, err)

	var pkg map[string]any
	require.NoError(t, json.Unmarshal(out, &pkg))

	assert.Equal(t, "vendor/react-jsx-starter-kit", pkg["name"])
	assert.Equal(t, ConvertedDescription, pkg["description"])

	devDeps, ok := pkg["devDependencies"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, devDeps, "typescript")
	assert.NotContains(t, devDeps, "@types/react")
	assert.NotContains(t, devDeps, "@types/react-dom")
	assert.NotContains(t, devDeps, "@types/node")
	assert.Contains(t, devDeps, "vite")

	deps, ok := pkg["dependencies"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, deps, "react")
}

func TestRewritePackageJSONWithoutDevDeps(t *testing.T) {
	in := []byte(`{"name": "vendor/react-starter-kit"}`)
	out, err := RewritePackageJSON(in)
	require.NoError(t, err)

	var pkg map[string]any
	require.NoError(t, json.Unmarshal(out, &pkg))
	assert.Equal(t, "vendor/react-jsx-starter-kit", pkg["name"])
}

func TestRewritePackageJSONIdempotent(t *testing.T) {
	in := []byte(`{"name": "vendor/react-starter-kit", "devDependencies": {"typescript": "^5.0.0"}}`)
	once, err := RewritePackageJSON(in)
	require.NoError(t, err)
	twice, err := RewritePackageJSON(once)
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twice))
}

func TestRewritePackageJSONInvalid(t *testing.T) {
	_, err := RewritePackageJSON([]byte("not json"))
	assert.Error(t, err)
}

func TestRewriteLockfileName(t *testing.T) {
	in := []byte(`{
  "name": "vendor/react-starter-kit",
  "lockfileVersion": 3,
  "packages": {
    "": { "name": "vendor/react-starter-kit", "version": "1.0.0" },
    "node_modules/react": { "version": "19.0.0" }
  }
}`)

	out, err := RewriteLockfileName(in)
	require.NoError(t, err)

	var lock map[string]any
	require.NoError(t, json.Unmarshal(out, &lock))
	assert.Equal(t, "vendor/react-jsx-starter-kit", lock["name"])

	packages := lock["packages"].(map[string]any)
	root := packages[""].(map[string]any)
	assert.Equal(t, "vendor/react-jsx-starter-kit", root["name"])
}

func TestRewriteComponentsJSON(t *testing.T) {
	in := []byte(`{"style": "default", "tsx": true, "aliases": {"components": "~/components"}}`)
	out, err := RewriteComponentsJSON(in)
	require.NoError(t, err)

	var reg map[string]any
	require.NoError(t, json.Unmarshal(out, &reg))
	assert.Equal(t, false, reg["tsx"])
	assert.Equal(t, "default", reg["style"])
}
