package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ".", cfg.Project.Root)
	assert.Equal(t, DefaultStagingDir, cfg.Project.StagingDir)
	assert.Contains(t, cfg.Exclude.Dirs, "node_modules")
	assert.Contains(t, cfg.Exclude.Dirs, cfg.Project.StagingDir, "staging dir must be excluded from copying into itself")
	assert.Equal(t, "app/entry.client.tsx", cfg.Entries.ClientEntry)
	assert.Equal(t, "app/entry.server.tsx", cfg.Entries.ServerEntry)
	assert.Equal(t, "vite.config.ts", cfg.Entries.BundlerConf)
	assert.Equal(t, "index.html", cfg.Entries.ViewTemplate)
	assert.Equal(t, "package.json", cfg.Entries.PackageJSON)
	assert.Equal(t, "npx", cfg.Compiler.Command)
	assert.Equal(t, time.Hour, cfg.Daemon.Interval)
	require.NoError(t, cfg.Validate())
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_UPSTREAM_REPO", "acme/react-starter-kit")

	dir := t.TempDir()
	path := filepath.Join(dir, "jsxforge.yaml")
	content := `
project:
  root: /srv/project
  staging_dir: jsx-out
repos:
  upstream: ${TEST_UPSTREAM_REPO}
  template: acme/react-jsx-starter-kit
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/project", cfg.Project.Root)
	assert.Equal(t, "jsx-out", cfg.Project.StagingDir)
	assert.Equal(t, "acme/react-starter-kit", cfg.Repos.Upstream)
	assert.Equal(t, "acme/react-jsx-starter-kit", cfg.Repos.Template)
	// defaults still applied for unspecified sections
	assert.Equal(t, "main", cfg.Repos.Branch)
	assert.Equal(t, "npx", cfg.Compiler.Command)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadStagingDir(t *testing.T) {
	cfg := Default()
	cfg.Project.StagingDir = "."
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Daemon.Interval = -time.Minute
	assert.Error(t, cfg.Validate())
}
