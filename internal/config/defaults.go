package config

import "time"

// Canonical defaults for the conversion pipeline. These mirror the upstream
// react-starter-kit layout; a config file only needs to override deviations.
const (
	DefaultStagingDir   = "jsx-staging"
	DefaultWorkflowsDir = ".github/workflows"
	DefaultTemplatesDir = ".github/templates"
)

// applyDefaults fills zero-valued fields in place.
func applyDefaults(c *Config) {
	if c.Project.Root == "" {
		c.Project.Root = "."
	}
	if c.Project.StagingDir == "" {
		c.Project.StagingDir = DefaultStagingDir
	}
	if len(c.Exclude.Dirs) == 0 {
		c.Exclude.Dirs = []string{"node_modules", ".git", "dist", "build", "coverage", c.Project.StagingDir}
	}
	if len(c.Exclude.Files) == 0 {
		c.Exclude.Files = []string{".DS_Store", "tsconfig.json", "tsconfig.node.json", "tsconfig.convert.json"}
	}
	if c.Workflows.Dir == "" {
		c.Workflows.Dir = DefaultWorkflowsDir
	}
	if len(c.Workflows.Allow) == 0 {
		c.Workflows.Allow = []string{"ci.yml", "deploy.yml"}
	}
	if c.Workflows.TemplatesDir == "" {
		c.Workflows.TemplatesDir = DefaultTemplatesDir
	}
	if c.Workflows.ExtraTemplate == "" {
		c.Workflows.ExtraTemplate = "sync.yml"
	}
	if c.Entries.ClientEntry == "" {
		c.Entries.ClientEntry = "app/entry.client.tsx"
	}
	if c.Entries.ServerEntry == "" {
		c.Entries.ServerEntry = "app/entry.server.tsx"
	}
	if c.Entries.BundlerConf == "" {
		c.Entries.BundlerConf = "vite.config.ts"
	}
	if c.Entries.ViewTemplate == "" {
		c.Entries.ViewTemplate = "index.html"
	}
	if c.Entries.PackageJSON == "" {
		c.Entries.PackageJSON = "package.json"
	}
	if c.Repos.Branch == "" {
		c.Repos.Branch = "main"
	}
	if c.Compiler.Command == "" {
		c.Compiler.Command = "npx"
	}
	if c.Daemon.Interval == 0 {
		c.Daemon.Interval = time.Hour
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = ":9464"
	}
	if c.Daemon.HistoryDB == "" {
		c.Daemon.HistoryDB = "jsxforge-history.db"
	}
}
