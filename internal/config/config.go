package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Project   ProjectConfig   `yaml:"project"`
	Exclude   ExcludeConfig   `yaml:"exclude"`
	Workflows WorkflowsConfig `yaml:"workflows"`
	Entries   EntriesConfig   `yaml:"entries"`
	Repos     ReposConfig     `yaml:"repos"`
	Compiler  CompilerConfig  `yaml:"compiler"`
	Daemon    DaemonConfig    `yaml:"daemon"`
}

// ProjectConfig locates the source tree and the staging output directory.
type ProjectConfig struct {
	Root       string `yaml:"root"`
	StagingDir string `yaml:"staging_dir"`
}

// ExcludeConfig holds directory and file names skipped by the tree copier.
type ExcludeConfig struct {
	Dirs  []string `yaml:"dirs,omitempty"`
	Files []string `yaml:"files,omitempty"`
}

// WorkflowsConfig controls the filtered copy of the workflow-definitions
// directory: only Allow-listed file names are mirrored, plus ExtraTemplate
// copied in from the templates directory.
type WorkflowsConfig struct {
	Dir           string   `yaml:"dir,omitempty"`
	Allow         []string `yaml:"allow,omitempty"`
	TemplatesDir  string   `yaml:"templates_dir,omitempty"`
	ExtraTemplate string   `yaml:"extra_template,omitempty"`
}

// EntriesConfig names the well-known files the reference/config rewriters touch.
// All paths are relative to the project root.
type EntriesConfig struct {
	ClientEntry  string `yaml:"client_entry,omitempty"`
	ServerEntry  string `yaml:"server_entry,omitempty"`
	BundlerConf  string `yaml:"bundler_config,omitempty"`
	ViewTemplate string `yaml:"view_template,omitempty"`
	PackageJSON  string `yaml:"package_json,omitempty"`
}

// ReposConfig identifies the three repositories the pipeline bridges.
// The push credential is taken from the GITHUB_TOKEN environment variable
// and intentionally has no yaml representation.
type ReposConfig struct {
	Upstream string `yaml:"upstream,omitempty"`
	Staging  string `yaml:"staging,omitempty"`
	Template string `yaml:"template,omitempty"`
	Branch   string `yaml:"branch,omitempty"`
}

// CompilerConfig configures the external TypeScript compiler invocation.
type CompilerConfig struct {
	Command      string        `yaml:"command,omitempty"` // default "npx"
	RetryBackoff string        `yaml:"retry_backoff,omitempty"`
	RetryInitial time.Duration `yaml:"retry_initial,omitempty"`
	RetryMax     time.Duration `yaml:"retry_max,omitempty"`
}

// DaemonConfig configures resident mode: scheduled runs, source watching,
// metrics endpoint and run history storage.
type DaemonConfig struct {
	Interval  time.Duration `yaml:"interval,omitempty"`
	Listen    string        `yaml:"listen,omitempty"`
	HistoryDB string        `yaml:"history_db,omitempty"`
	Watch     bool          `yaml:"watch,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		// Don't fail if .env doesn't exist, just log it
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns a configuration with every field at its default, without
// touching the filesystem. Used by commands that run without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return fmt.Errorf("project.root must not be empty")
	}
	if c.Project.StagingDir == "" {
		return fmt.Errorf("project.staging_dir must not be empty")
	}
	if c.Project.StagingDir == "." || c.Project.StagingDir == ".." {
		return fmt.Errorf("project.staging_dir must be a real directory name, got %q", c.Project.StagingDir)
	}
	if c.Daemon.Interval < 0 {
		return fmt.Errorf("daemon.interval cannot be negative")
	}
	return nil
}

// PushToken returns the destination-repository credential from the environment.
func (c *Config) PushToken() string { return os.Getenv("GITHUB_TOKEN") }
