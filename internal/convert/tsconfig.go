package convert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// compilerOptions is the fixed configuration handed to the external
// compiler. JSX handling stays "preserve": markup is emitted unchanged while
// type annotations are stripped and module syntax transformed.
type compilerOptions struct {
	Target           string              `json:"target"`
	Module           string              `json:"module"`
	ModuleResolution string              `json:"moduleResolution"`
	Lib              []string            `json:"lib"`
	JSX              string              `json:"jsx"`
	BaseURL          string              `json:"baseUrl"`
	Paths            map[string][]string `json:"paths"`
	OutDir           string              `json:"outDir"`
	AllowJS          bool                `json:"allowJs"`
	NoEmit           bool                `json:"noEmit"`
	NoEmitOnError    bool                `json:"noEmitOnError"`
	SkipLibCheck     bool                `json:"skipLibCheck,omitempty"`
	NoCheck          bool                `json:"noCheck,omitempty"`
}

type compilerConfig struct {
	CompilerOptions compilerOptions `json:"compilerOptions"`
	Include         []string        `json:"include"`
	Exclude         []string        `json:"exclude"`
}

// newCompilerConfig synthesizes the transient configuration. The relaxed
// variant is used for the single retry after a failed first invocation:
// diagnostics no longer block emission and library checking is skipped.
func (c *Converter) newCompilerConfig(relaxed bool) compilerConfig {
	opts := compilerOptions{
		Target:           "ESNext",
		Module:           "ESNext",
		ModuleResolution: "bundler",
		Lib:              []string{"ESNext", "DOM", "DOM.Iterable"},
		JSX:              "preserve",
		BaseURL:          ".",
		Paths:            map[string][]string{"~/*": {"./app/*"}},
		OutDir:           c.outDir(),
		AllowJS:          true,
	}
	if relaxed {
		opts.NoEmitOnError = false
		opts.SkipLibCheck = true
		opts.NoCheck = true
	}
	return compilerConfig{
		CompilerOptions: opts,
		Include:         []string{"app/**/*.ts", "app/**/*.tsx"},
		Exclude:         []string{"node_modules", "dist", c.cfg.Project.StagingDir},
	}
}

// writeCompilerConfig writes the transient config and returns its path.
func (c *Converter) writeCompilerConfig(relaxed bool) (string, error) {
	cfg := c.newCompilerConfig(relaxed)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal compiler config: %w", err)
	}
	path := c.transientConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write compiler config: %w", err)
	}
	return path, nil
}
