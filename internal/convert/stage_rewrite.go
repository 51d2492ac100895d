package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/jsxforge/internal/logfields"
	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
	"git.home.luguber.info/inful/jsxforge/internal/rewrite"
)

// stageRewriteReferences patches the known entry-point files and the view
// template to point at renamed outputs. Only these literal substitutions are
// performed; the upstream entry points are structurally fixed.
func (c *Converter) stageRewriteReferences(_ context.Context, rs *pipeline.RunState) error {
	failures := 0

	for _, entry := range []string{c.cfg.Entries.ClientEntry, c.cfg.Entries.ServerEntry} {
		path, ok := c.findEmitted(entry)
		if !ok {
			slog.Warn("Emitted entry file not found", logfields.File(entry))
			failures++
			continue
		}
		if err := patchFile(path, rewrite.RewriteExtensionRefs); err != nil {
			slog.Warn("Cannot rewrite entry file", logfields.File(path), logfields.Error(err))
			failures++
			continue
		}
		rs.Report.RewrittenFiles++
	}

	templatePath := filepath.Join(c.staging, filepath.FromSlash(c.cfg.Entries.ViewTemplate))
	data, err := os.ReadFile(templatePath)
	switch {
	case os.IsNotExist(err):
		slog.Warn("View template not found", logfields.File(templatePath))
		failures++
	case err != nil:
		slog.Warn("Cannot read view template", logfields.File(templatePath), logfields.Error(err))
		failures++
	default:
		patched, changed := rewrite.RewriteViewTemplate(string(data))
		if changed {
			if err := os.WriteFile(templatePath, []byte(patched), 0o644); err != nil {
				slog.Warn("Cannot write view template", logfields.File(templatePath), logfields.Error(err))
				failures++
				break
			}
			rs.Report.RewrittenFiles++
		}
		rs.Report.ViewTemplateConverted = true
	}

	if failures > 0 {
		return pipeline.NewWarnStageError(pipeline.StageRewriteRefs,
			fmt.Errorf("%d reference rewrites failed", failures))
	}
	return nil
}

// findEmitted maps a source-relative path like app/entry.client.tsx to its
// emitted counterpart in the intermediate output directory, preferring the
// classified .jsx name.
func (c *Converter) findEmitted(sourceRel string) (string, bool) {
	stem := strings.TrimSuffix(strings.TrimSuffix(filepath.FromSlash(sourceRel), ".tsx"), ".ts")
	for _, ext := range []string{".jsx", ".js"} {
		candidate := filepath.Join(c.outDir(), stem+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// stageRewriteConfigs edits package/component/lint metadata and the bundler
// config in the staging tree. Each rewrite is idempotent; per-file failures
// do not abort the pass.
func (c *Converter) stageRewriteConfigs(_ context.Context, rs *pipeline.RunState) error {
	failures := 0

	// Bundler config: converted and renamed to its .js counterpart.
	if err := c.convertBundlerConfig(rs); err != nil {
		slog.Warn("Bundler config conversion failed", logfields.Error(err))
		failures++
	}

	jsonRewrites := []struct {
		rel      string
		required bool
		fn       func([]byte) ([]byte, error)
	}{
		{c.cfg.Entries.PackageJSON, true, rewrite.RewritePackageJSON},
		{"package-lock.json", false, rewrite.RewriteLockfileName},
		{"components.json", false, rewrite.RewriteComponentsJSON},
	}
	for _, jr := range jsonRewrites {
		path := filepath.Join(c.staging, filepath.FromSlash(jr.rel))
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			if jr.required {
				slog.Warn("Required metadata file missing", logfields.File(jr.rel))
				failures++
			}
			continue
		}
		if err != nil {
			slog.Warn("Cannot read metadata file", logfields.File(jr.rel), logfields.Error(err))
			failures++
			continue
		}
		out, err := jr.fn(data)
		if err != nil {
			slog.Warn("Metadata rewrite failed", logfields.File(jr.rel), logfields.Error(err))
			failures++
			continue
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			slog.Warn("Cannot write metadata file", logfields.File(jr.rel), logfields.Error(err))
			failures++
			continue
		}
		rs.Report.RewrittenFiles++
	}

	// Lint config: drop staging-output entries from the ignores array.
	for _, lintName := range []string{"eslint.config.js", "eslint.config.mjs"} {
		path := filepath.Join(c.staging, lintName)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := patchFile(path, func(text string) string {
			return rewrite.RewriteLintIgnores(text, c.cfg.Project.StagingDir)
		}); err != nil {
			slog.Warn("Lint config rewrite failed", logfields.File(lintName), logfields.Error(err))
			failures++
			continue
		}
		rs.Report.RewrittenFiles++
		break
	}

	// Top-level description document: full substitution, not a transformation.
	readmePath := filepath.Join(c.staging, "README.md")
	if err := os.WriteFile(readmePath, []byte(rewrite.ReadmeTemplate), 0o644); err != nil {
		slog.Warn("Cannot write description document", logfields.Error(err))
		failures++
	} else {
		rs.Report.RewrittenFiles++
	}

	if failures > 0 {
		return pipeline.NewWarnStageError(pipeline.StageRewriteConfigs,
			fmt.Errorf("%d config rewrites failed", failures))
	}
	return nil
}

func (c *Converter) convertBundlerConfig(rs *pipeline.RunState) error {
	srcRel := filepath.FromSlash(c.cfg.Entries.BundlerConf)
	srcPath := filepath.Join(c.staging, srcRel)
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read bundler config: %w", err)
	}

	converted := rewrite.RewriteBundlerConfig(string(data))
	dstPath := srcPath
	if strings.HasSuffix(srcPath, ".ts") {
		dstPath = strings.TrimSuffix(srcPath, ".ts") + ".js"
	}

	if err := os.WriteFile(dstPath, []byte(converted), 0o644); err != nil {
		return fmt.Errorf("write converted bundler config: %w", err)
	}
	if dstPath != srcPath {
		if err := os.Remove(srcPath); err != nil {
			return fmt.Errorf("remove superseded bundler config: %w", err)
		}
	}

	rs.Report.BundlerConfigConverted = true
	rs.Report.RewrittenFiles++
	return nil
}

// patchFile applies a text transformation to a file in place. The write is
// skipped when the transformation is a no-op.
func patchFile(path string, fn func(string) string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out := fn(string(data))
	if out == string(data) {
		return nil
	}
	return os.WriteFile(path, []byte(out), 0o644)
}
