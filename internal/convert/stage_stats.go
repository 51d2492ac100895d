package convert

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
)

// stageStats counts inputs and outputs and prints the run summary.
func (c *Converter) stageStats(_ context.Context, rs *pipeline.RunState) error {
	sources, err := c.countFiles(c.source, c.excludeDirs.Has, ".ts", ".tsx")
	if err != nil {
		return pipeline.NewWarnStageError(pipeline.StageStats, err)
	}
	outputs, err := c.countFiles(c.staging, func(string) bool { return false }, ".js", ".jsx")
	if err != nil {
		return pipeline.NewWarnStageError(pipeline.StageStats, err)
	}

	rs.Report.SourceFiles = sources
	if rs.Report.EmittedFiles == 0 {
		rs.Report.EmittedFiles = outputs
	}

	slog.Info("Conversion summary",
		slog.Int("source_files", sources),
		slog.Int("emitted_files", rs.Report.EmittedFiles),
		slog.Int("renamed_files", rs.Report.RenamedFiles),
		slog.Int("rewritten_files", rs.Report.RewrittenFiles),
		slog.Bool("bundler_config", rs.Report.BundlerConfigConverted),
		slog.Bool("view_template", rs.Report.ViewTemplateConverted))
	return nil
}

// countFiles walks root counting files with any of the given extensions,
// skipping directories for which skipDir returns true.
func (c *Converter) countFiles(root string, skipDir func(string) bool, exts ...string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		for _, ext := range exts {
			if strings.HasSuffix(d.Name(), ext) {
				count++
				break
			}
		}
		return nil
	})
	return count, err
}
