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

// stageClassify scans every emitted .js file and renames those containing
// markup to the .jsx extension. Per-file failures are reported and skipped;
// the pass continues across independent files.
func (c *Converter) stageClassify(_ context.Context, rs *pipeline.RunState) error {
	renamed := 0
	failures := 0

	err := filepath.WalkDir(c.outDir(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".js") {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Warn("Cannot read emitted file, skipping", logfields.File(path), logfields.Error(readErr))
			failures++
			return nil
		}
		if !rewrite.LooksLikeMarkup(string(data)) {
			return nil
		}

		jsxPath := strings.TrimSuffix(path, ".js") + ".jsx"
		if renameErr := os.Rename(path, jsxPath); renameErr != nil {
			slog.Warn("Cannot rename emitted file, skipping", logfields.File(path), logfields.Error(renameErr))
			failures++
			return nil
		}
		renamed++
		slog.Debug("Reclassified emitted file", logfields.File(jsxPath))
		return nil
	})
	if err != nil {
		return pipeline.NewFatalStageError(pipeline.StageClassify, err)
	}

	rs.Report.RenamedFiles = renamed
	slog.Info("Extension classification complete", logfields.Count(renamed))

	if failures > 0 {
		return pipeline.NewWarnStageError(pipeline.StageClassify,
			fmt.Errorf("%d emitted files could not be classified", failures))
	}
	return nil
}
