package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/jsxforge/internal/logfields"
	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
)

// stagePrepareStaging destroys and recreates the staging tree. Partial or
// stale output from a prior failed run must never leak into a new run.
func (c *Converter) stagePrepareStaging(_ context.Context, rs *pipeline.RunState) error {
	if err := os.RemoveAll(c.staging); err != nil {
		return pipeline.NewFatalStageError(pipeline.StagePrepareStaging,
			fmt.Errorf("remove stale staging tree: %w", err))
	}
	if err := os.MkdirAll(c.staging, 0o750); err != nil {
		return pipeline.NewFatalStageError(pipeline.StagePrepareStaging,
			fmt.Errorf("create staging tree: %w", err))
	}
	slog.Debug("Staging tree recreated", logfields.Path(c.staging))
	return nil
}
