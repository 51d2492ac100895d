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
)

// stageCleanup relocates the intermediate compiler output into the staging
// tree, removes the superseded TypeScript originals, and deletes the
// transient compiler config and the intermediate directory.
func (c *Converter) stageCleanup(_ context.Context, rs *pipeline.RunState) error {
	emitted, err := c.relocateCompilerOutput()
	if err != nil {
		return pipeline.NewFatalStageError(pipeline.StageCleanup, err)
	}
	rs.Report.EmittedFiles = emitted

	if err := c.removeSupersededSources(); err != nil {
		return pipeline.NewFatalStageError(pipeline.StageCleanup, err)
	}

	if err := os.RemoveAll(c.outDir()); err != nil {
		return pipeline.NewFatalStageError(pipeline.StageCleanup,
			fmt.Errorf("remove intermediate compiler output: %w", err))
	}
	if err := os.Remove(c.transientConfigPath()); err != nil && !os.IsNotExist(err) {
		return pipeline.NewFatalStageError(pipeline.StageCleanup,
			fmt.Errorf("remove transient compiler config: %w", err))
	}

	slog.Info("Cleanup complete", logfields.Count(emitted))
	return nil
}

// relocateCompilerOutput moves every emitted file from the intermediate
// directory into the staging tree proper, preserving relative structure.
func (c *Converter) relocateCompilerOutput() (int, error) {
	out := c.outDir()
	moved := 0

	if _, err := os.Stat(out); os.IsNotExist(err) {
		return 0, nil
	}

	err := filepath.WalkDir(out, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(out, path)
		if relErr != nil {
			return relErr
		}
		dst := filepath.Join(c.staging, rel)
		if mkErr := os.MkdirAll(filepath.Dir(dst), 0o750); mkErr != nil {
			return mkErr
		}
		if mvErr := os.Rename(path, dst); mvErr != nil {
			return fmt.Errorf("relocate %s: %w", rel, mvErr)
		}
		moved++
		return nil
	})
	if err != nil {
		return moved, err
	}
	return moved, nil
}

// removeSupersededSources deletes the mirrored TypeScript originals; their
// emitted JavaScript counterparts have replaced them.
func (c *Converter) removeSupersededSources() error {
	return filepath.WalkDir(c.staging, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == compilerOutDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".ts") || strings.HasSuffix(d.Name(), ".tsx") {
			if rmErr := os.Remove(path); rmErr != nil {
				return fmt.Errorf("remove superseded source %s: %w", path, rmErr)
			}
		}
		return nil
	})
}
