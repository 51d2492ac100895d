package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/jsxforge/internal/logfields"
	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
	"git.home.luguber.info/inful/jsxforge/internal/util/sets"
)

// stageCopyTree mirrors the project tree into the staging root, applying the
// exclusion sets and the workflow-definitions divert. Any unreadable source
// file aborts the run.
func (c *Converter) stageCopyTree(ctx context.Context, rs *pipeline.RunState) error {
	copied, err := c.copyTree(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return pipeline.NewCanceledStageError(pipeline.StageCopyTree, err)
		}
		return pipeline.NewFatalStageError(pipeline.StageCopyTree, err)
	}
	rs.Report.CopiedFiles = copied
	slog.Info("Copied project tree", logfields.Count(copied), logfields.Path(c.staging))
	return nil
}

func (c *Converter) copyTree(ctx context.Context) (int, error) {
	copied := 0
	workflowsRel := filepath.FromSlash(c.cfg.Workflows.Dir)
	allow := sets.New(c.cfg.Workflows.Allow...)

	err := filepath.WalkDir(c.source, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, relErr := filepath.Rel(c.source, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if c.excludeDirs.Has(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if c.excludeFiles.Has(d.Name()) {
			return nil
		}

		// Workflow-definitions divert: only allow-listed file names survive.
		if within(rel, workflowsRel) && !allow.Has(d.Name()) {
			return nil
		}

		if err := copyFile(path, filepath.Join(c.staging, rel)); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, err
	}

	// One extra workflow file comes from the templates location.
	if n, err := c.copyExtraWorkflowTemplate(); err != nil {
		return copied, err
	} else {
		copied += n
	}

	return copied, nil
}

// copyExtraWorkflowTemplate copies the configured template file into the
// staged workflow-definitions directory. A missing template is not an error;
// the upstream tree does not always carry one.
func (c *Converter) copyExtraWorkflowTemplate() (int, error) {
	name := c.cfg.Workflows.ExtraTemplate
	if name == "" {
		return 0, nil
	}
	src := filepath.Join(c.source, filepath.FromSlash(c.cfg.Workflows.TemplatesDir), name)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		slog.Debug("No extra workflow template present", logfields.File(name))
		return 0, nil
	}
	dst := filepath.Join(c.staging, filepath.FromSlash(c.cfg.Workflows.Dir), name)
	if err := copyFile(src, dst); err != nil {
		return 0, fmt.Errorf("copy workflow template %s: %w", name, err)
	}
	return 1, nil
}

// within reports whether rel is inside the given relative directory.
func within(rel, dir string) bool {
	return rel == dir || strings.HasPrefix(rel, dir+string(filepath.Separator))
}

// copyFile mirrors a single file, creating intermediate directories.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
