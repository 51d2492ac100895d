package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"git.home.luguber.info/inful/jsxforge/internal/logfields"
	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
)

// Sentinel errors for compiler invocation failures.
var (
	ErrCompilerNotFound = errors.New("compiler launcher not found on PATH")
	ErrCompilerFailed   = errors.New("compiler execution failed")
	ErrNoOutput         = errors.New("compiler produced no output")
)

// Compiler abstracts the external TypeScript compiler invocation so tests
// can substitute a fake without touching stage orchestration.
type Compiler interface {
	Invoke(ctx context.Context, rootDir, configPath string) error
}

// BinaryCompiler invokes `tsc` through the configured launcher (npx by
// default) present on PATH.
type BinaryCompiler struct {
	Command string
}

func (b *BinaryCompiler) Invoke(ctx context.Context, rootDir, configPath string) error {
	launcher := b.Command
	if launcher == "" {
		launcher = "npx"
	}
	if _, err := exec.LookPath(launcher); err != nil {
		return fmt.Errorf("%w: %w", ErrCompilerNotFound, err)
	}

	cmd := exec.CommandContext(ctx, launcher, "tsc", "-p", configPath)
	cmd.Dir = rootDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking compiler", slog.String("launcher", launcher), logfields.Path(configPath))

	err := cmd.Run()

	outStr := stdout.String()
	errStr := stderr.String()
	if outStr != "" {
		slog.Debug("compiler stdout", "output", outStr)
	}
	if errStr != "" {
		slog.Warn("compiler stderr", "error_output", errStr)
	}

	if err != nil {
		output := errStr
		if output == "" {
			output = outStr
		} else if outStr != "" {
			output = outStr + "\n" + errStr
		}
		if output != "" {
			return fmt.Errorf("%w: %w: %s", ErrCompilerFailed, err, output)
		}
		return fmt.Errorf("%w: %w", ErrCompilerFailed, err)
	}
	return nil
}

// NoopCompiler performs no compilation; useful in tests.
type NoopCompiler struct{}

func (n *NoopCompiler) Invoke(ctx context.Context, rootDir, configPath string) error {
	slog.Debug("NoopCompiler skipping compilation", logfields.Path(rootDir))
	return nil
}

// stageCompile writes the transient compiler config and invokes the external
// compiler. Diagnostics are non-fatal as long as any output was emitted
// (soft success); a failed first invocation is retried exactly once with a
// relaxed config. Only the total absence of output is fatal, which halts the
// pipeline before any downstream rewriting.
func (c *Converter) stageCompile(ctx context.Context, rs *pipeline.RunState) error {
	outcome, err := c.compile(ctx)
	rs.Compile = outcome

	switch outcome {
	case pipeline.CompileSuccess:
		return nil
	case pipeline.CompileSoftSuccess:
		return pipeline.NewWarnStageError(pipeline.StageCompile,
			fmt.Errorf("compiler reported diagnostics but emitted output: %w", err))
	default:
		if errors.Is(err, context.Canceled) {
			return pipeline.NewCanceledStageError(pipeline.StageCompile, err)
		}
		return pipeline.NewFatalStageError(pipeline.StageCompile, err)
	}
}

func (c *Converter) compile(ctx context.Context) (pipeline.CompileOutcome, error) {
	configPath, err := c.writeCompilerConfig(false)
	if err != nil {
		return pipeline.CompileFatal, err
	}

	firstErr := c.compiler.Invoke(ctx, c.source, configPath)
	if firstErr == nil {
		return pipeline.CompileSuccess, nil
	}
	if c.hasEmittedOutput() {
		return pipeline.CompileSoftSuccess, firstErr
	}

	slog.Warn("Compiler failed with no output, retrying with relaxed settings",
		logfields.Error(firstErr))

	configPath, err = c.writeCompilerConfig(true)
	if err != nil {
		return pipeline.CompileFatal, err
	}

	retryErr := c.compiler.Invoke(ctx, c.source, configPath)
	if retryErr == nil {
		return pipeline.CompileSuccess, nil
	}
	if c.hasEmittedOutput() {
		return pipeline.CompileSoftSuccess, retryErr
	}
	return pipeline.CompileFatal, fmt.Errorf("%w: %w", ErrNoOutput, retryErr)
}

// hasEmittedOutput reports whether the intermediate output directory exists
// and is non-empty.
func (c *Converter) hasEmittedOutput() bool {
	entries, err := os.ReadDir(c.outDir())
	return err == nil && len(entries) > 0
}
