// Package convert implements the conversion pipeline stages: staging tree
// preparation, source tree mirroring, external compiler invocation, extension
// classification and the reference/config rewrites.
package convert

import (
	"context"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/jsxforge/internal/config"
	"git.home.luguber.info/inful/jsxforge/internal/logfields"
	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
	"git.home.luguber.info/inful/jsxforge/internal/util/sets"
)

// Intermediate compiler-output directory inside the staging tree. Its
// contents are relocated into the staging tree proper during cleanup.
const compilerOutDir = ".tsc-out"

// transientConfigName is the per-run compiler configuration. Written before
// invocation, deleted at cleanup; must never persist across runs.
const transientConfigName = "tsconfig.convert.json"

// Converter owns one conversion run. All roots are explicit absolute paths;
// nothing consults the process working directory.
type Converter struct {
	cfg      *config.Config
	compiler Compiler

	source  string // absolute project root
	staging string // absolute staging root

	excludeDirs  sets.Set[string]
	excludeFiles sets.Set[string]
}

// New creates a converter for the configured project. Paths are resolved
// relative to the given config's project root.
func New(cfg *config.Config) (*Converter, error) {
	source, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		return nil, err
	}
	return &Converter{
		cfg:          cfg,
		compiler:     &BinaryCompiler{Command: cfg.Compiler.Command},
		source:       source,
		staging:      filepath.Join(source, cfg.Project.StagingDir),
		excludeDirs:  sets.New(cfg.Exclude.Dirs...),
		excludeFiles: sets.New(cfg.Exclude.Files...),
	}, nil
}

// WithCompiler allows tests or callers to inject a custom compiler.
func (c *Converter) WithCompiler(comp Compiler) *Converter {
	if comp != nil {
		c.compiler = comp
	}
	return c
}

// SourceRoot returns the absolute project root.
func (c *Converter) SourceRoot() string { return c.source }

// StagingRoot returns the absolute staging output root.
func (c *Converter) StagingRoot() string { return c.staging }

// outDir is the absolute intermediate compiler-output directory.
func (c *Converter) outDir() string { return filepath.Join(c.staging, compilerOutDir) }

// transientConfigPath is the absolute path of the per-run compiler config.
func (c *Converter) transientConfigPath() string {
	return filepath.Join(c.source, transientConfigName)
}

// Stages returns the ordered stage definitions for a full conversion run.
func (c *Converter) Stages() []pipeline.StageDef {
	return pipeline.NewPipeline().
		Add(pipeline.StagePrepareStaging, c.stagePrepareStaging).
		Add(pipeline.StageCopyTree, c.stageCopyTree).
		Add(pipeline.StageCompile, c.stageCompile).
		Add(pipeline.StageClassify, c.stageClassify).
		Add(pipeline.StageRewriteRefs, c.stageRewriteReferences).
		Add(pipeline.StageRewriteConfigs, c.stageRewriteConfigs).
		Add(pipeline.StageCleanup, c.stageCleanup).
		Add(pipeline.StageStats, c.stageStats).
		Build()
}

// Run executes the full pipeline and returns the run report. The returned
// error is the first fatal stage error, if any; the report is always valid.
func (c *Converter) Run(ctx context.Context) (*pipeline.RunReport, error) {
	rs := &pipeline.RunState{
		Source:  c.source,
		Staging: c.staging,
		Report:  pipeline.NewRunReport(),
	}

	slog.Info("Starting conversion run",
		logfields.Path(c.source),
		slog.String("staging", c.staging))

	err := pipeline.RunStages(ctx, rs, c.Stages())

	rs.Report.DeriveOutcome()
	rs.Report.Finish()

	slog.Info("Conversion run finished",
		logfields.Outcome(string(rs.Report.Outcome)),
		logfields.DurationMS(float64(rs.Report.Duration().Milliseconds())))

	return rs.Report, err
}
