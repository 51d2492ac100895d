package selftest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/jsxforge/internal/config"
	"git.home.luguber.info/inful/jsxforge/internal/convert"
	"git.home.luguber.info/inful/jsxforge/internal/logfields"
	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
	"git.home.luguber.info/inful/jsxforge/internal/workspace"
)

// Runner executes the self-test check sequence against a configured project.
type Runner struct {
	cfg      *config.Config
	compiler convert.Compiler // optional override, nil means the configured binary

	// Probes are swappable so tests can run without node on PATH.
	lookPath    func(string) (string, error)
	nodeVersion func(context.Context) string
}

// New creates a self-test runner for the given configuration.
func New(cfg *config.Config) *Runner {
	return &Runner{
		cfg:         cfg,
		lookPath:    exec.LookPath,
		nodeVersion: detectNodeVersion,
	}
}

// WithCompiler overrides the compiler used for the conversion check (fluent helper).
func (r *Runner) WithCompiler(comp convert.Compiler) *Runner { r.compiler = comp; return r }

// Run executes all check sections and returns the report. The returned
// error covers only infrastructure failures; check failures are expressed
// through the report status.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{
		Timestamp: time.Now(),
		Project:   r.projectName(),
		Workflow:  workflowName(),
	}

	prereqOK := r.checkPrerequisites(ctx, &rep.Summary.Prerequisites)
	r.checkStructure(&rep.Summary.Structure)

	if !prereqOK {
		// Without a working toolchain the conversion check would only
		// produce noise, so the remaining sections are skipped.
		rep.Summary.Conversion.skip("prerequisites failed")
		rep.Summary.Components.skip("prerequisites failed")
		rep.settle()
		return rep, nil
	}

	// The conversion check runs against a scratch copy so the self-test
	// never mutates the checked-out tree. The workspace must outlive the
	// component check, which inspects the staging output.
	ws := workspace.NewManager("")
	if err := ws.Create(); err != nil {
		return nil, fmt.Errorf("create selftest workspace: %w", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Workspace cleanup failed", logfields.Error(err))
		}
	}()

	staging, runReport := r.checkConversion(ctx, ws, &rep.Summary.Conversion)
	if runReport == nil {
		rep.Summary.Components.skip("conversion failed")
	} else {
		r.checkComponents(staging, runReport, &rep.Summary.Components)
	}

	rep.settle()
	slog.Info("Self-test finished", logfields.Outcome(string(rep.Status)))
	return rep, nil
}

// checkPrerequisites verifies the external tools the compiler invocation
// depends on. Returns false when conversion cannot meaningfully run.
func (r *Runner) checkPrerequisites(ctx context.Context, s *Section) bool {
	if _, err := r.lookPath("node"); err != nil {
		s.add("node_binary", StatusFail, "node not found on PATH")
	} else {
		s.add("node_binary", StatusPass, "")
		raw := r.nodeVersion(ctx)
		major := parseNodeMajor(raw)
		switch {
		case major == 0:
			s.add("node_version", StatusFail, "could not determine node version")
		case major < minNodeMajor:
			s.add("node_version", StatusFail, fmt.Sprintf("node %d found, need >= %d", major, minNodeMajor))
		default:
			s.add("node_version", StatusPass, strings.TrimSpace(raw))
		}
	}

	command := r.cfg.Compiler.Command
	if _, err := r.lookPath(command); err != nil {
		s.add("compiler_launcher", StatusFail, fmt.Sprintf("%s not found on PATH", command))
	} else {
		s.add("compiler_launcher", StatusPass, command)
	}

	s.settle()
	return s.Status == StatusPass
}

// checkStructure verifies the required input files exist in the project root.
func (r *Runner) checkStructure(s *Section) {
	required := []struct {
		name string
		rel  string
	}{
		{"client_entry", r.cfg.Entries.ClientEntry},
		{"server_entry", r.cfg.Entries.ServerEntry},
		{"bundler_config", r.cfg.Entries.BundlerConf},
		{"view_template", r.cfg.Entries.ViewTemplate},
		{"package_json", r.cfg.Entries.PackageJSON},
	}
	for _, req := range required {
		path := filepath.Join(r.cfg.Project.Root, req.rel)
		if _, err := os.Stat(path); err != nil {
			s.add(req.name, StatusFail, fmt.Sprintf("missing %s", req.rel))
		} else {
			s.add(req.name, StatusPass, req.rel)
		}
	}
	s.settle()
}

// checkConversion runs the real pipeline against a scratch copy of the
// project inside the given workspace. Returns the staging root and the run
// report, or ("", nil) on failure.
func (r *Runner) checkConversion(ctx context.Context, ws *workspace.Manager, s *Section) (string, *pipeline.RunReport) {
	scratch, err := ws.CreateSubdir("project")
	if err != nil {
		s.add("workspace", StatusFail, err.Error())
		s.settle()
		return "", nil
	}
	if err := r.mirrorProject(scratch); err != nil {
		s.add("project_copy", StatusFail, err.Error())
		s.settle()
		return "", nil
	}
	s.add("project_copy", StatusPass, "")

	scratchCfg := *r.cfg
	scratchCfg.Project.Root = scratch

	conv, err := convert.New(&scratchCfg)
	if err != nil {
		s.add("pipeline", StatusFail, err.Error())
		s.settle()
		return "", nil
	}
	if r.compiler != nil {
		conv = conv.WithCompiler(r.compiler)
	}

	report, err := conv.Run(ctx)
	if err != nil {
		s.add("pipeline", StatusFail, err.Error())
		s.settle()
		return "", nil
	}
	if report.Outcome == pipeline.OutcomeFailed || report.Outcome == pipeline.OutcomeCanceled {
		s.add("pipeline", StatusFail, string(report.Outcome))
		s.settle()
		return "", nil
	}
	s.add("pipeline", StatusPass, string(report.Outcome))

	staging := conv.StagingRoot()
	if _, err := os.Stat(staging); err != nil {
		s.add("staging_tree", StatusFail, "staging tree missing after run")
	} else {
		s.add("staging_tree", StatusPass, "")
	}

	// The client entry must have a converted counterpart in staging.
	entry := convertedName(r.cfg.Entries.ClientEntry)
	if _, err := os.Stat(filepath.Join(staging, entry)); err != nil {
		alt := strings.TrimSuffix(entry, ".jsx") + ".js"
		if _, aerr := os.Stat(filepath.Join(staging, alt)); aerr != nil {
			s.add("client_entry_output", StatusFail, fmt.Sprintf("neither %s nor %s emitted", entry, alt))
		} else {
			s.add("client_entry_output", StatusPass, alt)
		}
	} else {
		s.add("client_entry_output", StatusPass, entry)
	}

	s.settle()
	if s.Status == StatusFail {
		return "", nil
	}
	return staging, report
}

// checkComponents counts the converted component files in the staging tree.
func (r *Runner) checkComponents(staging string, report *pipeline.RunReport, s *Section) {
	var jsx, js int
	err := filepath.WalkDir(staging, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		switch filepath.Ext(d.Name()) {
		case ".jsx":
			jsx++
		case ".js":
			js++
		}
		return nil
	})
	if err != nil {
		s.add("component_scan", StatusFail, err.Error())
		s.settle()
		return
	}

	if jsx+js == 0 {
		s.add("emitted_files", StatusFail, "no converted files in staging tree")
	} else {
		s.add("emitted_files", StatusPass, fmt.Sprintf("%d jsx, %d js", jsx, js))
	}
	s.add("reclassified_files", StatusPass, fmt.Sprintf("%d", report.RenamedFiles))

	// Leftover inputs mean cleanup did not complete.
	leftover := 0
	_ = filepath.WalkDir(staging, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		ext := filepath.Ext(d.Name())
		if ext == ".ts" || ext == ".tsx" {
			leftover++
		}
		return nil
	})
	if leftover > 0 {
		s.add("superseded_sources", StatusFail, fmt.Sprintf("%d unconverted source files remain", leftover))
	} else {
		s.add("superseded_sources", StatusPass, "")
	}
	s.settle()
}

// mirrorProject copies the project root into dst, honoring the configured
// directory exclusions so scratch copies stay small.
func (r *Runner) mirrorProject(dst string) error {
	root, err := filepath.Abs(r.cfg.Project.Root)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	skip := make(map[string]bool, len(r.cfg.Exclude.Dirs)+1)
	for _, d := range r.cfg.Exclude.Dirs {
		skip[d] = true
	}
	skip[r.cfg.Project.StagingDir] = true

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if skip[d.Name()] {
				return fs.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		return os.WriteFile(filepath.Join(dst, rel), data, 0o644)
	})
}

// projectName reads the package name from the project metadata, falling
// back to the directory name.
func (r *Runner) projectName() string {
	data, err := os.ReadFile(filepath.Join(r.cfg.Project.Root, r.cfg.Entries.PackageJSON))
	if err == nil {
		var meta struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(data, &meta) == nil && meta.Name != "" {
			return meta.Name
		}
	}
	abs, err := filepath.Abs(r.cfg.Project.Root)
	if err != nil {
		return r.cfg.Project.Root
	}
	return filepath.Base(abs)
}

// workflowName identifies the invoking CI workflow when available.
func workflowName() string {
	if wf := os.Getenv("GITHUB_WORKFLOW"); wf != "" {
		return wf
	}
	return "selftest"
}

// convertedName maps a source-extension relative path to its converted name.
func convertedName(rel string) string {
	switch {
	case strings.HasSuffix(rel, ".tsx"):
		return strings.TrimSuffix(rel, ".tsx") + ".jsx"
	case strings.HasSuffix(rel, ".ts"):
		return strings.TrimSuffix(rel, ".ts") + ".js"
	default:
		return rel
	}
}
