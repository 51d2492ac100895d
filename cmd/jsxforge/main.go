package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/jsxforge/internal/config"
	"git.home.luguber.info/inful/jsxforge/internal/convert"
	"git.home.luguber.info/inful/jsxforge/internal/daemon"
	"git.home.luguber.info/inful/jsxforge/internal/gitsync"
	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
	"git.home.luguber.info/inful/jsxforge/internal/selftest"
	"git.home.luguber.info/inful/jsxforge/internal/version"
	"git.home.luguber.info/inful/jsxforge/internal/workspace"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"jsxforge.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Convert struct {
		Report string `short:"r" help:"Write the run report JSON to this path"`
	} `cmd:"" help:"Convert the configured project tree into the staging directory"`

	Selftest struct {
		Output string `short:"o" help:"Write the self-test report JSON to this path"`
	} `cmd:"" help:"Verify prerequisites, project structure and a scratch conversion"`

	Sync struct {
		Workspace string `short:"w" help:"Workspace directory for the upstream checkout" default:"."`
	} `cmd:"" help:"Clone the upstream repository into the workspace"`

	Publish struct {
		Message string `short:"m" help:"Commit message" default:"jsxforge: publish converted sources"`
	} `cmd:"" help:"Push the converted staging tree to the template repository"`

	Run struct {
		Message string `short:"m" help:"Commit message" default:"jsxforge: publish converted sources"`
	} `cmd:"" help:"Sync, convert, validate and publish in one pass"`

	Daemon struct {
	} `cmd:"" help:"Run continuously: scheduled conversions, source watching, admin endpoint"`

	Version struct {
	} `cmd:"" help:"Print version information"`
}

func main() {
	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch kctx.Command() {
	case "convert":
		err = runConvert(ctx)
	case "selftest":
		err = runSelftest(ctx)
	case "sync":
		err = runSync(ctx)
	case "publish":
		err = runPublish(ctx)
	case "run":
		err = runAll(ctx)
	case "daemon":
		err = runDaemon(ctx)
	case "version":
		fmt.Printf("jsxforge %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}
	if err != nil {
		slog.Error("Command failed", "command", kctx.Command(), "error", err)
		os.Exit(1)
	}
}

// loadConfig loads the configured YAML file. When the default path does not
// exist the built-in defaults are used, so `jsxforge convert` works in a
// plain checkout.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(CLI.Config); os.IsNotExist(err) && CLI.Config == "jsxforge.yaml" {
		slog.Debug("No configuration file, using defaults")
		return config.Default(), nil
	}
	return config.Load(CLI.Config)
}

func runConvert(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conv, err := convert.New(cfg)
	if err != nil {
		return err
	}

	report, runErr := conv.Run(ctx)
	if CLI.Convert.Report != "" {
		if err := report.WriteJSON(CLI.Convert.Report); err != nil {
			slog.Error("Failed to write run report", "error", err)
		}
	}
	return runErr
}

func runSelftest(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	report, err := selftest.New(cfg).Run(ctx)
	if err != nil {
		return err
	}
	if err := report.Write(os.Stdout); err != nil {
		return err
	}
	if CLI.Selftest.Output != "" {
		if err := report.WriteFile(CLI.Selftest.Output); err != nil {
			return err
		}
	}
	if !report.Passed() {
		return fmt.Errorf("self-test failed")
	}
	return nil
}

func runSync(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Repos.Upstream == "" {
		return fmt.Errorf("repos.upstream is not configured")
	}

	client := gitsync.NewClient(CLI.Sync.Workspace).WithToken(cfg.PushToken())
	path, err := client.CloneUpstream(ctx, cfg.Repos.Upstream, cfg.Repos.Branch)
	if err != nil {
		return err
	}
	slog.Info("Upstream ready", "path", path)
	return nil
}

func runPublish(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Repos.Template == "" {
		return fmt.Errorf("repos.template is not configured")
	}

	staging := filepath.Join(cfg.Project.Root, cfg.Project.StagingDir)
	if _, err := os.Stat(staging); err != nil {
		return fmt.Errorf("staging tree %s not found, run convert first", staging)
	}

	client := gitsync.NewClient(cfg.Project.Root).WithToken(cfg.PushToken())
	return client.Publish(ctx, staging, cfg.Repos.Template, cfg.Repos.Branch, CLI.Publish.Message)
}

// runAll is the full CI chain: clone upstream into an ephemeral workspace,
// convert it, and publish the staging tree. A failed conversion never
// publishes a partial tree.
func runAll(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Repos.Upstream == "" || cfg.Repos.Template == "" {
		return fmt.Errorf("repos.upstream and repos.template must be configured")
	}

	ws := workspace.NewManager("")
	if err := ws.Create(); err != nil {
		return err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to cleanup workspace", "error", err)
		}
	}()

	client := gitsync.NewClient(ws.GetPath()).WithToken(cfg.PushToken())
	clonePath, err := client.CloneUpstream(ctx, cfg.Repos.Upstream, cfg.Repos.Branch)
	if err != nil {
		return err
	}

	runCfg := *cfg
	runCfg.Project.Root = clonePath
	conv, err := convert.New(&runCfg)
	if err != nil {
		return err
	}
	report, err := conv.Run(ctx)
	if err != nil {
		return err
	}
	if report.Outcome == pipeline.OutcomeFailed || report.Outcome == pipeline.OutcomeCanceled {
		return fmt.Errorf("conversion finished with outcome %s", report.Outcome)
	}

	return client.Publish(ctx, conv.StagingRoot(), cfg.Repos.Template, cfg.Repos.Branch, CLI.Run.Message)
}

func runDaemon(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}
	slog.Info("Daemon started, waiting for shutdown signal...")
	return d.Run(ctx)
}
