// Package daemon implements resident mode: scheduled conversion runs,
// source tree watching and an admin endpoint with metrics and run history.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/jsxforge/internal/config"
	"git.home.luguber.info/inful/jsxforge/internal/convert"
	"git.home.luguber.info/inful/jsxforge/internal/history"
	"git.home.luguber.info/inful/jsxforge/internal/logfields"
	"git.home.luguber.info/inful/jsxforge/internal/metrics"
	"git.home.luguber.info/inful/jsxforge/internal/pipeline"
)

// Daemon runs conversions on a schedule and on source changes, keeping
// run history and metrics for the admin endpoint.
type Daemon struct {
	cfg      *config.Config
	store    *history.Store
	registry *prom.Registry
	recorder *metrics.PrometheusRecorder
	start    time.Time

	runMu   sync.Mutex // serializes conversion runs
	trigger chan string
}

// New creates a daemon from the given configuration, opening the run
// history store.
func New(cfg *config.Config) (*Daemon, error) {
	store, err := history.Open(cfg.Daemon.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	registry := prom.NewRegistry()
	return &Daemon{
		cfg:      cfg,
		store:    store,
		registry: registry,
		recorder: metrics.NewPrometheusRecorder(registry),
		trigger:  make(chan string, 1),
	}, nil
}

// Run starts the scheduler, watcher and admin server, then processes
// conversion triggers until the context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	d.start = time.Now()

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(d.cfg.Daemon.Interval),
		gocron.NewTask(func() { d.requestRun("schedule") }),
		gocron.WithName("periodic-conversion"),
	); err != nil {
		return fmt.Errorf("schedule periodic conversion: %w", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			slog.Error("Scheduler shutdown failed", logfields.Error(err))
		}
	}()

	if d.cfg.Daemon.Watch {
		watcher, err := newSourceWatcher(d.cfg, func() {
			d.recorder.IncWatchTrigger()
			d.requestRun("watch")
		})
		if err != nil {
			return fmt.Errorf("create source watcher: %w", err)
		}
		go watcher.run(ctx)
		defer watcher.close()
	}

	server := d.newAdminServer()
	go func() {
		slog.Info("Admin endpoint listening", slog.String("addr", d.cfg.Daemon.Listen))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Admin endpoint failed", logfields.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Admin endpoint shutdown failed", logfields.Error(err))
		}
		if err := d.store.Close(); err != nil {
			slog.Error("Run history close failed", logfields.Error(err))
		}
	}()

	// One conversion right away so a fresh daemon starts from converted state.
	d.requestRun("startup")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Daemon stopping")
			return nil
		case reason := <-d.trigger:
			d.runOnce(ctx, reason)
		}
	}
}

// requestRun queues a conversion run; bursts coalesce into one pending run.
func (d *Daemon) requestRun(reason string) {
	select {
	case d.trigger <- reason:
	default:
		slog.Debug("Conversion already pending, coalescing trigger", slog.String("reason", reason))
	}
}

// runOnce executes a single conversion run and records its outcome.
func (d *Daemon) runOnce(ctx context.Context, reason string) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	slog.Info("Starting scheduled conversion", slog.String("reason", reason))
	conv, err := convert.New(d.cfg)
	if err != nil {
		slog.Error("Conversion setup failed", logfields.Error(err))
		return
	}

	report, runErr := conv.Run(ctx)
	if runErr != nil {
		slog.Error("Conversion run failed", logfields.Error(runErr))
	}
	d.record(report)

	if _, err := d.store.Append(ctx, report); err != nil {
		slog.Error("Failed to persist run", logfields.Error(err))
	}
}

// record forwards report data to the metrics recorder.
func (d *Daemon) record(report *pipeline.RunReport) {
	d.recorder.ObserveRunDuration(report.Duration())
	d.recorder.IncRunOutcome(string(report.Outcome))
	d.recorder.SetFilesConverted(report.EmittedFiles)
	for stage, dur := range report.StageDurations {
		d.recorder.ObserveStageDuration(stage, dur)
	}
	for stage, result := range report.StageResults {
		d.recorder.IncStageResult(string(stage), metrics.ResultLabel(result))
	}
}
