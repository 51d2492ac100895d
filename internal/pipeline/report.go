package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"git.home.luguber.info/inful/jsxforge/internal/version"
)

// RunOutcome is the typed enumeration of final run result states.
type RunOutcome string

const (
	OutcomeSuccess  RunOutcome = "success"
	OutcomeWarning  RunOutcome = "warning"
	OutcomeFailed   RunOutcome = "failed"
	OutcomeCanceled RunOutcome = "canceled"
)

// RunReport captures counts and per-stage results for one conversion run.
// It is ephemeral: printed to stdout and optionally written as a JSON
// artifact, never persisted by the pipeline itself.
type RunReport struct {
	SchemaVersion int       `json:"schema_version"`
	Version       string    `json:"version"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`

	SourceFiles    int `json:"source_files"`    // .ts/.tsx inputs
	CopiedFiles    int `json:"copied_files"`    // files mirrored into staging
	EmittedFiles   int `json:"emitted_files"`   // .js/.jsx outputs
	RenamedFiles   int `json:"renamed_files"`   // .js -> .jsx reclassifications
	RewrittenFiles int `json:"rewritten_files"` // files patched by the rewriters

	BundlerConfigConverted bool `json:"bundler_config_converted"`
	ViewTemplateConverted  bool `json:"view_template_converted"`

	StageDurations  map[string]time.Duration     `json:"stage_durations"`
	StageResults    map[StageName]StageResult    `json:"stage_results"`
	StageErrorKinds map[StageName]StageErrorKind `json:"stage_error_kinds,omitempty"`

	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	Outcome RunOutcome `json:"outcome"`
}

// NewRunReport constructs an empty report with maps initialized.
func NewRunReport() *RunReport {
	return &RunReport{
		SchemaVersion:   1,
		Version:         version.Version,
		Start:           time.Now(),
		StageDurations:  make(map[string]time.Duration),
		StageResults:    make(map[StageName]StageResult),
		StageErrorKinds: make(map[StageName]StageErrorKind),
	}
}

// AddError records a fatal error message.
func (r *RunReport) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

// AddWarning records a non-fatal issue.
func (r *RunReport) AddWarning(err error) {
	if err != nil {
		r.Warnings = append(r.Warnings, err.Error())
	}
}

// RecordStageResult stores per-stage result and duration.
func (r *RunReport) RecordStageResult(stage StageName, result StageResult, dur time.Duration) {
	r.StageResults[stage] = result
	r.StageDurations[string(stage)] = dur
}

// DeriveOutcome computes the single source-of-truth outcome from recorded
// stage results and errors. Canceled wins over failed, failed over warning.
func (r *RunReport) DeriveOutcome() {
	outcome := OutcomeSuccess
	for _, res := range r.StageResults {
		switch res {
		case StageResultCanceled:
			r.Outcome = OutcomeCanceled
			return
		case StageResultFatal:
			outcome = OutcomeFailed
		case StageResultWarning:
			if outcome == OutcomeSuccess {
				outcome = OutcomeWarning
			}
		case StageResultSuccess:
		}
	}
	if outcome == OutcomeSuccess && len(r.Errors) > 0 {
		outcome = OutcomeFailed
	}
	if outcome == OutcomeSuccess && len(r.Warnings) > 0 {
		outcome = OutcomeWarning
	}
	r.Outcome = outcome
}

// Finish stamps the end time.
func (r *RunReport) Finish() { r.End = time.Now() }

// Duration returns total wall time for the run.
func (r *RunReport) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// WriteJSON writes the report as an indented JSON artifact.
func (r *RunReport) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}
	return nil
}
