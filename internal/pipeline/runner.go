package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/jsxforge/internal/logfields"
)

// RunStages executes stages in order, recording timing and stopping on first
// fatal error. Stages run strictly sequentially; the only suspension points
// are external-process invocations inside individual stages.
func RunStages(ctx context.Context, rs *RunState, stages []StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := NewCanceledStageError(st.Name, ctx.Err())
			rs.Report.StageErrorKinds[st.Name] = se.Kind
			rs.Report.AddError(se)
			rs.Report.RecordStageResult(st.Name, StageResultCanceled, 0)
			return se
		default:
		}

		t0 := time.Now()
		err := st.Fn(ctx, rs)
		dur := time.Since(t0)

		out := classifyStageResult(st.Name, err)

		if out.Error != nil {
			rs.Report.StageErrorKinds[st.Name] = out.Error.Kind
			if out.Error.Kind == StageErrorWarning {
				rs.Report.AddWarning(out.Error)
			} else {
				rs.Report.AddError(out.Error)
			}
		}
		rs.Report.RecordStageResult(st.Name, out.Result, dur)

		slog.Debug("Stage finished",
			logfields.Stage(string(st.Name)),
			logfields.DurationMS(float64(dur.Milliseconds())),
			logfields.Outcome(string(out.Result)))

		if out.Abort {
			if out.Error != nil {
				return out.Error
			}
			return fmt.Errorf("stage %s aborted", st.Name)
		}
	}
	return nil
}

// StageOutcome is the normalized result of stage execution.
type StageOutcome struct {
	Stage  StageName
	Error  *StageError
	Result StageResult
	Abort  bool
}

// classifyStageResult converts a raw error from a stage into a StageOutcome.
func classifyStageResult(stage StageName, err error) StageOutcome {
	if err == nil {
		return StageOutcome{Stage: stage, Result: StageResultSuccess}
	}

	var se *StageError
	if !errors.As(err, &se) {
		// Not a StageError - treat as fatal
		se = NewFatalStageError(stage, err)
	}

	switch se.Kind {
	case StageErrorWarning:
		return StageOutcome{Stage: stage, Error: se, Result: StageResultWarning}
	case StageErrorCanceled:
		return StageOutcome{Stage: stage, Error: se, Result: StageResultCanceled, Abort: true}
	default:
		return StageOutcome{Stage: stage, Error: se, Result: StageResultFatal, Abort: true}
	}
}
