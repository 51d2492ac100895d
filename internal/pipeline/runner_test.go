package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() *RunState {
	return &RunState{Source: "/src", Staging: "/staging", Report: NewRunReport()}
}

func TestRunStagesExecutesInOrder(t *testing.T) {
	rs := newTestState()
	var order []StageName

	record := func(name StageName) Stage {
		return func(ctx context.Context, rs *RunState) error {
			order = append(order, name)
			return nil
		}
	}

	stages := NewPipeline().
		Add(StagePrepareStaging, record(StagePrepareStaging)).
		Add(StageCopyTree, record(StageCopyTree)).
		Add(StageStats, record(StageStats)).
		Build()

	require.NoError(t, RunStages(context.Background(), rs, stages))
	assert.Equal(t, []StageName{StagePrepareStaging, StageCopyTree, StageStats}, order)
	assert.Equal(t, StageResultSuccess, rs.Report.StageResults[StageCopyTree])
}

func TestRunStagesAbortsOnFatal(t *testing.T) {
	rs := newTestState()
	ran := false

	stages := NewPipeline().
		Add(StageCompile, func(ctx context.Context, rs *RunState) error {
			return NewFatalStageError(StageCompile, errors.New("no output emitted"))
		}).
		Add(StageRewriteRefs, func(ctx context.Context, rs *RunState) error {
			ran = true
			return nil
		}).
		Build()

	err := RunStages(context.Background(), rs, stages)
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageErrorFatal, se.Kind)
	assert.Equal(t, StageCompile, se.Stage)

	assert.False(t, ran, "downstream stage must not run after fatal error")
	assert.Equal(t, StageResultFatal, rs.Report.StageResults[StageCompile])
	_, recorded := rs.Report.StageResults[StageRewriteRefs]
	assert.False(t, recorded)
}

func TestRunStagesContinuesOnWarning(t *testing.T) {
	rs := newTestState()
	ran := false

	stages := NewPipeline().
		Add(StageClassify, func(ctx context.Context, rs *RunState) error {
			return NewWarnStageError(StageClassify, errors.New("rename failed for one file"))
		}).
		Add(StageStats, func(ctx context.Context, rs *RunState) error {
			ran = true
			return nil
		}).
		Build()

	require.NoError(t, RunStages(context.Background(), rs, stages))
	assert.True(t, ran)
	assert.Equal(t, StageResultWarning, rs.Report.StageResults[StageClassify])
	assert.Len(t, rs.Report.Warnings, 1)
	assert.Empty(t, rs.Report.Errors)
}

func TestRunStagesHonorsCancellation(t *testing.T) {
	rs := newTestState()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stages := NewPipeline().
		Add(StagePrepareStaging, func(ctx context.Context, rs *RunState) error {
			t.Fatal("stage must not run with canceled context")
			return nil
		}).
		Build()

	err := RunStages(ctx, rs, stages)
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageErrorCanceled, se.Kind)
	assert.Equal(t, StageResultCanceled, rs.Report.StageResults[StagePrepareStaging])
}

func TestNonStageErrorTreatedAsFatal(t *testing.T) {
	rs := newTestState()
	stages := NewPipeline().
		Add(StageCopyTree, func(ctx context.Context, rs *RunState) error {
			return errors.New("plain error")
		}).
		Build()

	err := RunStages(context.Background(), rs, stages)
	require.Error(t, err)
	assert.Equal(t, StageResultFatal, rs.Report.StageResults[StageCopyTree])
}

func TestPipelineAddIf(t *testing.T) {
	noop := func(ctx context.Context, rs *RunState) error { return nil }
	defs := NewPipeline().
		Add(StagePrepareStaging, noop).
		AddIf(false, StageCompile, noop).
		AddIf(true, StageStats, noop).
		Build()

	require.Len(t, defs, 2)
	assert.Equal(t, StagePrepareStaging, defs[0].Name)
	assert.Equal(t, StageStats, defs[1].Name)
}

func TestDeriveOutcome(t *testing.T) {
	r := NewRunReport()
	r.RecordStageResult(StageCopyTree, StageResultSuccess, 0)
	r.DeriveOutcome()
	assert.Equal(t, OutcomeSuccess, r.Outcome)

	r.RecordStageResult(StageClassify, StageResultWarning, 0)
	r.DeriveOutcome()
	assert.Equal(t, OutcomeWarning, r.Outcome)

	r.RecordStageResult(StageCompile, StageResultFatal, 0)
	r.DeriveOutcome()
	assert.Equal(t, OutcomeFailed, r.Outcome)

	r.RecordStageResult(StageStats, StageResultCanceled, 0)
	r.DeriveOutcome()
	assert.Equal(t, OutcomeCanceled, r.Outcome)
}
