package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration("copy_tree", 150*time.Millisecond)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncStageResult("compile", ResultWarning)
	pr.IncRunOutcome("success")
	pr.SetFilesConverted(42)
	pr.IncWatchTrigger()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"jsxforge_stage_duration_seconds",
		"jsxforge_run_duration_seconds",
		"jsxforge_stage_results_total",
		"jsxforge_run_outcomes_total",
		"jsxforge_files_converted",
		"jsxforge_watch_triggers_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("copy_tree", time.Second)
	pr.IncRunOutcome("failed")
	pr.SetFilesConverted(1)

	var noop NoopRecorder
	noop.ObserveRunDuration(time.Second)
	noop.IncStageResult("compile", ResultFatal)
}
