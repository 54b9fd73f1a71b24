package progress

import (
	"benchsync/internal/benchmarks"
	"benchsync/internal/orchestrator"
	"benchsync/internal/telemetry"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	rec := telemetry.NewRecorder()
	l := NewLog(rec)

	l.EpochStarted(1, 2)
	l.TaskCompleted(benchmarks.SuccessOutcome("a", nil), 1, 2)
	l.TaskCompleted(benchmarks.ExhaustedOutcome("b"), 2, 2)
	l.EpochFinished(orchestrator.EpochReport{
		Epoch:         1,
		Selected:      2,
		Completed:     2,
		TrackedBefore: 10,
		TrackedAfter:  12,
	})
	l.RunFinished(orchestrator.Summary{Epochs: 1, Processed: 2})

	counts := rec.Counts()
	require.Equal(t, int64(2), counts["progress: "+report_progress_done])
	require.Equal(t, int64(2), counts["progress: "+report_progress_selected])
	require.Equal(t, int64(10), counts["progress: "+report_progress_tracked_before])
	require.Equal(t, int64(12), counts["progress: "+report_progress_tracked_after])
	require.Equal(t, int64(2), counts["progress: "+report_progress_processed])
}

func TestMulti(t *testing.T) {
	first := telemetry.NewRecorder()
	second := telemetry.NewRecorder()
	m := Multi{NewLog(first), NewLog(second)}

	m.EpochStarted(1, 3)
	m.TaskCompleted(benchmarks.SuccessOutcome("a", nil), 1, 3)
	m.EpochFinished(orchestrator.EpochReport{Epoch: 1})
	m.RunFinished(orchestrator.Summary{})

	require.Equal(t, first.Events(), second.Events())
	require.NotEmpty(t, first.Events())
}

func TestBars(t *testing.T) {
	var out bytes.Buffer
	b := NewBars(&out)

	b.TaskCompleted(benchmarks.SuccessOutcome("a", nil), 1, 1)

	b.EpochStarted(1, 3)
	for i := range 3 {
		b.TaskCompleted(benchmarks.SuccessOutcome("a", nil), i+1, 3)
	}
	require.Equal(t, int64(3), b.tracker.Value())

	b.EpochFinished(orchestrator.EpochReport{Epoch: 1, TrackedBefore: 1, TrackedAfter: 4})
	require.True(t, b.tracker.IsDone())
	require.Contains(t, b.tracker.Message, "Back Squat 1 -> 4")

	done := make(chan struct{})
	go func() {
		b.RunFinished(orchestrator.Summary{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunFinished did not return")
	}
}
