package orchestrator

import (
	"benchsync/internal/benchmarks"
	"benchsync/internal/chrono"
	"benchsync/internal/fetch"
	"benchsync/internal/telemetry"
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	calls   [][]string
	resolve func(id string) benchmarks.Outcome
	onRun   func(ctx context.Context)
}

func (s *fakeScheduler) Run(ctx context.Context, ids []string, observer fetch.Observer) map[string]benchmarks.Outcome {
	s.calls = append(s.calls, slices.Clone(ids))
	if s.onRun != nil {
		s.onRun(ctx)
	}
	out := map[string]benchmarks.Outcome{}
	for i, id := range ids {
		o := s.resolve(id)
		out[id] = o
		observer.TaskCompleted(o, i+1, len(ids))
	}
	return out
}

func succeed(id string) benchmarks.Outcome {
	return benchmarks.SuccessOutcome(id, map[benchmarks.Field]string{
		benchmarks.BackSquat: "100 kg",
	})
}

type memoryBackend struct {
	writes []benchmarks.Table
	err    error
}

func (m *memoryBackend) Read(context.Context) (benchmarks.Table, error) {
	if len(m.writes) == 0 {
		return benchmarks.Table{}, benchmarks.ErrNoState
	}
	return m.writes[len(m.writes)-1], nil
}

func (m *memoryBackend) Write(_ context.Context, t benchmarks.Table) error {
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, t)
	return nil
}

func (m *memoryBackend) Describe() string {
	return "memory"
}

type recordingObserver struct {
	NopObserver
	started  []int
	finished []EpochReport
	tasks    int
	summary  *Summary
}

func (r *recordingObserver) TaskCompleted(benchmarks.Outcome, int, int) {
	r.tasks++
}

func (r *recordingObserver) EpochStarted(epoch, selected int) {
	r.started = append(r.started, selected)
}

func (r *recordingObserver) EpochFinished(report EpochReport) {
	r.finished = append(r.finished, report)
}

func (r *recordingObserver) RunFinished(summary Summary) {
	r.summary = &summary
}

type harness struct {
	store     *benchmarks.Store
	backend   *memoryBackend
	scheduler *fakeScheduler
	observer  *recordingObserver
	clock     *chrono.FakeTime
	rec       *telemetry.Recorder
}

func newHarness(t testing.TB, ids ...string) *harness {
	t.Helper()
	rows := make([][]string, len(ids))
	for i, id := range ids {
		rows[i] = []string{id}
	}
	rec := telemetry.NewRecorder()
	store, err := benchmarks.NewStore(benchmarks.Table{
		Columns: []string{benchmarks.IDColumn},
		Rows:    rows,
	}, rec)
	require.NoError(t, err)

	return &harness{
		store:     store,
		backend:   &memoryBackend{},
		scheduler: &fakeScheduler{resolve: succeed},
		observer:  &recordingObserver{},
		clock:     chrono.NewFakeTime(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		rec:       rec,
	}
}

func (h *harness) run(t testing.TB, ctx context.Context, config Config) (Summary, error) {
	t.Helper()
	o, err := New(h.store, h.backend, h.scheduler, h.observer, config, h.clock, h.rec)
	require.NoError(t, err)
	return o.Run(ctx)
}

func config(batch, limit int) Config {
	c := DefaultConfig()
	c.BatchSize = batch
	c.TotalLimit = limit
	return c
}

func TestBatchCapping(t *testing.T) {
	h := newHarness(t, "1", "2", "3", "4")

	summary, err := h.run(t, context.Background(), config(2, 3))
	require.NoError(t, err)

	require.Equal(t, [][]string{{"1", "2"}, {"3"}}, h.scheduler.calls)
	require.Len(t, h.backend.writes, 2)
	require.Equal(t, 2, summary.Epochs)
	require.Equal(t, 3, summary.Processed)
	require.Equal(t, StopLimit, summary.Reason)
	require.Equal(t, 1, summary.Pending)

	sleeps := h.clock.Sleeps()
	require.Len(t, sleeps, 1)
	require.GreaterOrEqual(t, sleeps[0], 15*time.Second)
	require.LessOrEqual(t, sleeps[0], 30*time.Second)
}

func TestPersistsEveryEpoch(t *testing.T) {
	h := newHarness(t, "a", "b", "c", "d", "e")

	summary, err := h.run(t, context.Background(), config(2, 100))
	require.NoError(t, err)
	require.Equal(t, StopDrained, summary.Reason)
	require.Equal(t, 3, summary.Epochs)
	require.Equal(t, 5, summary.Processed)
	require.Len(t, h.clock.Sleeps(), 2)

	require.Len(t, h.backend.writes, 3)
	for i, expected := range []int{2, 4, 5} {
		store, err := benchmarks.NewStore(h.backend.writes[i], telemetry.NewRecorder())
		require.NoError(t, err)
		require.Equal(t, expected, store.NonNull(benchmarks.BackSquat), "write %d", i)
		require.Equal(t, 5-expected, len(store.PendingIDs(0)), "write %d", i)
	}

	require.Equal(t, []int{2, 2, 1}, h.observer.started)
	require.Equal(t, 5, h.observer.tasks)
	require.Len(t, h.observer.finished, 3)
	last := h.observer.finished[2]
	require.Equal(t, 4, last.TrackedBefore)
	require.Equal(t, 5, last.TrackedAfter)
	require.Equal(t, 5, last.Processed)
	require.Equal(t, map[benchmarks.OutcomeKind]int{benchmarks.Success: 1}, last.Outcomes)
	require.Equal(t, 1, last.Merge.Applied)
	require.NotNil(t, h.observer.summary)
	require.Equal(t, summary, *h.observer.summary)
}

func TestNothingPending(t *testing.T) {
	h := newHarness(t)

	summary, err := h.run(t, context.Background(), config(2, 10))
	require.NoError(t, err)
	require.Equal(t, StopDrained, summary.Reason)
	require.Zero(t, summary.Epochs)
	require.Empty(t, h.scheduler.calls)
	require.Empty(t, h.backend.writes)
}

func TestExhaustedIsNotReselected(t *testing.T) {
	h := newHarness(t, "a", "b")
	h.scheduler.resolve = benchmarks.ExhaustedOutcome

	summary, err := h.run(t, context.Background(), config(1, 10))
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a"}, {"b"}}, h.scheduler.calls)
	require.Equal(t, StopDrained, summary.Reason)
	require.Equal(t, 2, h.store.Counts()[benchmarks.Fran].Errored)
}

func unclassifiedB(id string) benchmarks.Outcome {
	if id == "b" {
		return benchmarks.PartialFailureOutcome(id, 500)
	}
	return succeed(id)
}

func TestUnclassifiedIsBoundedByPlan(t *testing.T) {
	testCases := []struct {
		name    string
		ids     []string
		config  Config
		calls   [][]string
		reason  StopReason
		pending int
	}{
		{
			name:    "single epoch when every id was selected",
			ids:     []string{"a", "b"},
			config:  config(2, 5),
			calls:   [][]string{{"a", "b"}},
			reason:  StopPlanned,
			pending: 1,
		},
		{
			name:    "reselected while the plan lasts",
			ids:     []string{"a", "b", "c"},
			config:  config(2, 100),
			calls:   [][]string{{"a", "b"}, {"b"}},
			reason:  StopPlanned,
			pending: 2,
		},
		{
			name:    "total limit below the pending count",
			ids:     []string{"a", "b", "c"},
			config:  config(1, 2),
			calls:   [][]string{{"a"}, {"b"}},
			reason:  StopLimit,
			pending: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.ids...)
			h.scheduler.resolve = unclassifiedB

			summary, err := h.run(t, context.Background(), tc.config)
			require.NoError(t, err)
			require.Equal(t, tc.calls, h.scheduler.calls)
			require.Equal(t, tc.reason, summary.Reason)
			require.Equal(t, tc.pending, summary.Pending)
			require.Len(t, h.backend.writes, len(tc.calls))
			require.Len(t, h.clock.Sleeps(), len(tc.calls)-1)
		})
	}
}

func TestDeletedProfileDoesNotSpinUntilLimit(t *testing.T) {
	h := newHarness(t, "gone")
	h.scheduler.resolve = func(id string) benchmarks.Outcome {
		return benchmarks.PartialFailureOutcome(id, 404)
	}

	summary, err := h.run(t, context.Background(), config(250, 1000))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Epochs)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, StopPlanned, summary.Reason)
	require.Empty(t, h.clock.Sleeps())
	require.Len(t, h.backend.writes, 1)
	require.Equal(t, 1, summary.Pending)
}

func TestDeferUnclassified(t *testing.T) {
	h := newHarness(t, "a", "b", "c")
	h.scheduler.resolve = unclassifiedB

	c := config(2, 100)
	c.DeferUnclassified = true
	summary, err := h.run(t, context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a", "b"}, {"c"}}, h.scheduler.calls)
	require.Equal(t, StopDrained, summary.Reason)
	require.Equal(t, 1, summary.Pending)

	rec, ok := h.store.Get("b")
	require.True(t, ok)
	require.True(t, rec.Pending())
}

func TestCancelBetweenEpochs(t *testing.T) {
	h := newHarness(t, "a", "b", "c")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var epochCtxErr error
	h.scheduler.onRun = func(epochCtx context.Context) {
		cancel()
		epochCtxErr = epochCtx.Err()
	}

	summary, err := h.run(t, ctx, config(2, 100))
	require.NoError(t, err)
	require.NoError(t, epochCtxErr)
	require.Equal(t, StopCancelled, summary.Reason)
	require.Equal(t, 1, summary.Epochs)
	require.Equal(t, 2, summary.Processed)
	require.Len(t, h.backend.writes, 1)
	require.Empty(t, h.clock.Sleeps())
}

func TestCancelledBeforeStart(t *testing.T) {
	h := newHarness(t, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := h.run(t, ctx, config(2, 100))
	require.NoError(t, err)
	require.Equal(t, StopCancelled, summary.Reason)
	require.Empty(t, h.scheduler.calls)
	require.Equal(t, 1, summary.Pending)
}

func TestSaveFailureAborts(t *testing.T) {
	h := newHarness(t, "a", "b", "c")
	h.backend.err = errors.New("disk full")

	_, err := h.run(t, context.Background(), config(1, 100))
	require.Error(t, err)

	var storeErr *benchmarks.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "save", storeErr.Op)
	require.Len(t, h.scheduler.calls, 1)
	require.Nil(t, h.observer.summary)
}

func TestConfigValidation(t *testing.T) {
	h := newHarness(t, "a")

	c := DefaultConfig()
	c.DelayMin = time.Minute
	c.DelayMax = time.Second
	_, err := New(h.store, h.backend, h.scheduler, nil, c, h.clock, h.rec)
	require.Error(t, err)

	c = DefaultConfig()
	c.TotalLimit = -1
	_, err = New(h.store, h.backend, h.scheduler, nil, c, h.clock, h.rec)
	require.Error(t, err)
}
