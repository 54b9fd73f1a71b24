package orchestrator

import (
	"benchsync/internal/assert"
	"benchsync/internal/benchmarks"
	"benchsync/internal/chrono"
	"benchsync/internal/fetch"
	"benchsync/internal/telemetry"
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_orchestrator_unknown_ids   = "orchestrator.unknown-ids"
	report_orchestrator_processed     = "orchestrator.processed"
	report_orchestrator_tracked_field = "orchestrator.tracked-field"
)

var tracer = otel.Tracer("benchsync/orchestrator")
var meter = otel.Meter("benchsync/orchestrator")

// TrackedField is the field whose non-null count is reported before and after every epoch.
const TrackedField = benchmarks.BackSquat

type Config struct {
	BatchSize  int
	TotalLimit int
	DelayMin   time.Duration
	DelayMax   time.Duration
	// DeferUnclassified skips ids that got an unclassified status for the rest of the run.
	// They stay pending in the durable table either way.
	DeferUnclassified bool
}

func DefaultConfig() Config {
	return Config{
		BatchSize:  250,
		TotalLimit: 200000,
		DelayMin:   15 * time.Second,
		DelayMax:   30 * time.Second,
	}
}

// Scheduler runs one epoch worth of ids, see fetch.Scheduler.
type Scheduler interface {
	Run(ctx context.Context, ids []string, observer fetch.Observer) map[string]benchmarks.Outcome
}

type StopReason int

const (
	StopDrained StopReason = iota
	StopLimit
	StopPlanned
	StopCancelled
)

func (r StopReason) String() string {
	switch r {
	case StopDrained:
		return "no pending ids left"
	case StopLimit:
		return "total limit reached"
	case StopPlanned:
		return "planned ids processed"
	case StopCancelled:
		return "cancelled"
	}
	return "unknown"
}

// EpochReport describes a finished epoch, after its outcomes were merged and saved.
type EpochReport struct {
	Epoch     int
	Selected  int
	Completed int
	Outcomes  map[benchmarks.OutcomeKind]int
	Merge     benchmarks.MergeReport
	// Processed is the running total of selected ids, including this epoch.
	Processed int

	TrackedBefore int
	TrackedAfter  int
}

type Summary struct {
	Epochs    int
	Processed int
	Pending   int
	Reason    StopReason
	Elapsed   time.Duration
}

// Observer is the progress sink of a run.
type Observer interface {
	fetch.Observer
	EpochStarted(epoch, selected int)
	EpochFinished(report EpochReport)
	RunFinished(summary Summary)
}

type Orchestrator struct {
	store     *benchmarks.Store
	backend   benchmarks.Backend
	scheduler Scheduler
	observer  Observer
	config    Config
	time      chrono.TimeAPI
	tel       telemetry.API

	delay    func(lo, hi time.Duration) time.Duration
	outcomes metric.Int64Counter
}

func New(
	store *benchmarks.Store,
	backend benchmarks.Backend,
	scheduler Scheduler,
	observer Observer,
	config Config,
	time chrono.TimeAPI,
	tel telemetry.API,
) (*Orchestrator, error) {
	assert.NotNil(store)
	assert.NotNil(backend)
	assert.NotNil(scheduler)
	assert.Positive(config.BatchSize, "batch size")
	if config.TotalLimit < 0 {
		return nil, fmt.Errorf("total limit must not be negative, got %d", config.TotalLimit)
	}
	if config.DelayMax < config.DelayMin {
		return nil, fmt.Errorf("delay max (%v) is smaller than delay min (%v)", config.DelayMax, config.DelayMin)
	}
	if observer == nil {
		observer = NopObserver{}
	}

	outcomes, err := meter.Int64Counter(
		"benchsync.outcomes",
		metric.WithDescription("Fetch outcomes by kind."),
	)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		store:     store,
		backend:   backend,
		scheduler: scheduler,
		observer:  observer,
		config:    config,
		time:      time,
		tel:       telemetry.NewScopedAPI("orchestrator", tel),
		delay:     fetch.Uniform,
		outcomes:  outcomes,
	}, nil
}

// Run drives epochs until the planned number of ids is processed, no pending id is left or ctx is
// cancelled. The plan is min(TotalLimit, pending ids) taken once at start, so ids that keep getting
// an unclassified status are retried at most for the epochs that plan allows.
//
// An epoch that has started always runs to completion and is saved, cancellation only takes effect
// between epochs and during the inter-batch delay. A failure to save aborts the run.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	start := o.time.Now()
	deferred := map[string]struct{}{}
	skip := func(id string) bool {
		_, ok := deferred[id]
		return ok
	}
	planned := min(o.config.TotalLimit, len(o.store.PendingIDs(0)))

	summary := Summary{}
	finish := func(reason StopReason) Summary {
		summary.Reason = reason
		summary.Pending = len(o.store.PendingIDs(0))
		summary.Elapsed = o.time.Now().Sub(start)
		o.tel.ReportCount(report_orchestrator_processed, int64(summary.Processed))
		o.observer.RunFinished(summary)
		return summary
	}
	stopReason := func() StopReason {
		switch {
		case len(o.store.PendingIDsFunc(1, skip)) == 0:
			return StopDrained
		case summary.Processed >= o.config.TotalLimit:
			return StopLimit
		}
		return StopPlanned
	}

	for {
		if ctx.Err() != nil {
			return finish(StopCancelled), nil
		}

		var ids []string
		if remaining := planned - summary.Processed; remaining > 0 {
			ids = o.store.PendingIDsFunc(min(o.config.BatchSize, remaining), skip)
		}
		if len(ids) == 0 {
			return finish(stopReason()), nil
		}

		summary.Epochs++
		report, err := o.epoch(ctx, summary.Epochs, ids)
		if err != nil {
			return summary, err
		}
		summary.Processed += report.Selected
		report.Processed = summary.Processed

		if o.config.DeferUnclassified {
			for id, out := range report.outcomes {
				if out.Kind == benchmarks.PartialFailure {
					deferred[id] = struct{}{}
				}
			}
		}
		o.observer.EpochFinished(report.EpochReport)

		if summary.Processed >= planned || len(o.store.PendingIDsFunc(1, skip)) == 0 {
			return finish(stopReason()), nil
		}

		delay := o.delay(o.config.DelayMin, o.config.DelayMax)
		o.tel.ReportDebug("sleeping between epochs", delay.String())
		err = o.time.Sleep(ctx, delay)
		if err != nil {
			return finish(StopCancelled), nil
		}
	}
}

type epochResult struct {
	EpochReport
	outcomes map[string]benchmarks.Outcome
}

func (o *Orchestrator) epoch(ctx context.Context, n int, ids []string) (epochResult, error) {
	ctx, span := tracer.Start(ctx, "epoch", trace.WithAttributes(
		attribute.Int("epoch", n),
		attribute.Int("selected", len(ids)),
	))
	defer span.End()

	report := EpochReport{
		Epoch:         n,
		Selected:      len(ids),
		Outcomes:      map[benchmarks.OutcomeKind]int{},
		TrackedBefore: o.store.NonNull(TrackedField),
	}
	o.observer.EpochStarted(n, len(ids))

	outcomes := o.scheduler.Run(context.WithoutCancel(ctx), ids, o.observer)
	report.Completed = len(outcomes)
	for _, out := range outcomes {
		report.Outcomes[out.Kind]++
		o.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", out.Kind.String())))
	}

	report.Merge = o.store.Merge(outcomes)
	if len(report.Merge.Unknown) > 0 {
		o.tel.ReportWarning(report_orchestrator_unknown_ids, report.Merge.Unknown)
	}
	report.TrackedAfter = o.store.NonNull(TrackedField)
	o.tel.ReportCount(report_orchestrator_tracked_field, int64(report.TrackedAfter))

	span.SetAttributes(
		attribute.Int("completed", report.Completed),
		attribute.Int("applied", report.Merge.Applied),
	)

	err := benchmarks.Save(context.WithoutCancel(ctx), o.backend, o.store, o.tel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save store")
		return epochResult{}, fmt.Errorf("epoch %d: %w", n, err)
	}

	return epochResult{EpochReport: report, outcomes: outcomes}, nil
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) TaskCompleted(benchmarks.Outcome, int, int) {}
func (NopObserver) EpochStarted(int, int)                      {}
func (NopObserver) EpochFinished(EpochReport)                  {}
func (NopObserver) RunFinished(Summary)                        {}
