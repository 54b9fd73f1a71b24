package progress

import (
	"benchsync/internal/benchmarks"
	"benchsync/internal/orchestrator"
	"benchsync/internal/telemetry"
)

const (
	report_progress_done           = "progress.done"
	report_progress_selected       = "progress.selected"
	report_progress_completed      = "progress.completed"
	report_progress_tracked_before = "progress.tracked-before"
	report_progress_tracked_after  = "progress.tracked-after"
	report_progress_processed      = "progress.processed"
)

// Log reports progress through telemetry, it is what ends up in the log file.
type Log struct {
	tel telemetry.API
}

func NewLog(tel telemetry.API) Log {
	return Log{tel: telemetry.NewScopedAPI("progress", tel)}
}

func (l Log) TaskCompleted(outcome benchmarks.Outcome, done, total int) {
	l.tel.ReportDebug(
		"task completed",
		outcome.EntityID,
		outcome.Kind.String(),
		outcome.Attempts,
	)
	l.tel.ReportCount(report_progress_done, int64(done))
}

func (l Log) EpochStarted(epoch, selected int) {
	l.tel.ReportDebug("epoch started", epoch)
	l.tel.ReportCount(report_progress_selected, int64(selected))
}

func (l Log) EpochFinished(report orchestrator.EpochReport) {
	l.tel.ReportDebug(
		"epoch finished",
		report.Epoch,
		report.Outcomes[benchmarks.Success],
		report.Outcomes[benchmarks.PartialFailure],
		report.Outcomes[benchmarks.Exhausted],
	)
	l.tel.ReportCount(report_progress_completed, int64(report.Completed))
	l.tel.ReportCount(report_progress_tracked_before, int64(report.TrackedBefore))
	l.tel.ReportCount(report_progress_tracked_after, int64(report.TrackedAfter))
}

func (l Log) RunFinished(summary orchestrator.Summary) {
	l.tel.ReportDebug(
		"run finished",
		summary.Reason.String(),
		summary.Epochs,
		summary.Pending,
		summary.Elapsed.String(),
	)
	l.tel.ReportCount(report_progress_processed, int64(summary.Processed))
}
