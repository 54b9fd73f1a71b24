package progress

import (
	"benchsync/internal/benchmarks"
	"benchsync/internal/orchestrator"
)

// Multi fans every event out to each observer in order.
type Multi []orchestrator.Observer

func (m Multi) TaskCompleted(outcome benchmarks.Outcome, done, total int) {
	for _, o := range m {
		o.TaskCompleted(outcome, done, total)
	}
}

func (m Multi) EpochStarted(epoch, selected int) {
	for _, o := range m {
		o.EpochStarted(epoch, selected)
	}
}

func (m Multi) EpochFinished(report orchestrator.EpochReport) {
	for _, o := range m {
		o.EpochFinished(report)
	}
}

func (m Multi) RunFinished(summary orchestrator.Summary) {
	for _, o := range m {
		o.RunFinished(summary)
	}
}
