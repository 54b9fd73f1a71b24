package progress

import (
	"benchsync/internal/benchmarks"
	"benchsync/internal/orchestrator"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

const updateFrequency = 100 * time.Millisecond

// Bars renders one progress bar per epoch.
type Bars struct {
	writer  progress.Writer
	tracker *progress.Tracker
	field   string
}

func NewBars(out io.Writer) *Bars {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetTrackerPosition(progress.PositionRight)
	pw.SetStyle(progress.StyleDefault)
	pw.SetUpdateFrequency(updateFrequency)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true
	pw.Style().Visibility.Time = true

	return &Bars{
		writer: pw,
		field:  orchestrator.TrackedField.String(),
	}
}

// Start renders in the background until RunFinished is observed.
func (b *Bars) Start() {
	go b.writer.Render()
}

func (b *Bars) TaskCompleted(_ benchmarks.Outcome, _, _ int) {
	if b.tracker == nil {
		return
	}
	b.tracker.Increment(1)
}

func (b *Bars) EpochStarted(epoch, selected int) {
	b.tracker = &progress.Tracker{
		Message: fmt.Sprintf("epoch %d", epoch),
		Total:   int64(selected),
		Units:   progress.UnitsDefault,
	}
	b.writer.AppendTracker(b.tracker)
}

func (b *Bars) EpochFinished(report orchestrator.EpochReport) {
	if b.tracker == nil {
		return
	}
	b.tracker.UpdateMessage(fmt.Sprintf(
		"epoch %d (%s %d -> %d)",
		report.Epoch,
		b.field,
		report.TrackedBefore,
		report.TrackedAfter,
	))
	b.tracker.MarkAsDone()
}

func (b *Bars) RunFinished(orchestrator.Summary) {
	if !b.writer.IsRenderInProgress() {
		return
	}
	// let the final frame render
	time.Sleep(2 * updateFrequency)
	b.writer.Stop()
	for b.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}
