package fetch

import (
	"benchsync/internal/benchmarks"
	"benchsync/internal/telemetry"
	"context"
)

// Observer is notified as outcomes arrive, it is called from the collecting goroutine only.
type Observer interface {
	TaskCompleted(outcome benchmarks.Outcome, done, total int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(outcome benchmarks.Outcome, done, total int)

func (f ObserverFunc) TaskCompleted(outcome benchmarks.Outcome, done, total int) {
	f(outcome, done, total)
}

// Scheduler runs a Runner over a batch of ids with a fixed pool of workers.
// It does not retry, retrying is up to the Runner.
type Scheduler struct {
	runner      Runner
	concurrency int
	tel         telemetry.API
}

func NewScheduler(runner Runner, concurrency int, tel telemetry.API) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		runner:      runner,
		concurrency: concurrency,
		tel:         telemetry.NewScopedAPI("scheduler", tel),
	}
}

// Run resolves every id and returns the outcomes keyed by id. At most `concurrency` runners are in
// flight at once. Outcomes are collected in completion order and observer (which may be nil) is told
// about each one. The result channel holds every outcome so a slow observer never stalls a worker.
func (s *Scheduler) Run(ctx context.Context, ids []string, observer Observer) map[string]benchmarks.Outcome {
	total := len(ids)
	outcomes := make(map[string]benchmarks.Outcome, total)
	if total == 0 {
		return outcomes
	}

	jobs := make(chan string, total)
	for _, id := range ids {
		jobs <- id
	}
	close(jobs)

	results := make(chan benchmarks.Outcome, total)
	workers := min(s.concurrency, total)
	s.tel.ReportDebug("starting workers", workers, total)

	for range workers {
		go func() {
			for id := range jobs {
				out := s.runner.Run(ctx, id)
				if out.EntityID == "" {
					out.EntityID = id
				}
				results <- out
			}
		}()
	}

	for done := 1; done <= total; done++ {
		out := <-results
		outcomes[out.EntityID] = out
		if observer != nil {
			observer.TaskCompleted(out, done, total)
		}
	}

	return outcomes
}
