package fetch

import (
	"benchsync/internal/benchmarks"
	"benchsync/internal/chrono"
	"benchsync/internal/telemetry"
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	report_task_request           = "task.request"
	report_task_rate_limited      = "task.rate-limited"
	report_task_unexpected_status = "task.unexpected-status"
	report_task_extract           = "task.extract"
	report_task_exhausted         = "task.exhausted"
	report_task_cancelled         = "task.cancelled"
)

// Response is what the remote answered for one entity.
type Response struct {
	Status int
	Body   []byte
}

// Requester performs a single request for an entity, a non-2xx status is not an error.
type Requester interface {
	Get(ctx context.Context, entityID string) (Response, error)
}

// Extractor turns a successful response body into benchmark values keyed by their human readable label.
// Labels that are not found are simply absent from the result.
type Extractor interface {
	Extract(body []byte) (map[string]string, error)
}

// Runner resolves a single entity into an outcome.
type Runner interface {
	Run(ctx context.Context, entityID string) benchmarks.Outcome
}

type attemptKind int

const (
	attemptSuccess attemptKind = iota
	attemptRateLimited
	attemptTransient
	attemptUnclassified
)

type attemptResult struct {
	kind    attemptKind
	status  int
	scraped map[string]string
	err     error
}

// Task fetches a single entity, retrying rate limiting and transient errors according to a Policy.
type Task struct {
	requester Requester
	extractor Extractor
	policy    Policy
	time      chrono.TimeAPI
	tel       telemetry.API

	// jitter picks the pause after a successful response.
	jitter func(lo, hi time.Duration) time.Duration
}

func NewTask(
	requester Requester,
	extractor Extractor,
	policy Policy,
	time chrono.TimeAPI,
	tel telemetry.API,
) *Task {
	return &Task{
		requester: requester,
		extractor: extractor,
		policy:    policy,
		time:      time,
		tel:       telemetry.NewScopedAPI("fetch", tel),
		jitter:    Uniform,
	}
}

func (t *Task) attempt(ctx context.Context, id string) attemptResult {
	res, err := t.requester.Get(ctx, id)
	if err != nil {
		return attemptResult{kind: attemptTransient, err: fmt.Errorf("request: %w", err)}
	}

	switch res.Status {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusForbidden:
		return attemptResult{kind: attemptRateLimited, status: res.Status}
	default:
		return attemptResult{kind: attemptUnclassified, status: res.Status}
	}

	scraped, err := t.extractor.Extract(res.Body)
	if err != nil {
		return attemptResult{kind: attemptTransient, status: res.Status, err: fmt.Errorf("extract: %w", err)}
	}
	return attemptResult{kind: attemptSuccess, status: res.Status, scraped: scraped}
}

// Run fetches id until it succeeds, hits an unclassified status or runs out of retries.
//
// If ctx is cancelled while backing off, the entity is reported as a PartialFailure so that it stays
// pending instead of being marked as errored.
func (t *Task) Run(ctx context.Context, id string) benchmarks.Outcome {
	backoff := t.policy.Backoff()
	attempts := 0
	var last attemptResult

	for {
		attempts++
		last = t.attempt(ctx, id)

		switch last.kind {
		case attemptSuccess:
			return t.succeed(ctx, id, last, attempts)
		case attemptUnclassified:
			t.tel.ReportWarning(report_task_unexpected_status, id, last.status)
			out := benchmarks.PartialFailureOutcome(id, last.status)
			out.Attempts = attempts
			return out
		case attemptRateLimited:
			t.tel.ReportWarning(report_task_rate_limited, id, last.status, attempts)
		case attemptTransient:
			if last.status == http.StatusOK {
				t.tel.ReportWarning(report_task_extract, id, last.err, attempts)
			} else {
				t.tel.ReportWarning(report_task_request, id, last.err, attempts)
			}
		}

		delay, ok := backoff.Next()
		if !ok {
			break
		}
		t.tel.ReportDebug("backing off", id, delay.String(), backoff.Retries())

		err := t.time.Sleep(ctx, delay)
		if err != nil {
			t.tel.ReportWarning(report_task_cancelled, id, err)
			out := benchmarks.PartialFailureOutcome(id, last.status)
			out.Attempts = attempts
			out.Err = err
			return out
		}
	}

	t.tel.ReportWarning(report_task_exhausted, id, attempts, last.err)
	out := benchmarks.ExhaustedOutcome(id)
	out.Attempts = attempts
	out.Status = last.status
	out.Err = last.err
	return out
}

func (t *Task) succeed(ctx context.Context, id string, res attemptResult, attempts int) benchmarks.Outcome {
	scraped := map[benchmarks.Field]string{}
	for label, value := range res.scraped {
		field, ok := benchmarks.FieldByName(label)
		if !ok {
			continue
		}
		scraped[field] = value
	}

	out := benchmarks.SuccessOutcome(id, scraped)
	out.Attempts = attempts
	out.Status = res.status
	t.tel.ReportDebug("scraped", id, len(scraped))

	// the pause only spaces out requests, an interrupted pause does not invalidate the result
	_ = t.time.Sleep(ctx, t.jitter(t.policy.JitterMin, t.policy.JitterMax))
	return out
}
