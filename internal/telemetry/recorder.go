package telemetry

import (
	"strings"
	"sync"
)

// EventKind is the kind of report a Recorder captured.
type EventKind int

const (
	EventBroken EventKind = iota
	EventWarning
	EventDebug
	EventCount
)

// Event is a single captured report.
type Event struct {
	Kind   EventKind
	ID     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory, it is safe for concurrent use.
// It is meant for tests that need to assert that something was (or was not) reported.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) push(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.push(Event{Kind: EventBroken, ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.push(Event{Kind: EventWarning, ID: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.push(Event{Kind: EventDebug, ID: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.push(Event{Kind: EventCount, ID: id, Count: count})
}

// Events returns a copy of every captured event in report order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Find returns the events of the given kind whose id ends with suffix, scoped ids
// look like "namespace: id" so matching on the suffix keeps tests independent of scoping.
func (r *Recorder) Find(kind EventKind, suffix string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind && strings.HasSuffix(e.ID, suffix) {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns the last reported value of every count id.
func (r *Recorder) Counts() map[string]int64 {
	out := map[string]int64{}
	for _, e := range r.Events() {
		if e.Kind == EventCount {
			out[e.ID] = e.Count
		}
	}
	return out
}
