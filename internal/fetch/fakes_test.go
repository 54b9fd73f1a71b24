package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var errConnReset = errors.New("connection reset by peer")

// step is one scripted reply, err wins over status.
type step struct {
	status int
	body   string
	err    error
}

type scriptedRequester struct {
	mu      sync.Mutex
	scripts map[string][]step
	calls   map[string]int

	delay    time.Duration
	inflight atomic.Int64
	peak     atomic.Int64
}

func newScriptedRequester(scripts map[string][]step) *scriptedRequester {
	return &scriptedRequester{
		scripts: scripts,
		calls:   map[string]int{},
	}
}

func (r *scriptedRequester) Get(ctx context.Context, id string) (Response, error) {
	current := r.inflight.Add(1)
	defer r.inflight.Add(-1)
	for {
		peak := r.peak.Load()
		if current <= peak || r.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	script := r.scripts[id]
	n := r.calls[id]
	r.calls[id]++
	if len(script) == 0 {
		return Response{Status: 200, Body: []byte("Fran=2:59")}, nil
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	s := script[n]
	if s.err != nil {
		return Response{}, s.err
	}
	return Response{Status: s.status, Body: []byte(s.body)}, nil
}

func (r *scriptedRequester) Calls(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

// lineExtractor reads "label=value" pairs separated by ";".
type lineExtractor struct{}

func (lineExtractor) Extract(body []byte) (map[string]string, error) {
	text := strings.TrimSpace(string(body))
	if text == "garbled" {
		return nil, fmt.Errorf("unreadable body")
	}
	out := map[string]string{}
	if text == "" {
		return out, nil
	}
	for _, pair := range strings.Split(text, ";") {
		label, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[label] = value
	}
	return out, nil
}
