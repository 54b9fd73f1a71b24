package benchmarks

import (
	"benchsync/internal/telemetry"
	"context"
	"errors"
	"fmt"
)

const (
	report_store_load = "store.load"
	report_store_save = "store.save"
)

// ErrNoState is returned by a Backend's Read when nothing has been persisted yet.
var ErrNoState = errors.New("no persisted state")

// Backend is durable storage for a whole table. Writes replace the entire table and must never leave a
// partially written table visible to a reader.
type Backend interface {
	Read(ctx context.Context) (Table, error)
	Write(ctx context.Context, t Table) error
	// Describe names the backend in logs, ex. the file path.
	Describe() string
}

// StoreError is a failure to read or write durable state, it aborts a run.
type StoreError struct {
	Op      string
	Backend string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %s", e.Op, e.Backend, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Load reads the store from durable, falling back to seed when durable has no state yet.
func Load(ctx context.Context, durable, seed Backend, tel telemetry.API) (*Store, error) {
	source := durable
	table, err := durable.Read(ctx)
	if errors.Is(err, ErrNoState) && seed != nil {
		source = seed
		table, err = seed.Read(ctx)
	}
	if err != nil {
		tel.ReportBroken(report_store_load, err, source.Describe())
		return nil, &StoreError{Op: "load", Backend: source.Describe(), Err: err}
	}

	store, err := NewStore(table, tel)
	if err != nil {
		tel.ReportBroken(report_store_load, err, source.Describe())
		return nil, &StoreError{Op: "load", Backend: source.Describe(), Err: err}
	}
	tel.ReportDebug("loaded store", source.Describe(), store.Len())
	return store, nil
}

// Save writes the whole store to backend.
func Save(ctx context.Context, backend Backend, store *Store, tel telemetry.API) error {
	err := backend.Write(ctx, store.Table())
	if err != nil {
		tel.ReportBroken(report_store_save, err, backend.Describe())
		return &StoreError{Op: "save", Backend: backend.Describe(), Err: err}
	}
	return nil
}
