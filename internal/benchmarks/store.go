package benchmarks

import (
	"benchsync/internal/telemetry"
	"fmt"
)

const (
	report_store_duplicate_ids = "store.duplicate-ids"
	report_store_empty_id      = "store.empty-id"
	report_store_added_columns = "store.added-columns"
)

// Table is the untyped form of the store that backends read and write, every cell is text.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Record is a single entity, its benchmark fields and the passthrough cells of every other column.
type Record struct {
	ID     string
	Fields [FieldCount]Value

	// cells has one entry per store column, benchmark columns are rendered from Fields on export.
	cells []string
}

// Pending reports whether every benchmark field is Unset.
func (r *Record) Pending() bool {
	for _, v := range r.Fields {
		if v.Set() {
			return false
		}
	}
	return true
}

// Store is an ordered table of records with an id index.
// It is not safe for concurrent mutation, only the orchestrator touches it between epochs.
type Store struct {
	columns   []string
	idColumn  int
	fieldCols [FieldCount]int

	records []*Record
	index   map[string]int
}

// NewStore builds a Store out of a raw table. Duplicate ids keep their first occurrence, the discarded
// ids are reported as a single warning. Benchmark columns missing from the table are appended.
func NewStore(t Table, tel telemetry.API) (*Store, error) {
	s := &Store{
		columns:  append([]string(nil), t.Columns...),
		idColumn: -1,
		index:    map[string]int{},
	}
	for i := range s.fieldCols {
		s.fieldCols[i] = -1
	}

	for i, name := range s.columns {
		if name == IDColumn {
			s.idColumn = i
			continue
		}
		if f, ok := FieldByName(name); ok && s.fieldCols[f] < 0 {
			s.fieldCols[f] = i
		}
	}
	if s.idColumn < 0 {
		return nil, fmt.Errorf("table has no %q column", IDColumn)
	}

	var added []string
	for _, f := range Fields {
		if s.fieldCols[f] >= 0 {
			continue
		}
		s.fieldCols[f] = len(s.columns)
		s.columns = append(s.columns, f.String())
		added = append(added, f.String())
	}
	if len(added) > 0 {
		tel.ReportDebug(report_store_added_columns, added)
	}

	var duplicates []string
	seenDuplicate := map[string]bool{}
	for rowIdx, row := range t.Rows {
		if len(row) > len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", rowIdx+1, len(row), len(t.Columns))
		}
		cells := make([]string, len(s.columns))
		copy(cells, row)

		rec := &Record{ID: cells[s.idColumn], cells: cells}
		for _, f := range Fields {
			rec.Fields[f] = DecodeValue(cells[s.fieldCols[f]])
		}

		if rec.ID == "" {
			tel.ReportWarning(report_store_empty_id, rowIdx+1)
			s.records = append(s.records, rec)
			continue
		}
		if _, exists := s.index[rec.ID]; exists {
			if !seenDuplicate[rec.ID] {
				seenDuplicate[rec.ID] = true
				duplicates = append(duplicates, rec.ID)
			}
			continue
		}
		s.index[rec.ID] = len(s.records)
		s.records = append(s.records, rec)
	}
	if len(duplicates) > 0 {
		tel.ReportWarning(report_store_duplicate_ids, duplicates)
	}

	return s, nil
}

// Table exports the store, benchmark cells are encoded from the typed fields.
func (s *Store) Table() Table {
	t := Table{
		Columns: append([]string(nil), s.columns...),
		Rows:    make([][]string, len(s.records)),
	}
	for i, rec := range s.records {
		row := make([]string, len(s.columns))
		copy(row, rec.cells)
		row[s.idColumn] = rec.ID
		for _, f := range Fields {
			row[s.fieldCols[f]] = rec.Fields[f].Encode()
		}
		t.Rows[i] = row
	}
	return t
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Get returns the record of an id.
func (s *Store) Get(id string) (*Record, bool) {
	idx, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.records[idx], true
}

// Records returns the records in load order, callers must not mutate them.
func (s *Store) Records() []*Record {
	return s.records
}

// PendingIDs returns up to limit pending ids in load order, limit <= 0 means no limit.
func (s *Store) PendingIDs(limit int) []string {
	return s.PendingIDsFunc(limit, nil)
}

// PendingIDsFunc is PendingIDs but ids for which skip returns true are left out before truncating.
func (s *Store) PendingIDsFunc(limit int, skip func(id string) bool) []string {
	var ids []string
	for _, rec := range s.records {
		if limit > 0 && len(ids) >= limit {
			break
		}
		if rec.ID == "" || !rec.Pending() {
			continue
		}
		if skip != nil && skip(rec.ID) {
			continue
		}
		ids = append(ids, rec.ID)
	}
	return ids
}

// FieldCounts is the distribution of states of a single benchmark field.
type FieldCounts struct {
	Field   Field
	Present int
	Missing int
	Errored int
	Unset   int
}

// NonNull counts every cell that is not empty.
func (c FieldCounts) NonNull() int {
	return c.Present + c.Missing + c.Errored
}

// Counts returns the state distribution of every benchmark field.
func (s *Store) Counts() [FieldCount]FieldCounts {
	var out [FieldCount]FieldCounts
	for _, f := range Fields {
		out[f].Field = f
	}
	for _, rec := range s.records {
		for _, f := range Fields {
			switch rec.Fields[f].State {
			case Present:
				out[f].Present++
			case Missing:
				out[f].Missing++
			case Errored:
				out[f].Errored++
			default:
				out[f].Unset++
			}
		}
	}
	return out
}

// NonNull counts the records in which field is not Unset.
func (s *Store) NonNull(field Field) int {
	n := 0
	for _, rec := range s.records {
		if rec.Fields[field].Set() {
			n++
		}
	}
	return n
}

// ResetFilter selects which records Reset clears.
type ResetFilter int

const (
	// ResetAll clears every record.
	ResetAll ResetFilter = iota
	// ResetErrored clears records that have at least one Errored field.
	ResetErrored
)

// Reset returns the benchmark fields of the selected records to Unset, making them pending again.
// It returns the number of records that changed.
func (s *Store) Reset(filter ResetFilter) int {
	n := 0
	for _, rec := range s.records {
		if rec.Pending() {
			continue
		}
		if filter == ResetErrored && !hasErrored(rec) {
			continue
		}
		rec.Fields = [FieldCount]Value{}
		n++
	}
	return n
}

func hasErrored(rec *Record) bool {
	for _, v := range rec.Fields {
		if v.State == Errored {
			return true
		}
	}
	return false
}
