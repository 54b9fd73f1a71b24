package benchmarks

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CSVBackend stores the table as a comma separated file with a header row.
type CSVBackend struct {
	Path string
}

func NewCSVBackend(path string) CSVBackend {
	return CSVBackend{Path: path}
}

func (b CSVBackend) Describe() string {
	return b.Path
}

func (b CSVBackend) Read(ctx context.Context) (Table, error) {
	f, err := os.Open(b.Path)
	if os.IsNotExist(err) {
		return Table{}, fmt.Errorf("%s: %w", b.Path, ErrNoState)
	}
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return Table{}, fmt.Errorf("%s is empty: %w", b.Path, ErrNoState)
	}
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read rows: %w", err)
	}
	return Table{Columns: header, Rows: rows}, ctx.Err()
}

// Write writes to a temporary file next to Path and renames it over Path once it is fully synced.
func (b CSVBackend) Write(ctx context.Context, t Table) error {
	dir := filepath.Dir(b.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.Path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := csv.NewWriter(tmp)
	err = w.Write(t.Columns)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if i%1000 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		err = w.Write(row)
		if err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, b.Path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return nil
}
