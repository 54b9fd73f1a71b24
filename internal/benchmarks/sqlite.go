package benchmarks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SQLiteBackend stores the table in a sqlite (or libsql) database, see db.Schema.
// A write replaces every row inside a single transaction.
type SQLiteBackend struct {
	db   *sql.DB
	name string
}

// NewSQLiteBackend wraps an opened database whose schema has already been applied.
func NewSQLiteBackend(db *sql.DB, name string) SQLiteBackend {
	return SQLiteBackend{db: db, name: name}
}

func (b SQLiteBackend) Describe() string {
	return b.name
}

func (b SQLiteBackend) Read(ctx context.Context) (Table, error) {
	colRows, err := b.db.QueryContext(ctx, "select name from table_column order by idx")
	if err != nil {
		return Table{}, fmt.Errorf("query columns: %w", err)
	}
	defer colRows.Close()

	var t Table
	for colRows.Next() {
		var name string
		if err := colRows.Scan(&name); err != nil {
			return Table{}, fmt.Errorf("scan column: %w", err)
		}
		t.Columns = append(t.Columns, name)
	}
	if err := colRows.Err(); err != nil {
		return Table{}, err
	}
	if len(t.Columns) == 0 {
		return Table{}, fmt.Errorf("%s: %w", b.name, ErrNoState)
	}

	rows, err := b.db.QueryContext(ctx, "select cells from table_row order by idx")
	if err != nil {
		return Table{}, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return Table{}, fmt.Errorf("scan row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return Table{}, fmt.Errorf("unmarshal row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, rows.Err()
}

func (b SQLiteBackend) Write(ctx context.Context, t Table) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "delete from table_row"); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "delete from table_column"); err != nil {
		return fmt.Errorf("clear columns: %w", err)
	}

	idColumn := -1
	for i, name := range t.Columns {
		if name == IDColumn {
			idColumn = i
		}
		_, err := tx.ExecContext(ctx, "insert into table_column (idx, name) values (?, ?)", i, name)
		if err != nil {
			return fmt.Errorf("insert column %q: %w", name, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, "insert into table_row (idx, entity_id, cells) values (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return err
		}
		id := ""
		if idColumn >= 0 && idColumn < len(row) {
			id = row[idColumn]
		}
		_, err = stmt.ExecContext(ctx, i, id, string(cells))
		if err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}
