package sqliteutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects a local sqlite file or a remote libsql database.
type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// Describe names the database without leaking the auth token.
func (c Config) Describe() string {
	if c.Url != "" {
		return c.Url
	}
	return c.File
}

// Open connects to the configured database, local files use modernc sqlite and urls use libsql.
func (c Config) Open() (*sql.DB, error) {
	if c.Url == "" {
		if c.File == "" {
			return nil, fmt.Errorf("neither a file nor a url was specified")
		}
		return openLocal(c.File)
	}

	values := url.Values{}
	if c.AuthToken != "" {
		values.Add("authToken", c.AuthToken)
	}
	link := c.Url
	if len(values) > 0 {
		sep := "?"
		if strings.Contains(link, "?") {
			sep = "&"
		}
		link += sep + values.Encode()
	}
	return sql.Open("libsql", link)
}

func openLocal(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every connection to :memory: is its own database
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// OpenDB opens the database described by cfg and applies schema to it.
func OpenDB(schema string, cfg Config) (*sql.DB, error) {
	db, err := cfg.Open()
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
