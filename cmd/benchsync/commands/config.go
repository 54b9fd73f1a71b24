package commands

import (
	"benchsync/internal/benchmarks"
	"benchsync/internal/benchmarks/db"
	"benchsync/internal/fetch"
	"benchsync/internal/orchestrator"
	"benchsync/internal/scrapers/games"
	"benchsync/lib/sqliteutil"
	"fmt"
	"io"
	"time"
)

type StorageConfig struct {
	// Input is the seed table used when the durable table does not exist yet.
	Input string `json:"input"`
	// Output is the durable csv table, ignored when Database is set.
	Output   string            `json:"output"`
	Database sqliteutil.Config `json:"database"`
}

type ScrapeConfig struct {
	Concurrency         int     `json:"concurrency"`
	BatchSize           int     `json:"batch_size"`
	TotalLimit          int     `json:"total_limit"`
	DelayMinSeconds     float64 `json:"delay_min_seconds"`
	DelayMaxSeconds     float64 `json:"delay_max_seconds"`
	MaxRetries          int     `json:"max_retries"`
	InitialDelaySeconds float64 `json:"initial_delay_seconds"`
	// DeferUnclassified stops re-selecting ids that got an unexpected status within a run.
	DeferUnclassified bool `json:"defer_unclassified"`
}

type LogConfig struct {
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

type Config struct {
	Storage StorageConfig `json:"storage"`
	Scrape  ScrapeConfig  `json:"scrape"`
	Games   games.Options `json:"games"`
	Log     LogConfig     `json:"log"`
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func defaultConfig() Config {
	policy := fetch.DefaultPolicy()
	orch := orchestrator.DefaultConfig()
	return Config{
		Storage: StorageConfig{
			Input:  "athletes.csv",
			Output: "athletes_with_benchmarks.csv",
		},
		Scrape: ScrapeConfig{
			Concurrency:         15,
			BatchSize:           orch.BatchSize,
			TotalLimit:          orch.TotalLimit,
			DelayMinSeconds:     orch.DelayMin.Seconds(),
			DelayMaxSeconds:     orch.DelayMax.Seconds(),
			MaxRetries:          policy.MaxRetries,
			InitialDelaySeconds: policy.InitialDelay.Seconds(),
		},
		Games: games.Options{
			URLTemplate: games.DefaultURLTemplate,
			UserAgent:   games.DefaultUserAgent,
		},
		Log: LogConfig{
			File:       "benchsync.log",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

func (c ScrapeConfig) policy() fetch.Policy {
	policy := fetch.DefaultPolicy()
	policy.MaxRetries = c.MaxRetries
	policy.InitialDelay = seconds(c.InitialDelaySeconds)
	return policy
}

func (c ScrapeConfig) orchestrator() orchestrator.Config {
	return orchestrator.Config{
		BatchSize:         c.BatchSize,
		TotalLimit:        c.TotalLimit,
		DelayMin:          seconds(c.DelayMinSeconds),
		DelayMax:          seconds(c.DelayMaxSeconds),
		DeferUnclassified: c.DeferUnclassified,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// backends returns the durable backend and the seed backend.
func (c StorageConfig) backends() (durable benchmarks.Backend, seed benchmarks.Backend, closer io.Closer, err error) {
	seed = benchmarks.NewCSVBackend(c.Input)

	if c.Database.File == "" && c.Database.Url == "" {
		if c.Output == "" {
			return nil, nil, nil, fmt.Errorf("no output table configured")
		}
		return benchmarks.NewCSVBackend(c.Output), seed, nopCloser{}, nil
	}

	sqldb, err := sqliteutil.OpenDB(db.Schema, c.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s: %w", c.Database.Describe(), err)
	}
	return benchmarks.NewSQLiteBackend(sqldb, c.Database.Describe()), seed, sqldb, nil
}
