package commands

import (
	"benchsync/internal/chrono"
	"benchsync/internal/fetch"
	"benchsync/internal/orchestrator"
	"benchsync/internal/progress"
	"benchsync/internal/scrapers/games"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	scrapeConcurrency *int
	scrapeBatchSize   *int
	scrapeLimit       *int
	scrapeNoProgress  *bool
)

func init() {
	scrapeConcurrency = scrapeCmd.Flags().Int("concurrency", 0, "Overrides scrape.concurrency, the number of profiles fetched at once.")
	scrapeBatchSize = scrapeCmd.Flags().Int("batch-size", 0, "Overrides scrape.batch_size, the number of athletes per batch.")
	scrapeLimit = scrapeCmd.Flags().Int("limit", 0, "Overrides scrape.total_limit, the number of athletes processed by this run.")
	scrapeNoProgress = scrapeCmd.Flags().Bool("no-progress", false, "Disables the progress bars.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--limit <n>] [--batch-size <n>] [--concurrency <n>]",
	Short: "Scrapes the benchmarks of every athlete that has none yet, saving after every batch.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		scrape := config.Scrape
		if cmd.Flags().Changed("concurrency") {
			scrape.Concurrency = *scrapeConcurrency
		}
		if cmd.Flags().Changed("batch-size") {
			scrape.BatchSize = *scrapeBatchSize
		}
		if cmd.Flags().Changed("limit") {
			scrape.TotalLimit = *scrapeLimit
		}
		if scrape.Concurrency < 1 || scrape.BatchSize < 1 {
			fatal("invalid scrape config", fmt.Errorf("concurrency and batch size must be positive"))
		}

		store, durable := loadStore(ctx)

		client, err := games.NewClient(config.Games, tel)
		if err != nil {
			fatal("failed to create client", err)
		}
		clock := chrono.NewStandardTime()
		task := fetch.NewTask(client, games.NewExtractor(tel), scrape.policy(), clock, tel)
		scheduler := fetch.NewScheduler(task, scrape.Concurrency, tel)

		observers := progress.Multi{progress.NewLog(tel)}
		if !*scrapeNoProgress {
			bars := progress.NewBars(os.Stderr)
			bars.Start()
			observers = append(observers, bars)
		}

		orch, err := orchestrator.New(
			store,
			durable,
			scheduler,
			observers,
			scrape.orchestrator(),
			clock,
			tel,
		)
		if err != nil {
			fatal("invalid scrape config", err)
		}

		summary, err := orch.Run(ctx)
		if err != nil {
			fatal("scrape aborted", err)
		}

		fmt.Printf(
			"%s: %d athletes in %d batches, %d still pending, took %s\n",
			summary.Reason,
			summary.Processed,
			summary.Epochs,
			summary.Pending,
			summary.Elapsed.Round(time.Second),
		)
		renderCounts(store)
	},
}
