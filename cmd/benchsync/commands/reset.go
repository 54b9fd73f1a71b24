package commands

import (
	"benchsync/internal/benchmarks"
	"fmt"

	"github.com/spf13/cobra"
)

var resetOnly *string

func init() {
	resetOnly = resetCmd.Flags().String("only", "", `Only reset athletes matching a filter, "errored" resets athletes with a failed fetch.`)
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset [--only errored]",
	Short: "Clears benchmark values so that the next scrape fetches them again.",
	Run: func(cmd *cobra.Command, args []string) {
		var filter benchmarks.ResetFilter
		switch *resetOnly {
		case "":
			filter = benchmarks.ResetAll
		case "errored":
			filter = benchmarks.ResetErrored
		default:
			fatal("invalid filter", fmt.Errorf("unknown filter %q", *resetOnly))
		}

		store, durable := loadStore(cmd.Context())
		n := store.Reset(filter)

		err := benchmarks.Save(cmd.Context(), durable, store, tel)
		if err != nil {
			fatal("failed to save table", err)
		}
		fmt.Printf("reset %d athletes in %s\n", n, durable.Describe())
	},
}
