package commands

import (
	"benchsync/internal/benchmarks"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func renderCounts(store *benchmarks.Store) {
	t := newTable()
	t.AppendHeader(table.Row{"Benchmark", "Non-null", "Present", "Missing", "Errored", "Unset"})
	for _, c := range store.Counts() {
		t.AppendRow(table.Row{c.Field.String(), c.NonNull(), c.Present, c.Missing, c.Errored, c.Unset})
	}
	t.AppendFooter(table.Row{"Athletes", store.Len(), "", "", "Pending", len(store.PendingIDs(0))})
	t.Render()
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Prints how many athletes have a value for each benchmark.",
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := loadStore(cmd.Context())
		renderCounts(store)
	},
}
