package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackprep/curator/internal/types"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show work queue depth by type and status",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		counts, err := store.QueueCounts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(counts) == 0 {
			fmt.Println("Queue is empty.")
			return
		}

		itemTypes := make([]string, 0, len(counts))
		for t := range counts {
			itemTypes = append(itemTypes, string(t))
		}
		sort.Strings(itemTypes)

		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "TYPE\tPENDING\tIN PROGRESS\tCOMPLETED\tFAILED\n")
		for _, t := range itemTypes {
			byStatus := counts[types.WorkItemType(t)]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t,
				yellow(byStatus[types.WorkStatusPending]),
				cyan(byStatus[types.WorkStatusInProgress]),
				green(byStatus[types.WorkStatusCompleted]),
				red(byStatus[types.WorkStatusFailed]))
		}
		w.Flush()
	},
}
