package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent bot runs",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		runs, err := store.ListRecentRuns(ctx, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "STARTED\tBOT\tDURATION\tPROCESSED\tCREATED\tUPDATED\tSKIPPED\tFAILED\n")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.BotName,
				(time.Duration(r.DurationMs) * time.Millisecond).Round(time.Millisecond),
				r.Processed, r.Created, r.Updated, r.Skipped, r.Failed)
		}
		w.Flush()
	},
}

func init() {
	statsCmd.Flags().Int("limit", 20, "Number of runs to show")
}
