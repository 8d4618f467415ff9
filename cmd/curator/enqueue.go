package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackprep/curator/internal/types"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <item-type> <question-id>",
	Short: "Enqueue work for a question",
	Long: `Explicitly enqueue a work item for a question.

This is also the retry path for failed items: failed is terminal, so the only
way to get a question reprocessed is a fresh enqueue.

Item types: summary, metadata, scoring, diagram

Examples:
  curator enqueue scoring 42
  curator enqueue summary 42 --priority 1 --reason "answer rewritten"`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		itemType := types.WorkItemType(args[0])
		switch itemType {
		case types.WorkTypeDiagram, types.WorkTypeSummary, types.WorkTypeMetadata, types.WorkTypeScoring:
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown item type %q\n", args[0])
			os.Exit(1)
		}

		questionID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || questionID <= 0 {
			fmt.Fprintf(os.Stderr, "Error: invalid question id %q\n", args[1])
			os.Exit(1)
		}

		priority, _ := cmd.Flags().GetInt("priority")
		reason, _ := cmd.Flags().GetString("reason")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		// Fail fast on a bad ID instead of queueing an orphan
		if _, err := store.GetQuestion(ctx, questionID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		inserted, err := store.EnqueueWorkItem(ctx, &types.WorkItem{
			ItemType:   itemType,
			QuestionID: questionID,
			Action:     "process",
			Priority:   priority,
			Reason:     reason,
			CreatedBy:  "operator",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if inserted {
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Printf("%s enqueued %s work for question %d\n", green("✓"), itemType, questionID)
		} else {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("%s question %d already has unresolved %s work\n", yellow("!"), questionID, itemType)
		}
	},
}

func init() {
	enqueueCmd.Flags().Int("priority", 2, "Priority (lower = more urgent)")
	enqueueCmd.Flags().String("reason", "", "Why this work is needed")
}
