package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var clearScoreCmd = &cobra.Command{
	Use:   "clear-score <question-id>",
	Short: "Clear a question's quality score so the scorer revisits it",
	Long: `Clear the quality-metadata group for a question.

Questions are scored once and then left alone; clearing the score is the
explicit operator action that makes the scorer pick the question up again,
typically after its content was revised.

Examples:
  curator clear-score 42 --reason "answer rewritten for Go 1.23"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		questionID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || questionID <= 0 {
			fmt.Fprintf(os.Stderr, "Error: invalid question id %q\n", args[0])
			os.Exit(1)
		}
		reason, _ := cmd.Flags().GetString("reason")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		if err := store.ClearQualityScore(ctx, questionID, "operator", reason); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s cleared score for question %d\n", green("✓"), questionID)
	},
}

func init() {
	clearScoreCmd.Flags().String("reason", "", "Why the score is being cleared")
}
