package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stackprep/curator/internal/similarity"
	"github.com/stackprep/curator/internal/storage"
	"github.com/stackprep/curator/internal/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add questions to the corpus",
	Long: `Add one question via flags, or a batch from a YAML file.

Near-exact duplicates of existing same-topic questions are rejected at the
door rather than left for the redundancy scan.

Examples:
  curator ingest --topic go --question "What does defer do?" --answer "..."
  curator ingest --file questions.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		topic, _ := cmd.Flags().GetString("topic")
		question, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")
		file, _ := cmd.Flags().GetString("file")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		var batch []ingestEntry
		if file != "" {
			batch, err = loadIngestFile(file)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		} else {
			if topic == "" || question == "" || answer == "" {
				fmt.Fprintf(os.Stderr, "Error: --topic, --question, and --answer are required (or use --file)\n")
				os.Exit(1)
			}
			batch = []ingestEntry{{Topic: topic, Question: question, Answer: answer}}
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		added, rejected := 0, 0
		for _, entry := range batch {
			dupID, err := findExactDuplicate(ctx, store, entry)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if dupID != 0 {
				rejected++
				fmt.Printf("%s rejected %q: near-exact duplicate of question %d\n",
					yellow("!"), truncate(entry.Question, 60), dupID)
				continue
			}

			id, err := store.CreateQuestion(ctx, &types.Question{
				Topic:    entry.Topic,
				Question: entry.Question,
				Answer:   entry.Answer,
			}, "ingest")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			added++
			fmt.Printf("%s added question %d (%s)\n", green("✓"), id, entry.Topic)
		}

		fmt.Printf("\nadded=%d rejected=%d\n", added, rejected)
		if rejected > 0 && added == 0 {
			os.Exit(1)
		}
	},
}

func init() {
	ingestCmd.Flags().String("topic", "", "Question topic")
	ingestCmd.Flags().String("question", "", "Question text")
	ingestCmd.Flags().String("answer", "", "Answer text")
	ingestCmd.Flags().String("file", "", "YAML file with a list of questions")
}

type ingestEntry struct {
	Topic    string `yaml:"topic"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

func loadIngestFile(path string) ([]ingestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var entries []ingestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, e := range entries {
		if e.Topic == "" || e.Question == "" || e.Answer == "" {
			return nil, fmt.Errorf("entry %d: topic, question, and answer are all required", i+1)
		}
	}
	return entries, nil
}

// findExactDuplicate returns the ID of an existing same-topic question whose
// text is a near-exact match, or 0 when the entry is safe to add.
func findExactDuplicate(ctx context.Context, store storage.Storage, entry ingestEntry) (int64, error) {
	existing, err := store.DiscoverQuestions(ctx, storage.DiscoveryFilter{Topic: entry.Topic})
	if err != nil {
		return 0, err
	}
	text := entry.Question + " " + entry.Answer
	for _, q := range existing {
		if similarity.Similarity(text, q.Question+" "+q.Answer) >= similarity.ExactThreshold {
			return q.ID, nil
		}
	}
	return 0, nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
