package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stackprep/curator/internal/bots"
	"github.com/stackprep/curator/internal/oracle"
	"github.com/stackprep/curator/internal/runner"
	"github.com/stackprep/curator/internal/scoring"
	"github.com/stackprep/curator/internal/similarity"
	"github.com/stackprep/curator/internal/storage"
	"github.com/stackprep/curator/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run <bot>",
	Short: "Run one bot invocation",
	Long: `Run a single batch invocation of one bot and emit the run summary.

Available bots:
  classifier   scan for missing field groups and enqueue work (producer)
  scorer       judge quality and write the quality-metadata group
  summarizer   generate study summaries
  tagger       classify difficulty and tags
  deduper      redundancy scan, flags near-duplicates (oldest wins)

Examples:
  curator run scorer
  curator run classifier --batch 50
  curator run deduper`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		botName := args[0]
		batchOverride, _ := cmd.Flags().GetInt("batch")

		ctx := context.Background()

		// Schema bootstrap failures are fatal: nothing can run without the
		// shared tables.
		store, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		behavior, breaker, err := buildBehavior(ctx, botName, store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		batchSize := cfg.BatchSize
		if batchOverride > 0 {
			batchSize = batchOverride
		}

		summary, err := runner.Run(ctx, &runner.Config{
			Store:     store,
			Behavior:  behavior,
			Breaker:   breaker,
			BatchSize: batchSize,
			ItemDelay: cfg.ItemDelay,
			Logger:    log,
		})
		if err != nil {
			// Best-effort error summary for the scheduler before exiting
			log.WithFields(logrus.Fields{
				"bot":   botName,
				"error": err.Error(),
			}).Error("run aborted")
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printSummary(summary)
		if summary.Err != "" {
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().Int("batch", 0, "Batch size override")
}

// buildBehavior wires the requested bot with its dependencies. Only bots that
// call the oracle construct a client (and each run gets a fresh one, so
// breaker state never crosses runs).
func buildBehavior(ctx context.Context, name string, store storage.Storage) (runner.Behavior, *oracle.CircuitBreaker, error) {
	switch name {
	case "classifier":
		bot, err := bots.NewClassifierBot(store)
		return bot, nil, err

	case "scorer":
		client, err := oracle.NewClient(&oracle.Config{})
		if err != nil {
			return nil, nil, err
		}
		weights, err := scoring.LoadWeights(cfg.WeightsPath)
		if err != nil {
			return nil, nil, err
		}
		bot, err := bots.NewScorerBot(store, client, weights)
		return bot, client.Breaker(), err

	case "summarizer":
		client, err := oracle.NewClient(&oracle.Config{Model: oracle.GetSimpleTaskModel()})
		if err != nil {
			return nil, nil, err
		}
		bot, err := bots.NewSummarizerBot(store, client)
		return bot, client.Breaker(), err

	case "tagger":
		client, err := oracle.NewClient(&oracle.Config{Model: oracle.GetSimpleTaskModel()})
		if err != nil {
			return nil, nil, err
		}
		bot, err := bots.NewTaggerBot(store, client)
		return bot, client.Breaker(), err

	case "deduper":
		var backend similarity.Backend
		if cfg.RedisAddr != "" {
			rb, err := similarity.NewRedisBackend(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				// Degrade to pure lexical similarity for this run
				fmt.Fprintf(os.Stderr, "Warning: %v (continuing with lexical similarity)\n", err)
			} else {
				backend = rb
			}
		}
		bot, err := bots.NewDeduperBot(store, backend, cfg.DedupeThreshold)
		return bot, nil, err

	default:
		return nil, nil, fmt.Errorf("unknown bot %q (see 'curator run --help')", name)
	}
}

// printSummary emits the flat key/value counters the external scheduler
// consumes, plus a human-readable line.
func printSummary(summary *types.RunSummary) {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("\n%s run %s finished in %s\n", cyan(summary.BotName), summary.RunID,
		summary.Duration.Round(time.Millisecond))

	counters := summary.Counters()
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%d\n", k, counters[k])
	}
}
