// curator is the CLI entry point for the corpus curation bots. Each bot runs
// as an independent scheduled batch process; the shared SQLite corpus is the
// only coordination point between them.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/stackprep/curator/internal/config"
)

var (
	cfg *config.Config
	log = logrus.New()

	dbFlag string
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Bot-driven curation for an interview-prep question corpus",
	Long: `curator coordinates independent, periodically scheduled bots that enrich
and triage a shared corpus of interview-prep questions.

Producer bots scan for gaps and enqueue work; consumer bots claim batches,
call the judgment oracle, and write results back under single-writer
field-group ownership.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real deployments set environment directly
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if dbFlag != "" {
			cfg.DBPath = dbFlag
		}

		if cfg.LogJSON {
			log.SetFormatter(&logrus.JSONFormatter{})
		}
		if cfg.LogFile != "" {
			log.SetOutput(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    20, // MB
				MaxBackups: 5,
				MaxAge:     30, // days
			})
		}
		return nil
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Database path (overrides discovery)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clearScoreCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
