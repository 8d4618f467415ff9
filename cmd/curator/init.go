package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackprep/curator/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a corpus database in the current directory",
	Long: `Create a .curator/ directory with an empty corpus database.

Examples:
  # Initialize with the default database name
  curator init

  # Initialize with a custom name
  curator init --name backend-questions`,
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")

		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		dbPath, err := storage.InitCorpus(cwd, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Open once to bootstrap the schema
		store, err := storage.NewStorage(context.Background(), &storage.Config{Path: dbPath})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize schema: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Initialized corpus at %s\n", green("✓"), dbPath)
	},
}

func init() {
	initCmd.Flags().String("name", "", "Database name (default: curator)")
}
