package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiscoverDatabase looks for .curator/*.db in the current directory only.
// Returns the absolute path to the database file, or an error if not found.
//
// Only the current directory is checked, not parents: a nested checkout must
// never silently pick up an enclosing project's corpus.
//
// CURATOR_DB_PATH overrides discovery entirely, which is how tests isolate
// themselves and how the scheduler pins a specific corpus.
func DiscoverDatabase() (string, error) {
	if dbPath := os.Getenv("CURATOR_DB_PATH"); dbPath != "" {
		// Allow special values like ":memory:" or explicit paths
		return dbPath, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	curatorDir := filepath.Join(dir, ".curator")
	if info, err := os.Stat(curatorDir); err == nil && info.IsDir() {
		entries, err := os.ReadDir(curatorDir)
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".db") {
					absPath, err := filepath.Abs(filepath.Join(curatorDir, entry.Name()))
					if err != nil {
						return "", fmt.Errorf("failed to get absolute path: %w", err)
					}
					return absPath, nil
				}
			}
		}
	}

	return "", fmt.Errorf(
		"no .curator/*.db found in %s\n"+
			"  Run 'curator init' to initialize a corpus in this directory\n"+
			"  Or use --db flag to specify the database path explicitly",
		dir)
}

// InitCorpus creates a new .curator directory for an empty corpus database.
// Returns the path the database should be created at; the schema itself is
// bootstrapped on first connection.
func InitCorpus(projectDir, name string) (string, error) {
	if _, err := os.Stat(projectDir); os.IsNotExist(err) {
		return "", fmt.Errorf("directory does not exist: %s", projectDir)
	}

	curatorDir := filepath.Join(projectDir, ".curator")
	if err := os.MkdirAll(curatorDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create .curator directory: %w", err)
	}

	dbName := name
	if dbName == "" {
		dbName = "curator"
	}
	if !strings.HasSuffix(dbName, ".db") {
		dbName += ".db"
	}

	dbPath := filepath.Join(curatorDir, dbName)
	if _, err := os.Stat(dbPath); err == nil {
		return "", fmt.Errorf("database already exists: %s", dbPath)
	}

	return dbPath, nil
}
