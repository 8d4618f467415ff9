package main

import (
	"context"

	"github.com/stackprep/curator/internal/storage"
)

// openStore resolves the database (flag/config override, then discovery) and
// opens it. Every subcommand except init goes through here.
func openStore(ctx context.Context) (storage.Storage, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		var err error
		dbPath, err = storage.DiscoverDatabase()
		if err != nil {
			return nil, err
		}
	}
	return storage.NewStorage(ctx, &storage.Config{Path: dbPath})
}
