package sqlite

import (
	"context"
	"fmt"

	"github.com/stackprep/curator/internal/types"
)

// RecordRunStats persists the final accounting of one bot run, the durable
// counterpart of the stdout summary the scheduler consumes.
func (s *SQLiteStorage) RecordRunStats(ctx context.Context, stats *types.RunStats) error {
	if stats.RunID == "" || stats.BotName == "" {
		return fmt.Errorf("run stats require run_id and bot_name")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_stats (run_id, bot_name, started_at, duration_ms, processed, created, updated, skipped, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, stats.RunID, stats.BotName, stats.StartedAt, stats.DurationMs,
		stats.Processed, stats.Created, stats.Updated, stats.Skipped, stats.Failed)
	if err != nil {
		return fmt.Errorf("failed to record run stats: %w", err)
	}
	return nil
}

// ListRecentRuns returns the most recent run statistics across all bots.
func (s *SQLiteStorage) ListRecentRuns(ctx context.Context, limit int) ([]*types.RunStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, bot_name, started_at, duration_ms, processed, created, updated, skipped, failed
		FROM run_stats
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run stats: %w", err)
	}
	defer rows.Close()

	var runs []*types.RunStats
	for rows.Next() {
		var r types.RunStats
		if err := rows.Scan(&r.RunID, &r.BotName, &r.StartedAt, &r.DurationMs,
			&r.Processed, &r.Created, &r.Updated, &r.Skipped, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run stats: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}
