package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stackprep/curator/internal/types"
)

// GetBotRunState loads the resumable state for a bot. Returns nil (no error)
// when the bot has never run; the runner substitutes the behavior's default
// state in that case.
func (s *SQLiteStorage) GetBotRunState(ctx context.Context, botName string) (*types.BotRunState, error) {
	var state types.BotRunState
	var lastRun sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT bot_name, cursor_index, last_run_at, processed, created, updated, failed
		FROM bot_run_state WHERE bot_name = ?
	`, botName).Scan(
		&state.BotName, &state.CursorIndex, &lastRun,
		&state.Processed, &state.Created, &state.Updated, &state.Failed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run state for %s: %w", botName, err)
	}
	if lastRun.Valid {
		state.LastRunAt = lastRun.Time
	}
	return &state, nil
}

// SaveBotRunState upserts the bot's resumable state. Called after every
// processed item, not just at batch end, so a crash mid-run loses at most the
// in-flight item.
func (s *SQLiteStorage) SaveBotRunState(ctx context.Context, state *types.BotRunState) error {
	if state.BotName == "" {
		return fmt.Errorf("bot_name is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_run_state (bot_name, cursor_index, last_run_at, processed, created, updated, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bot_name) DO UPDATE SET
			cursor_index = excluded.cursor_index,
			last_run_at = excluded.last_run_at,
			processed = excluded.processed,
			created = excluded.created,
			updated = excluded.updated,
			failed = excluded.failed
	`, state.BotName, state.CursorIndex, state.LastRunAt,
		state.Processed, state.Created, state.Updated, state.Failed)
	if err != nil {
		return fmt.Errorf("failed to save run state for %s: %w", state.BotName, err)
	}
	return nil
}
