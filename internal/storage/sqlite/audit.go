package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/stackprep/curator/internal/types"
)

// RecordAudit appends one entry to the audit ledger.
func (s *SQLiteStorage) RecordAudit(ctx context.Context, entry *types.AuditEntry) error {
	if entry.BotName == "" || entry.Action == "" {
		return fmt.Errorf("audit entry requires bot_name and action")
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (bot_name, action, question_id, before_snapshot, after_snapshot, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.BotName, entry.Action, entry.QuestionID, entry.Before, entry.After, entry.Reason, createdAt)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// GetAuditTrail returns the most recent ledger entries for one question.
func (s *SQLiteStorage) GetAuditTrail(ctx context.Context, questionID int64, limit int) ([]*types.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bot_name, action, question_id, before_snapshot, after_snapshot, reason, created_at
		FROM audit_log WHERE question_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, questionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	var entries []*types.AuditEntry
	for rows.Next() {
		var e types.AuditEntry
		if err := rows.Scan(&e.ID, &e.BotName, &e.Action, &e.QuestionID,
			&e.Before, &e.After, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
