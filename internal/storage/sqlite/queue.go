package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stackprep/curator/internal/types"
)

// EnqueueWorkItem inserts a work item unless an unresolved (pending or
// in_progress) row already exists for the same (item_type, question_id).
// Returns true if a row was inserted. The conditional INSERT ... WHERE NOT
// EXISTS makes enqueue idempotent from the producer's perspective without a
// separate existence check racing against concurrent producers.
func (s *SQLiteStorage) EnqueueWorkItem(ctx context.Context, item *types.WorkItem) (bool, error) {
	if err := item.Validate(); err != nil {
		return false, fmt.Errorf("invalid work item: %w", err)
	}

	priority := item.Priority
	status := item.Status
	if status == "" {
		status = types.WorkStatusPending
	}
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO work_items (item_type, question_id, action, priority, status, reason, created_by, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM work_items
			WHERE item_type = ? AND question_id = ? AND status IN ('pending', 'in_progress')
		)
	`, item.ItemType, item.QuestionID, item.Action, priority, status, item.Reason, item.CreatedBy, createdAt,
		item.ItemType, item.QuestionID)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue work item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		// Unresolved row already exists; the producer's intent is satisfied
		return false, nil
	}

	id, err := res.LastInsertId()
	if err == nil {
		item.ID = id
	}
	item.Status = status
	item.CreatedAt = createdAt
	return true, nil
}

// ClaimWorkBatch selects up to limit pending items of the given type, ordered
// by priority ascending then creation time descending (freshest first within
// a priority tier). Selection alone does not mark anything in_progress; the
// consumer must StartWorkItem each item and treat ErrAlreadyClaimed as "lost
// the race to another runner".
func (s *SQLiteStorage) ClaimWorkBatch(ctx context.Context, itemType types.WorkItemType, limit int) ([]*types.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_type, question_id, action, priority, status, reason, created_by, assigned_to, created_at, processed_at, result
		FROM work_items
		WHERE item_type = ? AND status = 'pending'
		ORDER BY priority ASC, created_at DESC
		LIMIT ?
	`, itemType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending work items: %w", err)
	}
	defer rows.Close()

	var items []*types.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// StartWorkItem transitions pending → in_progress with a single conditional
// UPDATE. Zero affected rows means another runner already claimed the item;
// that surfaces as ErrAlreadyClaimed rather than a store failure.
func (s *SQLiteStorage) StartWorkItem(ctx context.Context, id int64, assignee string) error {
	err := s.execAffectingOne(ctx, ErrAlreadyClaimed, `
		UPDATE work_items
		SET status = 'in_progress', assigned_to = ?, processed_at = ?
		WHERE id = ? AND status = 'pending'
	`, assignee, time.Now().UTC(), id)
	if err != nil && err != ErrAlreadyClaimed {
		return fmt.Errorf("failed to start work item %d: %w", id, err)
	}
	return err
}

// CompleteWorkItem transitions in_progress → completed and stores the opaque
// result payload.
func (s *SQLiteStorage) CompleteWorkItem(ctx context.Context, id int64, result json.RawMessage) error {
	payload := ""
	if len(result) > 0 {
		payload = string(result)
	}
	err := s.execAffectingOne(ctx, ErrInvalidTransition, `
		UPDATE work_items
		SET status = 'completed', processed_at = ?, result = ?
		WHERE id = ? AND status = 'in_progress'
	`, time.Now().UTC(), payload, id)
	if err != nil && err != ErrInvalidTransition {
		return fmt.Errorf("failed to complete work item %d: %w", id, err)
	}
	return err
}

// FailWorkItem transitions in_progress → failed. Failed is terminal: there is
// no automatic retry, re-enqueueing is an explicit producer action.
func (s *SQLiteStorage) FailWorkItem(ctx context.Context, id int64, reason string) error {
	err := s.execAffectingOne(ctx, ErrInvalidTransition, `
		UPDATE work_items
		SET status = 'failed', processed_at = ?, reason = ?
		WHERE id = ? AND status = 'in_progress'
	`, time.Now().UTC(), reason, id)
	if err != nil && err != ErrInvalidTransition {
		return fmt.Errorf("failed to fail work item %d: %w", id, err)
	}
	return err
}

// GetWorkItem retrieves a single work item by id.
func (s *SQLiteStorage) GetWorkItem(ctx context.Context, id int64) (*types.WorkItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, item_type, question_id, action, priority, status, reason, created_by, assigned_to, created_at, processed_at, result
		FROM work_items WHERE id = ?
	`, id)
	item, err := scanWorkItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work item %d: %w", id, err)
	}
	return item, nil
}

// QueueCounts returns per-type, per-status row counts for queue inspection.
func (s *SQLiteStorage) QueueCounts(ctx context.Context) (map[types.WorkItemType]map[types.WorkItemStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_type, status, COUNT(*) FROM work_items GROUP BY item_type, status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count work items: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.WorkItemType]map[types.WorkItemStatus]int)
	for rows.Next() {
		var itemType types.WorkItemType
		var status types.WorkItemStatus
		var n int
		if err := rows.Scan(&itemType, &status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan queue counts: %w", err)
		}
		if counts[itemType] == nil {
			counts[itemType] = make(map[types.WorkItemStatus]int)
		}
		counts[itemType][status] = n
	}
	return counts, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkItem(row rowScanner) (*types.WorkItem, error) {
	var item types.WorkItem
	var processedAt sql.NullTime
	var result string
	err := row.Scan(
		&item.ID,
		&item.ItemType,
		&item.QuestionID,
		&item.Action,
		&item.Priority,
		&item.Status,
		&item.Reason,
		&item.CreatedBy,
		&item.AssignedTo,
		&item.CreatedAt,
		&processedAt,
		&result,
	)
	if err != nil {
		return nil, err
	}
	if processedAt.Valid {
		item.ProcessedAt = &processedAt.Time
	}
	if result != "" {
		item.Result = json.RawMessage(result)
	}
	return &item, nil
}
