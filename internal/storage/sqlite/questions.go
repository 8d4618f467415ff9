package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/stackprep/curator/internal/types"
)

const questionColumns = `id, topic, question, answer, summary, difficulty, tags,
	relevance_score, relevance_details, review_status, improvement_suggestions,
	duplicate_of, created_at, updated_at`

// QualityMetadata is the scorer-owned field group. It is written wholesale on
// every score; the review status is always derived from the score at write
// time, never patched independently.
type QualityMetadata struct {
	RelevanceScore         int                `json:"relevance_score"`
	RelevanceDetails       string             `json:"relevance_details"`
	ReviewStatus           types.ReviewStatus `json:"review_status"`
	ImprovementSuggestions string             `json:"improvement_suggestions"`
}

// DiscoveryFilter selects questions for scan-based work discovery. Zero-value
// fields are ignored, so each bot only states the gap it fills.
type DiscoveryFilter struct {
	MissingSummary  bool   // summary is empty
	MissingMetadata bool   // difficulty or tags empty
	Unscored        bool   // relevance_score is NULL
	ExcludeRetired  bool   // skip retire_candidate and flagged duplicates
	Topic           string // restrict to one topic area
	Limit           int    // 0 = no limit
}

// CreateQuestion inserts a new question and records the creation in the audit
// ledger under the given actor.
func (s *SQLiteStorage) CreateQuestion(ctx context.Context, q *types.Question, actor string) (int64, error) {
	now := time.Now().UTC()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (topic, question, answer, summary, difficulty, tags,
			relevance_score, relevance_details, review_status, improvement_suggestions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.Topic, q.Question, q.Answer, q.Summary, q.Difficulty, q.Tags,
		q.RelevanceScore, q.RelevanceDetails, string(q.ReviewStatus), q.ImprovementSuggestions,
		q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create question: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	q.ID = id

	after, _ := json.Marshal(q)
	_ = s.RecordAudit(ctx, &types.AuditEntry{
		BotName:    actor,
		Action:     "create_question",
		QuestionID: id,
		After:      string(after),
	})
	return id, nil
}

// GetQuestion retrieves a single question by id.
func (s *SQLiteStorage) GetQuestion(ctx context.Context, id int64) (*types.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question %d: %w", id, err)
	}
	return q, nil
}

// ListQuestions returns a stable id-ordered page of the corpus. Sequential
// scanning bots page through this with their persisted cursor.
func (s *SQLiteStorage) ListQuestions(ctx context.Context, offset, limit int) ([]*types.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions ORDER BY id ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()
	return collectQuestions(rows)
}

// CountQuestions returns the corpus size, the modulus for cursor wraparound.
func (s *SQLiteStorage) CountQuestions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return n, nil
}

// DiscoverQuestions is the scan-based fallback discovery query: a direct
// prioritized pull against the corpus for items missing a field group, used
// when the work queue yields nothing for a bot's item type.
func (s *SQLiteStorage) DiscoverQuestions(ctx context.Context, filter DiscoveryFilter) ([]*types.Question, error) {
	builder := sq.Select(questionColumns).From("questions")

	if filter.MissingSummary {
		builder = builder.Where(sq.Eq{"summary": ""})
	}
	if filter.MissingMetadata {
		builder = builder.Where(sq.Or{sq.Eq{"difficulty": ""}, sq.Eq{"tags": ""}})
	}
	if filter.Unscored {
		builder = builder.Where("relevance_score IS NULL")
	}
	if filter.ExcludeRetired {
		builder = builder.Where(sq.NotEq{"review_status": string(types.ReviewRetireCandidate)})
		builder = builder.Where("duplicate_of IS NULL")
	}
	if filter.Topic != "" {
		builder = builder.Where(sq.Eq{"topic": filter.Topic})
	}
	builder = builder.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build discovery query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run discovery query: %w", err)
	}
	defer rows.Close()
	return collectQuestions(rows)
}

// UpdateSummary writes the summarizer-owned field group.
func (s *SQLiteStorage) UpdateSummary(ctx context.Context, id int64, summary, actor, reason string) error {
	return s.updateOwnedFields(ctx, id, actor, "update_summary", reason, map[string]interface{}{
		"summary": summary,
	})
}

// UpdateMetadata writes the metadata-bot-owned field group.
func (s *SQLiteStorage) UpdateMetadata(ctx context.Context, id int64, difficulty, tags, actor, reason string) error {
	return s.updateOwnedFields(ctx, id, actor, "update_metadata", reason, map[string]interface{}{
		"difficulty": difficulty,
		"tags":       tags,
	})
}

// SetQualityMetadata writes the scorer-owned field group wholesale. The whole
// group is replaced from the latest score so the derived review status can
// never drift from the canonical score.
func (s *SQLiteStorage) SetQualityMetadata(ctx context.Context, id int64, meta QualityMetadata, actor, reason string) error {
	return s.updateOwnedFields(ctx, id, actor, "set_quality_metadata", reason, map[string]interface{}{
		"relevance_score":         meta.RelevanceScore,
		"relevance_details":       meta.RelevanceDetails,
		"review_status":           string(meta.ReviewStatus),
		"improvement_suggestions": meta.ImprovementSuggestions,
	})
}

// ClearQualityScore resets the scorer-owned group to unscored. This is the
// explicit operator action that makes a question scorable again.
func (s *SQLiteStorage) ClearQualityScore(ctx context.Context, id int64, actor, reason string) error {
	return s.updateOwnedFields(ctx, id, actor, "clear_quality_score", reason, map[string]interface{}{
		"relevance_score":         nil,
		"relevance_details":       "",
		"review_status":           "",
		"improvement_suggestions": "",
	})
}

// MarkDuplicate flags a question as a duplicate of the keeper. The row stays
// in the corpus for the operator to remove; bots exclude flagged duplicates
// via DiscoveryFilter.ExcludeRetired.
func (s *SQLiteStorage) MarkDuplicate(ctx context.Context, id, keeperID int64, actor, reason string) error {
	return s.updateOwnedFields(ctx, id, actor, "mark_duplicate", reason, map[string]interface{}{
		"duplicate_of": keeperID,
	})
}

// updateOwnedFields applies one bot's field-group write and records the
// before/after snapshots in the audit ledger.
func (s *SQLiteStorage) updateOwnedFields(ctx context.Context, id int64, actor, action, reason string, fields map[string]interface{}) error {
	before, err := s.GetQuestion(ctx, id)
	if err != nil {
		return err
	}

	fields["updated_at"] = time.Now().UTC()
	query, args, err := sq.Update("questions").SetMap(fields).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to %s for question %d: %w", action, id, err)
	}

	after, err := s.GetQuestion(ctx, id)
	if err != nil {
		return err
	}

	beforeJSON, _ := json.Marshal(before)
	afterJSON, _ := json.Marshal(after)
	return s.RecordAudit(ctx, &types.AuditEntry{
		BotName:    actor,
		Action:     action,
		QuestionID: id,
		Before:     string(beforeJSON),
		After:      string(afterJSON),
		Reason:     reason,
	})
}

func scanQuestion(row rowScanner) (*types.Question, error) {
	var q types.Question
	var score sql.NullInt64
	var duplicateOf sql.NullInt64
	var reviewStatus string
	err := row.Scan(
		&q.ID, &q.Topic, &q.Question, &q.Answer, &q.Summary, &q.Difficulty, &q.Tags,
		&score, &q.RelevanceDetails, &reviewStatus, &q.ImprovementSuggestions,
		&duplicateOf, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if score.Valid {
		v := int(score.Int64)
		q.RelevanceScore = &v
	}
	if duplicateOf.Valid {
		v := duplicateOf.Int64
		q.DuplicateOf = &v
	}
	q.ReviewStatus = types.ReviewStatus(reviewStatus)
	return &q, nil
}

func collectQuestions(rows *sql.Rows) ([]*types.Question, error) {
	var questions []*types.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
