// Package types defines the core data model shared by the storage layer,
// the bot runner, and the individual bot behaviors.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// WorkItemType identifies which field group a work item targets.
// Each type has exactly one consumer bot.
type WorkItemType string

const (
	WorkTypeDiagram  WorkItemType = "diagram"
	WorkTypeSummary  WorkItemType = "summary"
	WorkTypeMetadata WorkItemType = "metadata"
	WorkTypeScoring  WorkItemType = "scoring"
)

// WorkItemStatus is the lifecycle state of a work item.
//
// Transitions: pending → in_progress → completed | failed.
// Both completed and failed are terminal; a failed item is only
// retried via an explicit new enqueue by a producer.
type WorkItemStatus string

const (
	WorkStatusPending    WorkItemStatus = "pending"
	WorkStatusInProgress WorkItemStatus = "in_progress"
	WorkStatusCompleted  WorkItemStatus = "completed"
	WorkStatusFailed     WorkItemStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s WorkItemStatus) IsTerminal() bool {
	return s == WorkStatusCompleted || s == WorkStatusFailed
}

// WorkItem is a durable record of one deferred unit of work against one question.
//
// Invariant: at most one unresolved (pending or in_progress) row exists per
// (ItemType, QuestionID) pair. Producers enqueue through the store, which
// enforces this with a conditional insert.
type WorkItem struct {
	ID          int64           `json:"id"`
	ItemType    WorkItemType    `json:"item_type"`
	QuestionID  int64           `json:"question_id"`
	Action      string          `json:"action"`
	Priority    int             `json:"priority"` // lower = more urgent
	Status      WorkItemStatus  `json:"status"`
	Reason      string          `json:"reason,omitempty"`
	CreatedBy   string          `json:"created_by"`
	AssignedTo  string          `json:"assigned_to,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"` // opaque consumer payload
}

// Validate checks structural invariants on a work item before insertion.
func (w *WorkItem) Validate() error {
	if w.ItemType == "" {
		return fmt.Errorf("item_type is required")
	}
	if w.QuestionID <= 0 {
		return fmt.Errorf("question_id must be positive (got %d)", w.QuestionID)
	}
	if w.CreatedBy == "" {
		return fmt.Errorf("created_by is required")
	}
	return nil
}

// ReviewStatus is the derived triage classification for a question.
// It is always recomputed wholesale from the canonical quality score,
// never patched incrementally.
type ReviewStatus string

const (
	ReviewApproved         ReviewStatus = "approved"
	ReviewNeedsImprovement ReviewStatus = "needs_improvement"
	ReviewRetireCandidate  ReviewStatus = "retire_candidate"
)

// Question is the enriched content entity being curated.
//
// Each mutable field group has exactly one owning bot type:
// the summarizer owns Summary, the metadata bot owns Tags/Difficulty,
// and the scorer owns the quality-metadata group (RelevanceScore,
// RelevanceDetails, ReviewStatus, ImprovementSuggestions).
type Question struct {
	ID       int64  `json:"id"`
	Topic    string `json:"topic"`
	Question string `json:"question"`
	Answer   string `json:"answer"`

	// Summarizer-owned
	Summary string `json:"summary,omitempty"`

	// Metadata-bot-owned
	Difficulty string `json:"difficulty,omitempty"`
	Tags       string `json:"tags,omitempty"` // comma-separated

	// Scorer-owned quality metadata group
	RelevanceScore         *int         `json:"relevance_score,omitempty"` // 0-100, nil = unscored
	RelevanceDetails       string       `json:"relevance_details,omitempty"`
	ReviewStatus           ReviewStatus `json:"review_status,omitempty"`
	ImprovementSuggestions string       `json:"improvement_suggestions,omitempty"`

	// Deduper-owned: set when a redundancy scan confirmed this question is a
	// near-duplicate of the keeper. Flagged rows are excluded from discovery.
	DuplicateOf *int64 `json:"duplicate_of,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsScored reports whether the question already carries a quality score.
// Scored questions are skipped by the scorer until an operator clears the
// score, which prevents oscillation from non-deterministic oracle output.
func (q *Question) IsScored() bool {
	return q.RelevanceScore != nil
}

// BotRunState is the persisted resumable state for one bot. One row per bot,
// mutated only by that bot, saved after every processed item so a crash
// mid-run loses at most the in-flight item.
type BotRunState struct {
	BotName     string    `json:"bot_name"`
	CursorIndex int       `json:"cursor_index"` // wraps modulo corpus size
	LastRunAt   time.Time `json:"last_run_at"`

	// Cumulative counters across all runs.
	Processed int64 `json:"processed"`
	Created   int64 `json:"created"`
	Updated   int64 `json:"updated"`
	Failed    int64 `json:"failed"`
}

// RunSummary is the flat key/value accounting emitted at the end of every run
// for the external scheduler. Every item's fate lands in exactly one counter.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	BotName   string        `json:"bot_name"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Err       string        `json:"error,omitempty"` // top-level abort reason, if any
}

// Counters returns the summary as flat key/value pairs for the run-output sink.
func (s *RunSummary) Counters() map[string]int {
	return map[string]int{
		"processed": s.Processed,
		"created":   s.Created,
		"updated":   s.Updated,
		"skipped":   s.Skipped,
		"failed":    s.Failed,
	}
}

// AuditEntry records one bot write against the corpus: who changed what, the
// before/after snapshots, and why.
type AuditEntry struct {
	ID         int64     `json:"id"`
	BotName    string    `json:"bot_name"`
	Action     string    `json:"action"`
	QuestionID int64     `json:"question_id"`
	Before     string    `json:"before,omitempty"`
	After      string    `json:"after,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunStats is one persisted row per completed bot run, the durable counterpart
// of RunSummary.
type RunStats struct {
	RunID      string    `json:"run_id"`
	BotName    string    `json:"bot_name"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Processed  int       `json:"processed"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}
