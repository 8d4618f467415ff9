// Package storage defines the persistence boundary for the curator pipeline.
// The SQLite backend in the sqlite subpackage is the only implementation; the
// relational store is also the sole cross-process synchronization point.
package storage

import (
	"context"
	"encoding/json"

	"github.com/stackprep/curator/internal/storage/sqlite"
	"github.com/stackprep/curator/internal/types"
)

// Storage defines the interface for the content store backend.
type Storage interface {
	// Questions
	CreateQuestion(ctx context.Context, q *types.Question, actor string) (int64, error)
	GetQuestion(ctx context.Context, id int64) (*types.Question, error)
	ListQuestions(ctx context.Context, offset, limit int) ([]*types.Question, error)
	CountQuestions(ctx context.Context) (int, error)
	DiscoverQuestions(ctx context.Context, filter DiscoveryFilter) ([]*types.Question, error)

	// Field-group writes. Each method is owned by exactly one bot type;
	// no two bot types write the same columns.
	UpdateSummary(ctx context.Context, id int64, summary, actor, reason string) error
	UpdateMetadata(ctx context.Context, id int64, difficulty, tags, actor, reason string) error
	SetQualityMetadata(ctx context.Context, id int64, meta QualityMetadata, actor, reason string) error
	ClearQualityScore(ctx context.Context, id int64, actor, reason string) error
	MarkDuplicate(ctx context.Context, id, keeperID int64, actor, reason string) error

	// Work queue & claim protocol
	EnqueueWorkItem(ctx context.Context, item *types.WorkItem) (bool, error)
	ClaimWorkBatch(ctx context.Context, itemType types.WorkItemType, limit int) ([]*types.WorkItem, error)
	StartWorkItem(ctx context.Context, id int64, assignee string) error
	CompleteWorkItem(ctx context.Context, id int64, result json.RawMessage) error
	FailWorkItem(ctx context.Context, id int64, reason string) error
	GetWorkItem(ctx context.Context, id int64) (*types.WorkItem, error)
	QueueCounts(ctx context.Context) (map[types.WorkItemType]map[types.WorkItemStatus]int, error)

	// Per-bot resumable state
	GetBotRunState(ctx context.Context, botName string) (*types.BotRunState, error)
	SaveBotRunState(ctx context.Context, state *types.BotRunState) error

	// Audit ledger and run statistics
	RecordAudit(ctx context.Context, entry *types.AuditEntry) error
	GetAuditTrail(ctx context.Context, questionID int64, limit int) ([]*types.AuditEntry, error)
	RecordRunStats(ctx context.Context, stats *types.RunStats) error
	ListRecentRuns(ctx context.Context, limit int) ([]*types.RunStats, error)

	// Lifecycle
	Close() error
}

// Sentinel errors surfaced by every backend. Callers match these through the
// interface layer instead of importing a concrete backend package.
var (
	ErrNotFound          = sqlite.ErrNotFound
	ErrAlreadyClaimed    = sqlite.ErrAlreadyClaimed
	ErrInvalidTransition = sqlite.ErrInvalidTransition
)

// QualityMetadata is the scorer-owned field group, written wholesale on every
// score so the derived review status can never drift from the canonical score.
type QualityMetadata = sqlite.QualityMetadata

// DiscoveryFilter selects questions for scan-based work discovery.
type DiscoveryFilter = sqlite.DiscoveryFilter

// Config holds database configuration.
type Config struct {
	// Path is the SQLite database file path.
	// Default: ".curator/curator.db"
	// Special value ":memory:" creates an in-memory database (useful for tests).
	Path string
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Path: ".curator/curator.db",
	}
}

// NewStorage creates a new SQLite storage backend. Schema bootstrap failures
// are fatal here; everything downstream assumes the shared tables exist.
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = ".curator/curator.db"
	}
	return sqlite.New(cfg.Path)
}
