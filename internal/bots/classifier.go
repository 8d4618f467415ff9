package bots

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stackprep/curator/internal/runner"
	"github.com/stackprep/curator/internal/storage"
	"github.com/stackprep/curator/internal/types"
)

// ClassifierBot is the producer: it scans the corpus for questions missing a
// field group and enqueues the matching work item for the owning consumer.
// It never calls the oracle and never writes question fields itself.
type ClassifierBot struct {
	store storage.Storage
}

// NewClassifierBot creates the gap-scanning producer.
func NewClassifierBot(store storage.Storage) (*ClassifierBot, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	return &ClassifierBot{store: store}, nil
}

var _ runner.Behavior = (*ClassifierBot)(nil)

func (b *ClassifierBot) Name() string { return "classifier" }

// ItemType is empty: the classifier is a pure producer and claims nothing.
func (b *ClassifierBot) ItemType() types.WorkItemType { return "" }

func (b *ClassifierBot) DefaultState() *types.BotRunState {
	return &types.BotRunState{BotName: b.Name()}
}

func (b *ClassifierBot) NeedsProcessing(ctx context.Context, q *types.Question) (bool, string) {
	if q.DuplicateOf != nil {
		return false, fmt.Sprintf("flagged duplicate of %d", *q.DuplicateOf)
	}
	if len(b.gaps(q)) == 0 {
		return false, "no missing field groups"
	}
	return true, ""
}

// DiscoverBatch unions the per-group gap queries so a question missing any
// owned field group is visited.
func (b *ClassifierBot) DiscoverBatch(ctx context.Context, limit int) ([]*types.Question, error) {
	filters := []storage.DiscoveryFilter{
		{MissingSummary: true, ExcludeRetired: true, Limit: limit},
		{MissingMetadata: true, ExcludeRetired: true, Limit: limit},
		{Unscored: true, ExcludeRetired: true, Limit: limit},
	}

	seen := make(map[int64]bool)
	var batch []*types.Question
	for _, filter := range filters {
		found, err := b.store.DiscoverQuestions(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, q := range found {
			if seen[q.ID] {
				continue
			}
			seen[q.ID] = true
			batch = append(batch, q)
			if len(batch) >= limit {
				return batch, nil
			}
		}
	}
	return batch, nil
}

// gap describes one missing field group and the work item that fills it.
type gap struct {
	itemType types.WorkItemType
	action   string
	priority int
	reason   string
}

func (b *ClassifierBot) gaps(q *types.Question) []gap {
	var gaps []gap
	if q.Summary == "" {
		gaps = append(gaps, gap{types.WorkTypeSummary, "generate-summary", 2, "summary missing"})
	}
	if q.Difficulty == "" || q.Tags == "" {
		gaps = append(gaps, gap{types.WorkTypeMetadata, "generate-metadata", 2, "metadata missing"})
	}
	if !q.IsScored() {
		// Scoring gates triage, so it outranks cosmetic enrichment
		gaps = append(gaps, gap{types.WorkTypeScoring, "score", 1, "quality score missing"})
	}
	return gaps
}

// ProcessItem enqueues one work item per missing field group. Enqueue is
// idempotent per unresolved (item_type, question_id) slot, so re-scanning the
// same question never piles up duplicate work.
func (b *ClassifierBot) ProcessItem(ctx context.Context, q *types.Question) (runner.Outcome, error) {
	enqueued := 0
	var typesEnqueued []types.WorkItemType
	for _, g := range b.gaps(q) {
		created, err := b.store.EnqueueWorkItem(ctx, &types.WorkItem{
			ItemType:   g.itemType,
			QuestionID: q.ID,
			Action:     g.action,
			Priority:   g.priority,
			Reason:     g.reason,
			CreatedBy:  b.Name(),
		})
		if err != nil {
			return runner.Outcome{}, err
		}
		if created {
			enqueued++
			typesEnqueued = append(typesEnqueued, g.itemType)
		}
	}

	result, _ := json.Marshal(map[string]interface{}{"enqueued": typesEnqueued})
	return runner.Outcome{Created: enqueued, Result: result}, nil
}
