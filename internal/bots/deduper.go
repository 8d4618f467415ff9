package bots

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stackprep/curator/internal/runner"
	"github.com/stackprep/curator/internal/similarity"
	"github.com/stackprep/curator/internal/storage"
	"github.com/stackprep/curator/internal/types"
)

// DeduperBot runs the redundancy scan: for each visited question it looks for
// near-duplicates within the same topic and flags everything but the oldest
// group member. It owns the duplicate_of field and never calls the oracle.
//
// When a vector backend is configured, candidate lookup goes through it;
// otherwise the bot loads the topic's questions and compares pairwise. Either
// way the confirming check is the same lexical similarity at the same
// threshold.
type DeduperBot struct {
	store     storage.Storage
	backend   similarity.Backend // optional
	threshold float64
}

// NewDeduperBot creates the redundancy-scan bot. backend may be nil.
func NewDeduperBot(store storage.Storage, backend similarity.Backend, threshold float64) (*DeduperBot, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be in (0,1] (got %.2f)", threshold)
	}
	return &DeduperBot{store: store, backend: backend, threshold: threshold}, nil
}

var _ runner.Behavior = (*DeduperBot)(nil)

func (b *DeduperBot) Name() string { return "deduper" }

// ItemType is empty: redundancy scanning is pull-only, driven by the
// sequential corpus walk.
func (b *DeduperBot) ItemType() types.WorkItemType { return "" }

func (b *DeduperBot) DefaultState() *types.BotRunState {
	return &types.BotRunState{BotName: b.Name()}
}

func (b *DeduperBot) NeedsProcessing(ctx context.Context, q *types.Question) (bool, string) {
	if q.DuplicateOf != nil {
		return false, fmt.Sprintf("already flagged duplicate of %d", *q.DuplicateOf)
	}
	return true, ""
}

// DiscoverBatch returns nothing: the deduper relies on the sequential scan
// with wraparound, which guarantees every question is eventually visited.
func (b *DeduperBot) DiscoverBatch(ctx context.Context, limit int) ([]*types.Question, error) {
	return nil, nil
}

type dedupeResult struct {
	Duplicates []int64 `json:"duplicates,omitempty"`
	KeeperID   int64   `json:"keeper_id,omitempty"`
}

// ProcessItem finds the duplicate group around q and flags every removal
// candidate, oldest member wins. Flagging a duplicate is a normal outcome;
// finding none is too. The sequential scan doubles as index maintenance:
// every visited question is (re)indexed and flagged duplicates drop out.
func (b *DeduperBot) ProcessItem(ctx context.Context, q *types.Question) (runner.Outcome, error) {
	if b.backend != nil {
		// Best effort: a stale index only costs lexical fallbacks
		_ = b.backend.Index(ctx, similarity.Item{
			ID:          q.ID,
			Text:        q.Question + " " + q.Answer,
			LastUpdated: q.UpdatedAt,
		}, q.Topic)
	}

	group, err := b.duplicateGroup(ctx, q)
	if err != nil {
		return runner.Outcome{}, err
	}
	if len(group) < 2 {
		return runner.Outcome{Result: json.RawMessage(`{}`)}, nil
	}

	keeper := similarity.Keeper(group)
	flagged := 0
	var flaggedIDs []int64
	for _, candidate := range similarity.RemovalCandidates(group) {
		// Re-check: a concurrent run may have flagged it already
		current, err := b.store.GetQuestion(ctx, candidate.ID)
		if err != nil {
			return runner.Outcome{}, err
		}
		if current.DuplicateOf != nil {
			continue
		}
		reason := fmt.Sprintf("near-duplicate of question %d (similarity >= %.2f)", keeper.ID, b.threshold)
		if err := b.store.MarkDuplicate(ctx, candidate.ID, keeper.ID, b.Name(), reason); err != nil {
			return runner.Outcome{}, err
		}
		if b.backend != nil {
			_ = b.backend.Remove(ctx, candidate.ID)
		}
		flagged++
		flaggedIDs = append(flaggedIDs, candidate.ID)
	}

	result, _ := json.Marshal(dedupeResult{Duplicates: flaggedIDs, KeeperID: keeper.ID})
	return runner.Outcome{Updated: flagged, Result: result}, nil
}

// duplicateGroup collects q plus every same-topic question whose similarity
// to q meets the threshold.
func (b *DeduperBot) duplicateGroup(ctx context.Context, q *types.Question) ([]similarity.Item, error) {
	self := similarity.Item{ID: q.ID, Text: q.Question + " " + q.Answer, LastUpdated: q.UpdatedAt}

	candidates, err := b.candidates(ctx, q)
	if err != nil {
		return nil, err
	}

	group := []similarity.Item{self}
	for _, cand := range candidates {
		if cand.ID == q.ID {
			continue
		}
		if similarity.Similarity(self.Text, cand.Text) >= b.threshold {
			group = append(group, cand)
		}
	}
	return group, nil
}

func (b *DeduperBot) candidates(ctx context.Context, q *types.Question) ([]similarity.Item, error) {
	text := q.Question + " " + q.Answer

	if b.backend != nil {
		matches, err := b.backend.Search(ctx, text, similarity.SearchOptions{
			Limit:     50,
			Threshold: b.threshold,
			Topic:     q.Topic,
		})
		if err == nil {
			var items []similarity.Item
			for _, m := range matches {
				cand, err := b.store.GetQuestion(ctx, m.ID)
				if err != nil {
					continue // index can lag behind corpus deletions
				}
				items = append(items, similarity.Item{
					ID:          cand.ID,
					Text:        cand.Question + " " + cand.Answer,
					LastUpdated: cand.UpdatedAt,
				})
			}
			return items, nil
		}
		// Backend failure degrades to the lexical path for this item
	}

	sameTopic, err := b.store.DiscoverQuestions(ctx, storage.DiscoveryFilter{
		Topic:          q.Topic,
		ExcludeRetired: true,
	})
	if err != nil {
		return nil, err
	}
	var items []similarity.Item
	for _, cand := range sameTopic {
		items = append(items, similarity.Item{
			ID:          cand.ID,
			Text:        cand.Question + " " + cand.Answer,
			LastUpdated: cand.UpdatedAt,
		})
	}
	return items, nil
}
