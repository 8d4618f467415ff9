// Package bots contains the concrete Behavior implementations that plug into
// the runner: the classifier (producer), and the scorer, summarizer, tagger,
// and deduper (consumers).
package bots

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stackprep/curator/internal/oracle"
	"github.com/stackprep/curator/internal/runner"
	"github.com/stackprep/curator/internal/scoring"
	"github.com/stackprep/curator/internal/storage"
	"github.com/stackprep/curator/internal/types"
)

// ScorerBot judges question quality through the oracle and owns the
// quality-metadata field group. It is the only bot type that writes
// relevance_score, relevance_details, review_status, and
// improvement_suggestions.
type ScorerBot struct {
	store   storage.Storage
	invoker oracle.Invoker
	weights scoring.Weights
}

// NewScorerBot creates the scoring consumer.
func NewScorerBot(store storage.Storage, invoker oracle.Invoker, weights scoring.Weights) (*ScorerBot, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if invoker == nil {
		return nil, fmt.Errorf("oracle invoker is required")
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}
	return &ScorerBot{store: store, invoker: invoker, weights: weights}, nil
}

var _ runner.Behavior = (*ScorerBot)(nil)

func (b *ScorerBot) Name() string                 { return "scorer" }
func (b *ScorerBot) ItemType() types.WorkItemType { return types.WorkTypeScoring }

func (b *ScorerBot) DefaultState() *types.BotRunState {
	return &types.BotRunState{BotName: b.Name()}
}

// NeedsProcessing skips questions that already carry a score. Items are
// scored at most once unless an operator explicitly clears the score, which
// prevents oscillation from non-deterministic oracle output at the cost of
// staleness until reset.
func (b *ScorerBot) NeedsProcessing(ctx context.Context, q *types.Question) (bool, string) {
	if q.IsScored() {
		return false, fmt.Sprintf("already scored (%d)", *q.RelevanceScore)
	}
	if q.DuplicateOf != nil {
		return false, fmt.Sprintf("flagged duplicate of %d", *q.DuplicateOf)
	}
	return true, ""
}

// DiscoverBatch pulls unscored questions directly when the queue is empty.
func (b *ScorerBot) DiscoverBatch(ctx context.Context, limit int) ([]*types.Question, error) {
	return b.store.DiscoverQuestions(ctx, storage.DiscoveryFilter{
		Unscored:       true,
		ExcludeRetired: true,
		Limit:          limit,
	})
}

// scoreResponse is the structured payload the oracle returns for one
// scoring judgment.
type scoreResponse struct {
	Criteria scoring.Criteria `json:"criteria"`
	Details  string           `json:"details"`
	Guidance scoring.Guidance `json:"guidance"`
}

// scoreResult is the opaque payload stored on the resolved work item.
type scoreResult struct {
	Score        int          `json:"score"`
	Band         scoring.Band `json:"band"`
	AutoApproved bool         `json:"auto_approved"`
}

// ProcessItem asks the oracle for the seven per-criterion judgments,
// aggregates them into the weighted score, and rewrites the quality-metadata
// group wholesale.
func (b *ScorerBot) ProcessItem(ctx context.Context, q *types.Question) (runner.Outcome, error) {
	payload, err := b.invoker.Invoke(ctx, "score_question", b.buildPrompt(q))
	if err != nil {
		return runner.Outcome{}, err
	}

	var resp scoreResponse
	if err := oracle.Unmarshal(payload, "score_question", &resp); err != nil {
		return runner.Outcome{}, err
	}
	if err := resp.Criteria.Validate(); err != nil {
		return runner.Outcome{}, fmt.Errorf("score_question response failed structural checks: %w", err)
	}

	score := scoring.WeightedScore(resp.Criteria, b.weights)
	meta := storage.QualityMetadata{
		RelevanceScore:         score,
		RelevanceDetails:       resp.Details,
		ReviewStatus:           scoring.ReviewStatusFor(score),
		ImprovementSuggestions: resp.Guidance.Render(),
	}
	if err := b.store.SetQualityMetadata(ctx, q.ID, meta, b.Name(), "quality scoring"); err != nil {
		return runner.Outcome{}, err
	}

	// Improvement guidance drives a targeted follow-up enqueue, not a blind
	// regeneration. The store keeps this idempotent per unresolved slot.
	created := 0
	if !resp.Guidance.IsEmpty() && scoring.BandFor(score) != scoring.BandExcellent {
		if ok := b.enqueueFollowUp(ctx, q, resp.Guidance); ok {
			created++
		}
	}

	result, _ := json.Marshal(scoreResult{
		Score:        score,
		Band:         scoring.BandFor(score),
		AutoApproved: scoring.AutoApproved(score),
	})
	return runner.Outcome{Updated: 1, Created: created, Result: result}, nil
}

func (b *ScorerBot) enqueueFollowUp(ctx context.Context, q *types.Question, g scoring.Guidance) bool {
	itemType := types.WorkTypeMetadata
	action := "refresh-metadata"
	if len(g.AnswerIssues) > 0 || len(g.MissingTopics) > 0 {
		itemType = types.WorkTypeSummary
		action = "refresh-summary"
	}
	created, err := b.store.EnqueueWorkItem(ctx, &types.WorkItem{
		ItemType:   itemType,
		QuestionID: q.ID,
		Action:     action,
		Priority:   2,
		Reason:     "improvement guidance from scoring",
		CreatedBy:  b.Name(),
	})
	if err != nil {
		// Follow-up is best effort; the score itself already landed
		return false
	}
	return created
}

func (b *ScorerBot) buildPrompt(q *types.Question) string {
	return fmt.Sprintf(`You are reviewing an interview-prep question for quality.

Topic: %s
Question: %s
Answer: %s
Difficulty: %s

Judge each criterion on a 1-10 scale and respond with JSON only:
{
  "criteria": {
    "interview_frequency": n,
    "practical_relevance": n,
    "concept_depth": n,
    "industry_demand": n,
    "difficulty_appropriate": n,
    "question_clarity": n,
    "answer_quality": n
  },
  "details": "one-paragraph justification",
  "guidance": {
    "question_issues": [],
    "answer_issues": [],
    "missing_topics": [],
    "suggested_additions": [],
    "difficulty_adjustment": ""
  }
}`, q.Topic, q.Question, q.Answer, q.Difficulty)
}
