package bots

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stackprep/curator/internal/oracle"
	"github.com/stackprep/curator/internal/runner"
	"github.com/stackprep/curator/internal/storage"
	"github.com/stackprep/curator/internal/types"
)

// SummarizerBot generates the one-paragraph study summary for questions that
// lack one. It owns the summary field.
type SummarizerBot struct {
	store   storage.Storage
	invoker oracle.Invoker
}

// NewSummarizerBot creates the summary consumer.
func NewSummarizerBot(store storage.Storage, invoker oracle.Invoker) (*SummarizerBot, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if invoker == nil {
		return nil, fmt.Errorf("oracle invoker is required")
	}
	return &SummarizerBot{store: store, invoker: invoker}, nil
}

var _ runner.Behavior = (*SummarizerBot)(nil)

func (b *SummarizerBot) Name() string                 { return "summarizer" }
func (b *SummarizerBot) ItemType() types.WorkItemType { return types.WorkTypeSummary }

func (b *SummarizerBot) DefaultState() *types.BotRunState {
	return &types.BotRunState{BotName: b.Name()}
}

func (b *SummarizerBot) NeedsProcessing(ctx context.Context, q *types.Question) (bool, string) {
	if q.DuplicateOf != nil {
		return false, fmt.Sprintf("flagged duplicate of %d", *q.DuplicateOf)
	}
	if q.Summary != "" {
		return false, "summary already present"
	}
	return true, ""
}

func (b *SummarizerBot) DiscoverBatch(ctx context.Context, limit int) ([]*types.Question, error) {
	return b.store.DiscoverQuestions(ctx, storage.DiscoveryFilter{
		MissingSummary: true,
		ExcludeRetired: true,
		Limit:          limit,
	})
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

func (b *SummarizerBot) ProcessItem(ctx context.Context, q *types.Question) (runner.Outcome, error) {
	prompt := fmt.Sprintf(`Write a concise study summary (2-3 sentences) of this
interview question and its answer. Respond with JSON only: {"summary": "..."}

Topic: %s
Question: %s
Answer: %s`, q.Topic, q.Question, q.Answer)

	payload, err := b.invoker.Invoke(ctx, "summarize_question", prompt)
	if err != nil {
		return runner.Outcome{}, err
	}

	var resp summaryResponse
	if err := oracle.Unmarshal(payload, "summarize_question", &resp); err != nil {
		return runner.Outcome{}, err
	}
	if resp.Summary == "" {
		return runner.Outcome{}, fmt.Errorf("summarize_question response failed structural checks: empty summary")
	}

	if err := b.store.UpdateSummary(ctx, q.ID, resp.Summary, b.Name(), "generated summary"); err != nil {
		return runner.Outcome{}, err
	}

	result, _ := json.Marshal(map[string]string{"summary": resp.Summary})
	return runner.Outcome{Updated: 1, Result: result}, nil
}
