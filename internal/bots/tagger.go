package bots

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stackprep/curator/internal/oracle"
	"github.com/stackprep/curator/internal/runner"
	"github.com/stackprep/curator/internal/storage"
	"github.com/stackprep/curator/internal/types"
)

// TaggerBot fills in the metadata field group: difficulty rating and topic
// tags. It owns difficulty and tags.
type TaggerBot struct {
	store   storage.Storage
	invoker oracle.Invoker
}

// NewTaggerBot creates the metadata consumer.
func NewTaggerBot(store storage.Storage, invoker oracle.Invoker) (*TaggerBot, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if invoker == nil {
		return nil, fmt.Errorf("oracle invoker is required")
	}
	return &TaggerBot{store: store, invoker: invoker}, nil
}

var _ runner.Behavior = (*TaggerBot)(nil)

func (b *TaggerBot) Name() string                 { return "tagger" }
func (b *TaggerBot) ItemType() types.WorkItemType { return types.WorkTypeMetadata }

func (b *TaggerBot) DefaultState() *types.BotRunState {
	return &types.BotRunState{BotName: b.Name()}
}

func (b *TaggerBot) NeedsProcessing(ctx context.Context, q *types.Question) (bool, string) {
	if q.DuplicateOf != nil {
		return false, fmt.Sprintf("flagged duplicate of %d", *q.DuplicateOf)
	}
	if q.Difficulty != "" && q.Tags != "" {
		return false, "metadata already present"
	}
	return true, ""
}

func (b *TaggerBot) DiscoverBatch(ctx context.Context, limit int) ([]*types.Question, error) {
	return b.store.DiscoverQuestions(ctx, storage.DiscoveryFilter{
		MissingMetadata: true,
		ExcludeRetired:  true,
		Limit:           limit,
	})
}

type metadataResponse struct {
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
}

var validDifficulties = map[string]bool{
	"beginner":     true,
	"intermediate": true,
	"advanced":     true,
}

func (b *TaggerBot) ProcessItem(ctx context.Context, q *types.Question) (runner.Outcome, error) {
	prompt := fmt.Sprintf(`Classify this interview question. Respond with JSON only:
{"difficulty": "beginner|intermediate|advanced", "tags": ["tag1", "tag2"]}

Topic: %s
Question: %s
Answer: %s`, q.Topic, q.Question, q.Answer)

	payload, err := b.invoker.Invoke(ctx, "classify_question", prompt)
	if err != nil {
		return runner.Outcome{}, err
	}

	var resp metadataResponse
	if err := oracle.Unmarshal(payload, "classify_question", &resp); err != nil {
		return runner.Outcome{}, err
	}
	if !validDifficulties[resp.Difficulty] {
		return runner.Outcome{}, fmt.Errorf("classify_question response failed structural checks: bad difficulty %q", resp.Difficulty)
	}
	if len(resp.Tags) == 0 {
		return runner.Outcome{}, fmt.Errorf("classify_question response failed structural checks: no tags")
	}

	tags := strings.Join(resp.Tags, ",")
	if err := b.store.UpdateMetadata(ctx, q.ID, resp.Difficulty, tags, b.Name(), "generated metadata"); err != nil {
		return runner.Outcome{}, err
	}

	result, _ := json.Marshal(resp)
	return runner.Outcome{Updated: 1, Result: result}, nil
}
