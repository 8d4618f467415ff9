package runner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackprep/curator/internal/oracle"
	"github.com/stackprep/curator/internal/storage"
	"github.com/stackprep/curator/internal/types"
)

// stubBehavior lets each test wire exactly the hooks it needs.
type stubBehavior struct {
	name     string
	itemType types.WorkItemType
	needs    func(q *types.Question) (bool, string)
	process  func(q *types.Question) (Outcome, error)
	discover func(limit int) ([]*types.Question, error)
}

func (s *stubBehavior) Name() string                 { return s.name }
func (s *stubBehavior) ItemType() types.WorkItemType { return s.itemType }

func (s *stubBehavior) DefaultState() *types.BotRunState {
	return &types.BotRunState{BotName: s.name}
}

func (s *stubBehavior) NeedsProcessing(ctx context.Context, q *types.Question) (bool, string) {
	if s.needs != nil {
		return s.needs(q)
	}
	return true, ""
}

func (s *stubBehavior) ProcessItem(ctx context.Context, q *types.Question) (Outcome, error) {
	if s.process != nil {
		return s.process(q)
	}
	return Outcome{Updated: 1}, nil
}

func (s *stubBehavior) DiscoverBatch(ctx context.Context, limit int) ([]*types.Question, error) {
	if s.discover != nil {
		return s.discover(limit)
	}
	return nil, nil
}

func newRunnerStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewStorage(context.Background(), &storage.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedQuestions(t *testing.T, store storage.Storage, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, err := store.CreateQuestion(context.Background(), &types.Question{
			Topic: "go", Question: "q", Answer: "a",
		}, "test")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func enqueue(t *testing.T, store storage.Storage, itemType types.WorkItemType, questionID int64) *types.WorkItem {
	t.Helper()
	item := &types.WorkItem{ItemType: itemType, QuestionID: questionID, CreatedBy: "test"}
	inserted, err := store.EnqueueWorkItem(context.Background(), item)
	require.NoError(t, err)
	require.True(t, inserted)
	return item
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRunProcessesQueuedWork(t *testing.T) {
	ctx := context.Background()
	store := newRunnerStore(t)
	ids := seedQuestions(t, store, 2)
	item1 := enqueue(t, store, types.WorkTypeSummary, ids[0])
	item2 := enqueue(t, store, types.WorkTypeSummary, ids[1])

	bot := &stubBehavior{
		name:     "summarizer",
		itemType: types.WorkTypeSummary,
		process: func(q *types.Question) (Outcome, error) {
			return Outcome{Updated: 1, Result: json.RawMessage(`{"outcome":"written"}`)}, nil
		},
	}

	summary, err := Run(ctx, &Config{
		Store: store, Behavior: bot,
		ItemDelay: time.Millisecond, Logger: quietLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Updated)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, summary.Skipped)

	for _, item := range []*types.WorkItem{item1, item2} {
		got, err := store.GetWorkItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, types.WorkStatusCompleted, got.Status)
		assert.JSONEq(t, `{"outcome":"written"}`, string(got.Result))
	}
}

func TestRunContinuesPastItemFailure(t *testing.T) {
	ctx := context.Background()
	store := newRunnerStore(t)
	ids := seedQuestions(t, store, 2)
	bad := enqueue(t, store, types.WorkTypeScoring, ids[0])
	good := enqueue(t, store, types.WorkTypeScoring, ids[1])

	bot := &stubBehavior{
		name:     "scorer",
		itemType: types.WorkTypeScoring,
		process: func(q *types.Question) (Outcome, error) {
			if q.ID == ids[0] {
				return Outcome{}, errors.New("oracle returned garbage")
			}
			return Outcome{Updated: 1}, nil
		},
	}

	summary, err := Run(ctx, &Config{
		Store: store, Behavior: bot,
		ItemDelay: time.Millisecond, Logger: quietLogger(),
	})
	require.NoError(t, err, "one item's failure must not abort the run")

	// A failed item is both processed and failed
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Updated)

	gotBad, err := store.GetWorkItem(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, types.WorkStatusFailed, gotBad.Status)
	assert.Equal(t, "oracle returned garbage", gotBad.Reason)

	gotGood, err := store.GetWorkItem(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, types.WorkStatusCompleted, gotGood.Status)
}

func TestRunRecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	store := newRunnerStore(t)
	ids := seedQuestions(t, store, 2)
	enqueue(t, store, types.WorkTypeScoring, ids[0])
	enqueue(t, store, types.WorkTypeScoring, ids[1])

	bot := &stubBehavior{
		name:     "scorer",
		itemType: types.WorkTypeScoring,
		process: func(q *types.Question) (Outcome, error) {
			if q.ID == ids[0] {
				panic("nil map write")
			}
			return Outcome{Updated: 1}, nil
		},
	}

	summary, err := Run(ctx, &Config{
		Store: store, Behavior: bot,
		ItemDelay: time.Millisecond, Logger: quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Updated)
}

func TestRunResolvesSkippedQueueItems(t *testing.T) {
	ctx := context.Background()
	store := newRunnerStore(t)
	ids := seedQuestions(t, store, 1)
	item := enqueue(t, store, types.WorkTypeSummary, ids[0])

	bot := &stubBehavior{
		name:     "summarizer",
		itemType: types.WorkTypeSummary,
		needs: func(q *types.Question) (bool, string) {
			return false, "summary already present"
		},
	}

	summary, err := Run(ctx, &Config{
		Store: store, Behavior: bot,
		ItemDelay: time.Millisecond, Logger: quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Processed)

	// Skips still resolve the work item so the slot frees up
	got, err := store.GetWorkItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, types.WorkStatusCompleted, got.Status)
	assert.Contains(t, string(got.Result), "skipped")
}

func TestRunScanFallback(t *testing.T) {
	ctx := context.Background()
	store := newRunnerStore(t)
	ids := seedQuestions(t, store, 1)

	// Empty queue; the behavior's own discovery supplies the batch
	bot := &stubBehavior{
		name:     "scorer",
		itemType: types.WorkTypeScoring,
		discover: func(limit int) ([]*types.Question, error) {
			q, err := store.GetQuestion(ctx, ids[0])
			if err != nil {
				return nil, err
			}
			return []*types.Question{q}, nil
		},
	}

	summary, err := Run(ctx, &Config{
		Store: store, Behavior: bot,
		ItemDelay: time.Millisecond, Logger: quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	// Scan-discovered batches never move the sequential cursor
	state, err := store.GetBotRunState(ctx, "scorer")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Zero(t, state.CursorIndex)
}

func TestRunSequentialScanCursor(t *testing.T) {
	ctx := context.Background()
	store := newRunnerStore(t)
	seedQuestions(t, store, 3)

	bot := &stubBehavior{name: "deduper"} // no item type, no discovery: pure scanner

	run := func() *types.RunSummary {
		summary, err := Run(ctx, &Config{
			Store: store, Behavior: bot, BatchSize: 2,
			ItemDelay: time.Millisecond, Logger: quietLogger(),
		})
		require.NoError(t, err)
		return summary
	}

	summary := run()
	assert.Equal(t, 2, summary.Processed)

	state, err := store.GetBotRunState(ctx, "deduper")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 2, state.CursorIndex, "cursor advances once per visited item")

	// Next run wraps: visits item 2, then item 0 again
	summary = run()
	assert.Equal(t, 2, summary.Processed)

	state, err = store.GetBotRunState(ctx, "deduper")
	require.NoError(t, err)
	assert.Equal(t, 1, state.CursorIndex, "cursor wraps modulo corpus size")
	assert.Equal(t, int64(4), state.Processed, "state counters accumulate across runs")
}

func TestRunSequentialScanVisitsEachItemOncePerBatch(t *testing.T) {
	ctx := context.Background()
	store := newRunnerStore(t)
	ids := seedQuestions(t, store, 3)

	visits := make(map[int64]int)
	bot := &stubBehavior{
		name: "deduper",
		process: func(q *types.Question) (Outcome, error) {
			visits[q.ID]++
			return Outcome{}, nil
		},
	}

	// Non-zero cursor with a batch larger than the corpus: the wrapped page
	// must stop where the first page started
	require.NoError(t, store.SaveBotRunState(ctx, &types.BotRunState{
		BotName: "deduper", CursorIndex: 2,
	}))

	summary, err := Run(ctx, &Config{
		Store: store, Behavior: bot, BatchSize: 10,
		ItemDelay: time.Millisecond, Logger: quietLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	for _, id := range ids {
		assert.Equal(t, 1, visits[id], "question %d visited more than once in one run", id)
	}
}

func TestRunFailsFastWhenBreakerOpen(t *testing.T) {
	ctx := context.Background()
	store := newRunnerStore(t)
	ids := seedQuestions(t, store, 2)
	enqueue(t, store, types.WorkTypeScoring, ids[0])
	enqueue(t, store, types.WorkTypeScoring, ids[1])

	breaker := oracle.NewCircuitBreaker(1)
	breaker.RecordFailure() // already tripped

	calls := 0
	bot := &stubBehavior{
		name:     "scorer",
		itemType: types.WorkTypeScoring,
		process: func(q *types.Question) (Outcome, error) {
			calls++
			return Outcome{}, nil
		},
	}

	// An hour-long item delay: if the loop paid it per item, the test would
	// time out. Open-breaker items must fail without waiting on the limiter.
	start := time.Now()
	summary, err := Run(ctx, &Config{
		Store: store, Behavior: bot, Breaker: breaker,
		ItemDelay: time.Hour, Logger: quietLogger(),
	})
	require.NoError(t, err)

	assert.Zero(t, calls, "no oracle work once the breaker is open")
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Failed)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestRunEmptyCorpus(t *testing.T) {
	store := newRunnerStore(t)
	bot := &stubBehavior{name: "deduper"}

	summary, err := Run(context.Background(), &Config{
		Store: store, Behavior: bot,
		ItemDelay: time.Millisecond, Logger: quietLogger(),
	})
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
}

func TestRunValidatesConfig(t *testing.T) {
	_, err := Run(context.Background(), &Config{Behavior: &stubBehavior{name: "x"}})
	assert.Error(t, err)

	_, err = Run(context.Background(), &Config{Store: newRunnerStore(t)})
	assert.Error(t, err)
}
