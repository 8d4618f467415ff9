package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/stackprep/curator/internal/oracle"
	"github.com/stackprep/curator/internal/storage"
	"github.com/stackprep/curator/internal/types"
)

// Config holds runner configuration for one bot invocation.
type Config struct {
	Store    storage.Storage
	Behavior Behavior

	// Breaker is the per-run oracle circuit breaker, usually the client's
	// own. Once it opens, remaining items fail immediately instead of
	// burning retry budget. Nil disables the check.
	Breaker *oracle.CircuitBreaker

	// BatchSize bounds the number of items per run (default: 10).
	BatchSize int

	// ItemDelay is the fixed inter-item delay respecting externally imposed
	// oracle call-rate limits (default: 2s). Skipped items do not pay it.
	ItemDelay time.Duration

	// Logger receives per-item narration and the final machine-readable
	// summary. Defaults to the standard logrus logger.
	Logger *logrus.Logger
}

// workUnit pairs a question with the work item that delivered it, if any.
// Scan-discovered questions have no work item to resolve.
type workUnit struct {
	question *types.Question
	item     *types.WorkItem
}

// Run executes one bot invocation end to end and returns the run summary.
// Items are processed strictly sequentially; the store is the only
// synchronization point with concurrent runners.
//
// Every per-item error is converted into a failed-item outcome plus counter
// increments at the loop boundary. Only failures around the loop itself
// (state persistence, batch acquisition) abort the run, and even then the
// summary emitted accounts for everything processed so far.
func Run(ctx context.Context, cfg *Config) (*types.RunSummary, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Behavior == nil {
		return nil, fmt.Errorf("behavior is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	itemDelay := cfg.ItemDelay
	if itemDelay <= 0 {
		itemDelay = 2 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	bot := cfg.Behavior
	summary := &types.RunSummary{
		RunID:     uuid.New().String(),
		BotName:   bot.Name(),
		StartedAt: time.Now().UTC(),
	}

	// Load resumable state, seeding from the behavior's default on first run
	state, err := cfg.Store.GetBotRunState(ctx, bot.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to load run state: %w", err)
	}
	if state == nil {
		state = bot.DefaultState()
		if state == nil {
			state = &types.BotRunState{}
		}
		state.BotName = bot.Name()
	}
	state.LastRunAt = summary.StartedAt

	units, sequential, err := acquireBatch(ctx, cfg.Store, bot, state, batchSize, log)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire batch: %w", err)
	}

	corpusSize := 0
	if sequential {
		corpusSize, err = cfg.Store.CountQuestions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count corpus: %w", err)
		}
	}

	// Simple non-adaptive rate limiter: one item per ItemDelay
	limiter := rate.NewLimiter(rate.Every(itemDelay), 1)

	for _, unit := range units {
		q := unit.question
		itemLog := log.WithFields(logrus.Fields{
			"bot":      bot.Name(),
			"question": q.ID,
		})

		needs, reason := bot.NeedsProcessing(ctx, q)
		if !needs {
			summary.Skipped++
			itemLog.WithField("reason", reason).Info("skipped")
			resolveSkipped(ctx, cfg.Store, unit, reason, itemLog)
			advance(state, summary, sequential, corpusSize)
			persistState(ctx, cfg.Store, state, itemLog)
			continue
		}

		var outcome Outcome
		var procErr error
		if cfg.Breaker != nil && cfg.Breaker.IsOpen() {
			// Breaker tripped earlier in this run; fail the item immediately
			// without paying the inter-item delay
			procErr = oracle.ErrCircuitOpen
		} else {
			if err := limiter.Wait(ctx); err != nil {
				summary.Err = fmt.Sprintf("canceled: %v", err)
				break
			}
			outcome, procErr = processWithBoundary(ctx, bot, q)
		}

		summary.Processed++
		state.Processed++

		if procErr != nil {
			summary.Failed++
			state.Failed++
			itemLog.WithField("reason", procErr.Error()).Warn("item failed")
			if unit.item != nil {
				if err := cfg.Store.FailWorkItem(ctx, unit.item.ID, procErr.Error()); err != nil && !errors.Is(err, storage.ErrInvalidTransition) {
					itemLog.WithError(err).Warn("failed to mark work item failed")
				}
			}
		} else {
			summary.Created += outcome.Created
			summary.Updated += outcome.Updated
			state.Created += int64(outcome.Created)
			state.Updated += int64(outcome.Updated)
			itemLog.Info("processed")
			if unit.item != nil {
				if err := cfg.Store.CompleteWorkItem(ctx, unit.item.ID, outcome.Result); err != nil && !errors.Is(err, storage.ErrInvalidTransition) {
					itemLog.WithError(err).Warn("failed to mark work item completed")
				}
			}
		}

		advance(state, summary, sequential, corpusSize)
		persistState(ctx, cfg.Store, state, itemLog)
	}

	summary.Duration = time.Since(summary.StartedAt)

	// Final state + durable stats row, then the machine-readable summary
	if err := cfg.Store.SaveBotRunState(ctx, state); err != nil {
		log.WithError(err).Warn("failed to persist final run state")
	}
	if err := cfg.Store.RecordRunStats(ctx, &types.RunStats{
		RunID:      summary.RunID,
		BotName:    summary.BotName,
		StartedAt:  summary.StartedAt,
		DurationMs: summary.Duration.Milliseconds(),
		Processed:  summary.Processed,
		Created:    summary.Created,
		Updated:    summary.Updated,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
	}); err != nil {
		log.WithError(err).Warn("failed to record run stats")
	}

	fields := logrus.Fields{
		"run_id":      summary.RunID,
		"bot":         summary.BotName,
		"duration_ms": summary.Duration.Milliseconds(),
	}
	for k, v := range summary.Counters() {
		fields[k] = v
	}
	log.WithFields(fields).Info("run complete")

	return summary, nil
}

// acquireBatch unifies push- and pull-based work discovery under one call
// site: claim from the queue first, fall back to the behavior's gap-scan
// query, and finally walk the corpus sequentially from the persisted cursor.
// The returned flag reports whether the batch came from the sequential scan
// (the only mode that moves the cursor).
func acquireBatch(ctx context.Context, store storage.Storage, bot Behavior, state *types.BotRunState, batchSize int, log *logrus.Logger) ([]workUnit, bool, error) {
	// Queue first
	if itemType := bot.ItemType(); itemType != "" {
		claimed, err := store.ClaimWorkBatch(ctx, itemType, batchSize)
		if err != nil {
			return nil, false, fmt.Errorf("failed to claim work batch: %w", err)
		}
		var units []workUnit
		for _, item := range claimed {
			// Atomic pending → in_progress; losing the race is a skip
			if err := store.StartWorkItem(ctx, item.ID, bot.Name()); err != nil {
				if errors.Is(err, storage.ErrAlreadyClaimed) {
					log.WithField("work_item", item.ID).Debug("lost claim race, skipping")
					continue
				}
				return nil, false, fmt.Errorf("failed to start work item %d: %w", item.ID, err)
			}
			q, err := store.GetQuestion(ctx, item.QuestionID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					// Question deleted after enqueue; resolve the orphan
					_ = store.FailWorkItem(ctx, item.ID, "question no longer exists")
					continue
				}
				return nil, false, fmt.Errorf("failed to load question %d: %w", item.QuestionID, err)
			}
			units = append(units, workUnit{question: q, item: item})
		}
		if len(units) > 0 {
			return units, false, nil
		}
	}

	// Scan fallback: the behavior's own prioritized gap query
	discovered, err := bot.DiscoverBatch(ctx, batchSize)
	if err != nil {
		return nil, false, fmt.Errorf("scan fallback failed: %w", err)
	}
	if len(discovered) > 0 {
		units := make([]workUnit, 0, len(discovered))
		for _, q := range discovered {
			units = append(units, workUnit{question: q})
		}
		return units, false, nil
	}

	// Last resort: sequential scan with wraparound from the persisted cursor
	total, err := store.CountQuestions(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to count corpus: %w", err)
	}
	if total == 0 {
		return nil, false, nil
	}
	cursor := state.CursorIndex % total
	if batchSize > total {
		batchSize = total
	}

	page, err := store.ListQuestions(ctx, cursor, batchSize)
	if err != nil {
		return nil, false, fmt.Errorf("sequential scan failed: %w", err)
	}
	if len(page) < batchSize && cursor > 0 {
		// The wrapped page must stop at the cursor so no item appears twice
		// in one batch
		remaining := batchSize - len(page)
		if remaining > cursor {
			remaining = cursor
		}
		wrapped, err := store.ListQuestions(ctx, 0, remaining)
		if err != nil {
			return nil, false, fmt.Errorf("sequential scan wraparound failed: %w", err)
		}
		page = append(page, wrapped...)
	}

	units := make([]workUnit, 0, len(page))
	for _, q := range page {
		units = append(units, workUnit{question: q})
	}
	return units, true, nil
}

// processWithBoundary invokes the behavior inside the per-item error
// boundary. A panic is converted to an item failure like any other error:
// one item's failure never aborts the batch.
func processWithBoundary(ctx context.Context, bot Behavior, q *types.Question) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing question %d: %v", q.ID, r)
		}
	}()
	return bot.ProcessItem(ctx, q)
}

// resolveSkipped completes a queue-delivered item as a skip. Skips are normal
// outcomes, not errors, but the work item must still resolve so the
// (item_type, question_id) slot frees up.
func resolveSkipped(ctx context.Context, store storage.Storage, unit workUnit, reason string, log *logrus.Entry) {
	if unit.item == nil {
		return
	}
	result, _ := json.Marshal(map[string]string{"outcome": "skipped", "reason": reason})
	if err := store.CompleteWorkItem(ctx, unit.item.ID, result); err != nil && !errors.Is(err, storage.ErrInvalidTransition) {
		log.WithError(err).Warn("failed to resolve skipped work item")
	}
}

// advance moves the cursor after each item in sequential-scan mode so that a
// crash resumes at the next unvisited item. next cursor = (i+1) mod N.
func advance(state *types.BotRunState, summary *types.RunSummary, sequential bool, corpusSize int) {
	if !sequential || corpusSize == 0 {
		return
	}
	state.CursorIndex = (state.CursorIndex + 1) % corpusSize
}

// persistState saves progress after every item, not just at batch end, so a
// crash mid-run loses at most the in-flight item.
func persistState(ctx context.Context, store storage.Storage, state *types.BotRunState, log *logrus.Entry) {
	if err := store.SaveBotRunState(ctx, state); err != nil {
		log.WithError(err).Warn("failed to persist run state")
	}
}
