// Package runner drives the generic bot control loop: batch acquisition
// (queue-first, scan-fallback, sequential wraparound last), per-item failure
// isolation, fixed-delay rate limiting, and crash-safe progress persistence.
package runner

import (
	"context"
	"encoding/json"

	"github.com/stackprep/curator/internal/types"
)

// Behavior is the pluggable capability a bot supplies to the control loop.
// One free function (Run) drives any behavior; there is no bot base type to
// inherit from.
type Behavior interface {
	// Name identifies the bot; it keys the persisted run state and appears
	// as the actor in the audit ledger.
	Name() string

	// ItemType is the work-queue type this bot consumes, or "" for bots that
	// only ever scan (pure producers).
	ItemType() types.WorkItemType

	// NeedsProcessing decides whether an item still needs this bot's work.
	// Items that are already satisfactory resolve as skipped with the
	// returned reason and never cost an oracle call.
	NeedsProcessing(ctx context.Context, q *types.Question) (bool, string)

	// ProcessItem performs the bot's work on one question. The loop invokes
	// it inside a per-item error boundary: an error (or panic) fails the
	// item, never the run.
	ProcessItem(ctx context.Context, q *types.Question) (Outcome, error)

	// DiscoverBatch is the scan-based fallback: a direct prioritized query
	// for items missing this bot's field group, used when the queue yields
	// nothing. Return an empty slice to fall through to the sequential scan.
	DiscoverBatch(ctx context.Context, limit int) ([]*types.Question, error)

	// DefaultState seeds the resumable state on a bot's first ever run.
	DefaultState() *types.BotRunState
}

// Outcome reports what a successful ProcessItem did, for counter accounting
// and the opaque result stored on the resolved work item.
type Outcome struct {
	Created int             // corpus rows created (producer bots)
	Updated int             // corpus rows updated
	Result  json.RawMessage // opaque payload stored on the work item
}
