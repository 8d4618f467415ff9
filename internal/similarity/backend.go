package similarity

import "context"

// Match is one ranked result from a backend lookup.
type Match struct {
	ID    int64
	Score float64
}

// SearchOptions bound a backend lookup.
type SearchOptions struct {
	Limit     int     // maximum matches to return (0 = backend default)
	Threshold float64 // minimum score to include
	Topic     string  // optional topic filter
}

// Backend is the optional vector-index boundary. When a backend is available
// the engine uses approximate nearest-neighbor lookup over embeddings of the
// same normalized text, with threshold semantics equivalent to the lexical
// path; when it is not, callers fall back to pairwise Jaccard.
type Backend interface {
	Index(ctx context.Context, item Item, topic string) error
	Search(ctx context.Context, text string, opts SearchOptions) ([]Match, error)
	Remove(ctx context.Context, id int64) error
}
