package similarity

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "curator:vec:"

// RedisBackend stores hashed-token embeddings in Redis and answers
// nearest-neighbor lookups with a client-side cosine scan. It exists so
// overlapping bot runs on different hosts share one index instead of each
// re-reading the whole corpus.
type RedisBackend struct {
	client *redis.Client
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend connects to Redis at addr. An unreachable server is
// reported here, at construction, so the caller can degrade to pure lexical
// similarity for the rest of the run.
func NewRedisBackend(ctx context.Context, addr, password string, db int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("similarity backend unreachable at %s: %w", addr, err)
	}
	return &RedisBackend{client: client}, nil
}

// Index stores the item's embedding under its corpus id.
func (r *RedisBackend) Index(ctx context.Context, item Item, topic string) error {
	vec, err := json.Marshal(Vectorize(item.Text))
	if err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}
	key := redisKeyPrefix + strconv.FormatInt(item.ID, 10)
	if err := r.client.HSet(ctx, key, map[string]interface{}{
		"topic":        topic,
		"vec":          string(vec),
		"last_updated": item.LastUpdated.UTC().Unix(),
	}).Err(); err != nil {
		return fmt.Errorf("failed to index item %d: %w", item.ID, err)
	}
	return nil
}

// Search embeds the query text and returns ranked matches meeting the
// threshold. The scan is client-side; corpus sizes here are thousands of
// items, not millions.
func (r *RedisBackend) Search(ctx context.Context, text string, opts SearchOptions) ([]Match, error) {
	query := Vectorize(text)

	var matches []Match
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 200).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		for _, key := range keys {
			fields, err := r.client.HGetAll(ctx, key).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to load indexed item %s: %w", key, err)
			}
			if opts.Topic != "" && fields["topic"] != opts.Topic {
				continue
			}
			var vec []float32
			if err := json.Unmarshal([]byte(fields["vec"]), &vec); err != nil {
				// Skip entries written by an incompatible build
				continue
			}
			score := Cosine(query, vec)
			if score < opts.Threshold {
				continue
			}
			id, err := strconv.ParseInt(strings.TrimPrefix(key, redisKeyPrefix), 10, 64)
			if err != nil {
				continue
			}
			matches = append(matches, Match{ID: id, Score: score})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}

// Remove deletes an item from the index.
func (r *RedisBackend) Remove(ctx context.Context, id int64) error {
	key := redisKeyPrefix + strconv.FormatInt(id, 10)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to remove item %d from index: %w", id, err)
	}
	return nil
}

// Close releases the Redis connection.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
