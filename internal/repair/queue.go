// Package repair tracks usernames whose directory projection may be stale.
package repair

import (
	"context"
	"sort"
	"sync"

	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
)

const setName = "projection_repair"

// Queue is a set of usernames awaiting reconciliation. Marking twice is a no-op.
type Queue interface {
	Mark(ctx context.Context, username string) error
	Pending(ctx context.Context, limit int) ([]string, error)
	Clear(ctx context.Context, username string) error
}

// setStore is the subset of pkg/redis.Client used by RedisQueue.
type setStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SSample(ctx context.Context, key string, count int64) ([]string, error)
	SetKey(name string) string
}

// RedisQueue keeps marks in a Redis set so every api and worker instance shares them.
type RedisQueue struct {
	store setStore
	key   string
}

func NewRedisQueue(store setStore) *RedisQueue {
	return &RedisQueue{store: store, key: store.SetKey(setName)}
}

func (q *RedisQueue) Mark(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}
	if err := q.store.SAdd(ctx, q.key, username); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "mark projection repair")
	}
	return nil
}

func (q *RedisQueue) Pending(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	members, err := q.store.SSample(ctx, q.key, int64(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "read projection repair queue")
	}
	return members, nil
}

func (q *RedisQueue) Clear(ctx context.Context, username string) error {
	if err := q.store.SRem(ctx, q.key, username); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "clear projection repair")
	}
	return nil
}

// MemoryQueue is the single-process queue used with the memory and SQL backends
// when Redis is not configured.
type MemoryQueue struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{pending: make(map[string]struct{})}
}

func (q *MemoryQueue) Mark(_ context.Context, username string) error {
	if username == "" {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[username] = struct{}{}
	return nil
}

// Pending returns up to limit usernames in lexical order.
func (q *MemoryQueue) Pending(_ context.Context, limit int) ([]string, error) {
	q.mu.Lock()
	out := make([]string, 0, len(q.pending))
	for username := range q.pending {
		out = append(out, username)
	}
	q.mu.Unlock()

	sort.Strings(out)
	if limit < 0 {
		limit = 0
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *MemoryQueue) Clear(_ context.Context, username string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, username)
	return nil
}
