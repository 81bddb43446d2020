package storage

import (
	"context"
	"sync"
)

// Memory keeps shards in process memory. Values are stored encoded so that
// callers never share mutable state with the store.
type Memory struct {
	mu     sync.RWMutex
	spaces map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{spaces: make(map[string]map[string][]byte)}
}

func (m *Memory) Shard(namespace string) Shard {
	return &memoryShard{parent: m, namespace: namespace}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

type memoryShard struct {
	parent    *Memory
	namespace string
}

func (s *memoryShard) Get(ctx context.Context, key string, dest any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable(err, "memory get")
	}
	s.parent.mu.RLock()
	raw, ok := s.parent.spaces[s.namespace][key]
	s.parent.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := decode(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *memoryShard) Put(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err, "memory put")
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	space, ok := s.parent.spaces[s.namespace]
	if !ok {
		space = make(map[string][]byte)
		s.parent.spaces[s.namespace] = space
	}
	space[key] = raw
	return nil
}

func (s *memoryShard) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err, "memory delete")
	}
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	space := s.parent.spaces[s.namespace]
	for _, key := range keys {
		delete(space, key)
	}
	if len(space) == 0 {
		delete(s.parent.spaces, s.namespace)
	}
	return nil
}
