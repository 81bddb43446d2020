// Package actor serializes work per key so that each key behaves like a
// single-threaded actor while distinct keys proceed in parallel.
package actor

import (
	"context"
	"sync"
)

type slot struct {
	sem  chan struct{}
	refs int
}

// Keyed hands out one exclusive turn per key at a time. Slots are
// reference counted and dropped once no caller holds or waits on them.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]*slot)}
}

// Lock blocks until the caller owns key or ctx is done. The returned
// function releases the turn and must be called exactly once.
func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	s := k.acquireSlot(key)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		k.releaseSlot(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.sem
			k.releaseSlot(key, s)
		})
	}, nil
}

// Do runs fn while holding the turn for key.
func (k *Keyed) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock, err := k.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx)
}

// Len reports how many keys currently have holders or waiters.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

func (k *Keyed) acquireSlot(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *Keyed) releaseSlot(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}
