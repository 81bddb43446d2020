package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgredis "github.com/openbiocard/openbiocard-backend/pkg/redis"
)

type fakeKV struct {
	mu       sync.Mutex
	data     map[string]string
	failWith error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	v, ok := f.data[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeKV) ShardKey(namespace, key string) string {
	return "obc:shard:" + namespace + ":" + key
}

func (f *fakeKV) Ping(context.Context) error { return f.failWith }

func (f *fakeKV) Close() error { return nil }
