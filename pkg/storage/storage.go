// Package storage provides namespaced key/value shards. Every account owns
// one namespace and the directory owns another; callers serialize access to
// a namespace themselves (see pkg/actor).
package storage

import (
	"context"
	"encoding/json"
	"errors"

	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
)

// ErrCorrupt marks a stored value that no longer decodes.
var ErrCorrupt = errors.New("storage: corrupt value")

// Shard is the key/value view over one namespace.
type Shard interface {
	// Get decodes the value at key into dest and reports whether it existed.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Put(ctx context.Context, key string, value any) error
	// Delete removes keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// Backend hands out shards and owns the underlying connection.
type Backend interface {
	Shard(namespace string) Shard
	Ping(ctx context.Context) error
	Close() error
}

func encode(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode stored value")
	}
	return raw, nil
}

func decode(raw []byte, dest any) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, errors.Join(ErrCorrupt, err), "decode stored value")
	}
	return nil
}

func unavailable(err error, op string) error {
	return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, op)
}
