// Package store holds short-lived values keyed by string, used to remember
// redeemed challenges until they expire.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or has expired.
	ErrNotFound = errors.New("store: key not found")

	ErrCantDecode = errors.New("store: can't decode value")
	ErrCantEncode = errors.New("store: can't encode value")

	// ErrBadConfig is returned when a backend's configuration is invalid.
	ErrBadConfig = errors.New("store: configuration is invalid")

	ErrUnknownBackend = errors.New("store: unknown backend")
)

// Interface is implemented by every backend.
type Interface interface {
	Delete(ctx context.Context, key string) error

	// Get returns the value of a key assuming that value exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, error)

	Set(ctx context.Context, key string, value []byte, expiry time.Duration) error
}

type Factory interface {
	Build(ctx context.Context, config json.RawMessage) (Interface, error)
	Valid(config json.RawMessage) error
}

var (
	registry = map[string]Factory{}
	regLock  sync.RWMutex
)

func Register(name string, f Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	registry[name] = f
}

func Get(name string) (Factory, bool) {
	regLock.RLock()
	defer regLock.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Build looks up a registered backend by name and builds it.
func Build(ctx context.Context, name string, config json.RawMessage) (Interface, error) {
	f, ok := Get(name)
	if !ok {
		return nil, errors.Join(ErrUnknownBackend, errors.New(name))
	}

	if err := f.Valid(config); err != nil {
		return nil, err
	}

	return f.Build(ctx, config)
}
