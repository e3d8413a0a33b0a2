package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"playaviva-leads/pkg/store"
)

type factory struct{}

func (factory) Build(ctx context.Context, _ json.RawMessage) (store.Interface, error) {
	return New(ctx), nil
}

func (factory) Valid(json.RawMessage) error { return nil }

func init() {
	store.Register("memory", factory{})
}

type entry struct {
	value   []byte
	expires time.Time
}

type impl struct {
	mu      sync.Mutex
	entries map[string]entry
}

func (i *impl) Delete(_ context.Context, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.entries[key]; !ok {
		return fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}
	delete(i.entries, key)
	return nil
}

func (i *impl) Get(_ context.Context, key string) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.entries[key]
	if !ok || time.Now().After(e.expires) {
		delete(i.entries, key)
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return e.value, nil
}

func (i *impl) Set(_ context.Context, key string, value []byte, expiry time.Duration) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries[key] = entry{value: value, expires: time.Now().Add(expiry)}
	return nil
}

func (i *impl) cleanup() {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	for k, e := range i.entries {
		if now.After(e.expires) {
			delete(i.entries, k)
		}
	}
}

func (i *impl) cleanupThread(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			i.cleanup()
		}
	}
}

// New creates an in-memory store. Redemptions are not shared between
// instances of the service.
func New(ctx context.Context) store.Interface {
	result := &impl{entries: map[string]entry{}}

	go result.cleanupThread(ctx)

	return result
}
