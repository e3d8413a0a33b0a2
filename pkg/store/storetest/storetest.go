// Package storetest holds the checks every replay store backend must pass.
package storetest

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"playaviva-leads/pkg/store"
)

// Common builds a store from f and config and runs the shared checks on it.
func Common(t *testing.T, f store.Factory, config json.RawMessage) {
	t.Helper()

	if err := f.Valid(config); err != nil {
		t.Fatalf("config rejected: %v", err)
	}

	s, err := f.Build(t.Context(), config)
	if err != nil {
		t.Fatalf("can't build store: %v", err)
	}

	t.Run("redeem then forget", func(t *testing.T) {
		key := "altcha:redeemed:" + t.Name()

		if _, err := s.Get(t.Context(), key); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("fresh key: got err %v, want ErrNotFound", err)
		}

		if err := s.Set(t.Context(), key, []byte("1"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}

		got, err := s.Get(t.Context(), key)
		if err != nil {
			t.Fatalf("Get after Set: %v", err)
		}
		if !bytes.Equal(got, []byte("1")) {
			t.Errorf("Get = %q, want %q", got, "1")
		}

		if err := s.Delete(t.Context(), key); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(t.Context(), key); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("after Delete: got err %v, want ErrNotFound", err)
		}
		if err := s.Delete(t.Context(), key); err == nil {
			t.Error("deleting a missing key should fail")
		}
	})

	t.Run("overwrite keeps latest value", func(t *testing.T) {
		key := "altcha:redeemed:" + t.Name()

		for _, v := range []string{"first", "second"} {
			if err := s.Set(t.Context(), key, []byte(v), time.Minute); err != nil {
				t.Fatalf("Set(%s): %v", v, err)
			}
		}

		got, err := s.Get(t.Context(), key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != "second" {
			t.Errorf("Get = %q, want second", got)
		}
	})

	t.Run("entries expire", func(t *testing.T) {
		key := "altcha:redeemed:" + t.Name()

		if err := s.Set(t.Context(), key, []byte("1"), 100*time.Millisecond); err != nil {
			t.Fatalf("Set: %v", err)
		}

		time.Sleep(250 * time.Millisecond)

		if _, err := s.Get(t.Context(), key); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expired key: got err %v, want ErrNotFound", err)
		}
	})
}
