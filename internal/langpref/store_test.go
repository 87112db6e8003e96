package langpref

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Get(ctx, "U1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, "U1", "ko"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lang, err := store.Get(ctx, "U1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lang != "ko" {
		t.Fatalf("unexpected tag: %s", lang)
	}

	// Last write wins.
	if err := store.Set(ctx, "U1", "fr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lang, _ := store.Get(ctx, "U1"); lang != "fr" {
		t.Fatalf("unexpected tag after overwrite: %s", lang)
	}
}

func TestMemoryStoreRejectsEmptyValues(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Set(context.Background(), "", "ko"); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if err := store.Set(context.Background(), "U1", " "); err == nil {
		t.Fatal("expected error for empty tag")
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.Set(ctx, "U1", "ko")
				_, _ = store.Get(ctx, "U1")
			}
		}()
	}
	wg.Wait()

	lang, err := store.Get(ctx, "U1")
	if err != nil || lang != "ko" {
		t.Fatalf("unexpected final state: %q, %v", lang, err)
	}
}
