package overpass

import (
	"context"
	"testing"
)

func TestSQLiteCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cache, err := OpenSQLiteCache(dir)
	if err != nil {
		t.Fatalf("OpenSQLiteCache() error = %v", err)
	}

	if _, ok, err := cache.Get(ctx, "1,2"); err != nil || ok {
		t.Fatalf("Get() on empty cache = ok %v, err %v", ok, err)
	}

	if err := cache.Set(ctx, "1,2", []byte(`[]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set(ctx, "1,2", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, ok, err := cache.Get(ctx, "1,2")
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if string(got) != `[{"id":1}]` {
		t.Errorf("Get() = %s, want the overwritten value", got)
	}

	n, err := cache.Len(ctx)
	if err != nil || n != 1 {
		t.Errorf("Len() = %d, %v; want 1", n, err)
	}

	if err := cache.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Entries survive reopening.
	reopened, err := OpenSQLiteCache(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if _, ok, _ := reopened.Get(ctx, "1,2"); !ok {
		t.Error("entry missing after reopen")
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	value := []byte("abc")
	_ = cache.Set(ctx, "k", value)
	value[0] = 'x'

	got, ok, _ := cache.Get(ctx, "k")
	if !ok || string(got) != "abc" {
		t.Errorf("Get() = %q, %v; want a copy of the stored value", got, ok)
	}
}
