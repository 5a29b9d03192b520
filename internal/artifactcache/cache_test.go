package artifactcache_test

import (
	"context"
	"path/filepath"
	"testing"

	"papermill/internal/artifactcache"
)

func openStore(t *testing.T) *artifactcache.Store {
	t.Helper()
	store, err := artifactcache.Open(filepath.Join(t.TempDir(), "cache", "artifacts.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetMissReturnsFalse(t *testing.T) {
	store := openStore(t)
	_, ok, err := store.Get(context.Background(), artifactcache.Checksum([]byte("absent")), "pdf")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ok {
		t.Fatal("expected miss for absent checksum")
	}
}

func TestPutThenGetRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := artifactcache.Checksum([]byte("input-doc"))

	if err := store.Put(ctx, key, "pdf", []byte("artifact-bytes")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	artifact, ok, err := store.Get(ctx, key, "pdf")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if string(artifact) != "artifact-bytes" {
		t.Fatalf("unexpected artifact %q", artifact)
	}

	// Same input, different format, is a distinct key.
	if _, ok, _ := store.Get(ctx, key, "txt"); ok {
		t.Fatal("different format must not hit")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := artifactcache.Checksum([]byte("input-doc"))

	if err := store.Put(ctx, key, "pdf", []byte("v1")); err != nil {
		t.Fatalf("Put v1: %v", err)
	}
	if err := store.Put(ctx, key, "pdf", []byte("v2")); err != nil {
		t.Fatalf("Put v2: %v", err)
	}
	artifact, ok, err := store.Get(ctx, key, "pdf")
	if err != nil || !ok {
		t.Fatalf("Get after replace: ok=%v err=%v", ok, err)
	}
	if string(artifact) != "v2" {
		t.Fatalf("expected replacement, got %q", artifact)
	}
}

func TestPruneKeepsMostRecentlyUsed(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	keys := make([]string, 5)
	for i := range keys {
		keys[i] = artifactcache.Checksum([]byte{byte(i)})
		if err := store.Put(ctx, keys[i], "pdf", []byte("x")); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	// Touch the first key so it outlives pruning.
	if _, ok, err := store.Get(ctx, keys[0], "pdf"); err != nil || !ok {
		t.Fatalf("touch: ok=%v err=%v", ok, err)
	}

	removed, err := store.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune returned error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 pruned, got %d", removed)
	}
	if _, ok, _ := store.Get(ctx, keys[0], "pdf"); !ok {
		t.Fatal("recently used entry should survive pruning")
	}
}

func TestChecksumIsStable(t *testing.T) {
	a := artifactcache.Checksum([]byte("same"))
	b := artifactcache.Checksum([]byte("same"))
	c := artifactcache.Checksum([]byte("different"))
	if a != b {
		t.Fatal("checksum must be deterministic")
	}
	if a == c {
		t.Fatal("different inputs must not collide")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}
