package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestKey(t *testing.T) {
	k1 := Key("flash4", "/a", 1)
	k2 := Key("flash4", "/a", 2)
	if k1 == k2 {
		t.Error("Different parts should produce different keys")
	}
	if k1[:7] != "flash4:" {
		t.Errorf("Key should be prefixed: %s", k1)
	}
}

func TestFileKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.txt")
	if err := os.WriteFile(path, []byte("0.1 0.2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	k1, err := FileKey("flash4", path)
	if err != nil {
		t.Fatalf("FileKey error: %v", err)
	}
	again, _ := FileKey("flash4", path)
	if k1 != again {
		t.Error("FileKey should be stable for an unchanged file")
	}

	// Size change invalidates the key.
	if err := os.WriteFile(path, []byte("0.1 0.2\n0.3 0.4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	k2, _ := FileKey("flash4", path)
	if k1 == k2 {
		t.Error("FileKey should change when the file changes")
	}

	if _, err := FileKey("flash4", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("FileKey of a missing file should fail")
	}
}

func TestSealOpen(t *testing.T) {
	sealed, err := Seal([]byte("payload"), 0)
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}
	data, ok, err := Open(sealed)
	if err != nil || !ok || string(data) != "payload" {
		t.Errorf("Open = (%q, %v, %v), want (payload, true, nil)", data, ok, err)
	}

	tests := []struct {
		name   string
		sealed []byte
	}{
		{"garbage", []byte("not json")},
		{"bad checksum", []byte(`{"data":"cGF5bG9hZA==","checksum":"00"}`)},
		{"no checksum", []byte(`{"data":"cGF5bG9hZA=="}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Open(tt.sealed); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Open error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestSealExpired(t *testing.T) {
	sealed, _ := Seal([]byte("x"), time.Nanosecond)
	time.Sleep(time.Millisecond)
	if _, ok, err := Open(sealed); ok || err != nil {
		t.Errorf("Open expired = (%v, %v), want (false, nil)", ok, err)
	}
}
