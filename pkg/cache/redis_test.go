package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, "")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t)

	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Fatalf("empty Get = (%v, %v), want (false, nil)", hit, err)
	}
	if err := c.Set(ctx, "k", []byte("table"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists(DefaultRedisPrefix + "k") {
		t.Fatal("key should be stored under the default prefix")
	}
	if ttl := mr.TTL(DefaultRedisPrefix + "k"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "table" {
		t.Fatalf("Get = (%q, %v, %v), want (table, true, nil)", data, hit, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("Get after server expiry should miss")
	}
}

func TestRedisCacheCorruptIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t)

	if err := mr.Set(DefaultRedisPrefix+"k", "garbage"); err != nil {
		t.Fatal(err)
	}
	_, hit, err := c.Get(ctx, "k")
	if err != nil || hit {
		t.Errorf("corrupt Get = (%v, %v), want (false, nil)", hit, err)
	}
	if mr.Exists(DefaultRedisPrefix + "k") {
		t.Error("corrupt entry should be deleted")
	}
}

func TestRedisCacheClear(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t)

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	if err := mr.Set("other:key", "keep"); err != nil {
		t.Fatal(err)
	}

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d, want 2", n)
	}
	if !mr.Exists("other:key") {
		t.Error("Clear should only remove prefixed keys")
	}
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisCache(ctx, RedisOptions{Addr: addr}); err == nil {
		t.Error("NewRedisCache should fail when the server is down")
	}
}
