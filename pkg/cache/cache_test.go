package cache_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis"
	"github.com/memes/primes/pkg/cache"
)

const testCacheLoopLimit = 10

// The noopCache should do nothing useful. This test confirms that verdicts
// can appear to be added successfully, but an attempt to recall the verdict
// will result in an empty string.
func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	cache := cache.NewNoopCache()
	if cache == nil {
		t.Error("Noop cache is nil")
	}
	for i := uint64(0); i < testCacheLoopLimit; i++ {
		key := strconv.FormatUint(1<<40+i, 10)
		actual, err := cache.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != "" {
			t.Errorf("Key %s: expected empty string received %s", key, actual)
		}
		if err = cache.SetValue(ctx, key, "prime"); err != nil {
			t.Errorf("Key %s: SetValue returned an error: %v", key, err)
		}
		actual, err = cache.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != "" {
			t.Errorf("Key %s: expected empty string received %s", key, actual)
		}
	}
}

// The RedisCache will use a Redis-like in-memory instance to cache verdicts.
// The test should confirm that a verdict can be added to the cache and
// recalled successfully.
func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mock, err := miniredis.Run()
	if err != nil {
		t.Errorf("Error running miniredis: %v", err)
	}
	defer mock.Close()
	cache := cache.NewRedisCache(ctx, mock.Addr())
	if cache == nil {
		t.Error("Redis cache is nil")
	}
	for i := uint64(0); i < testCacheLoopLimit; i++ {
		key := strconv.FormatUint(1<<40+i, 10)
		actual, err := cache.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != "" {
			t.Errorf("Key %s: expected cache miss received %s", key, actual)
		}
		expected := "composite"
		if i%2 == 1 {
			expected = "prime"
		}
		if err = cache.SetValue(ctx, key, expected); err != nil {
			t.Errorf("Key %s: SetValue returned an error: %v", key, err)
		}
		actual, err = cache.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != expected {
			t.Errorf("Key %s: expected %s received %s", key, expected, actual)
		}
	}
}
