package server

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// TestRedisStoreAllow exercises the shared login counter against a real
// Redis. Set TUBEFLOW_TEST_REDIS_ADDR to run it.
func TestRedisStoreAllow(t *testing.T) {
	addr := os.Getenv("TUBEFLOW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TUBEFLOW_TEST_REDIS_ADDR not set")
	}

	store := newRedisStore(addr, os.Getenv("TUBEFLOW_TEST_REDIS_PASSWORD"), 2*time.Second)
	key := fmt.Sprintf("tubeflow:test:login:%d", time.Now().UnixNano())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := store.Allow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow attempt %d: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	allowed, retryAfter, err := store.Allow(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if allowed {
		t.Fatal("expected fourth attempt to be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("unexpected retry-after %v", retryAfter)
	}
}
