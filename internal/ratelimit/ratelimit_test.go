package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		DB:   0,
	})

	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		t.Fatalf("Failed to connect to test Redis: %v", err)
	}

	cleanup := func() {
		redisClient.Close()
		mr.Close()
	}

	return redisClient, cleanup
}

func TestTokenBucket_Allow(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, 5, 5)

	ctx := context.Background()
	userID := "author_1"
	action := "create_story"

	for i := 0; i < 5; i++ {
		allowed, err := bucket.Allow(ctx, userID, action)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}

	allowed, err := bucket.Allow(ctx, userID, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("Expected request to be denied after limit reached")
	}

	remaining, err := bucket.GetRemaining(ctx, userID, action)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("Expected 0 remaining tokens, got %d", remaining)
	}
}

func TestTokenBucket_IsolatesUsersAndActions(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, 1, 1)
	ctx := context.Background()

	if allowed, _ := bucket.Allow(ctx, "author_1", "upload_audio"); !allowed {
		t.Fatal("Expected first request to be allowed")
	}
	if allowed, _ := bucket.Allow(ctx, "author_1", "upload_audio"); allowed {
		t.Fatal("Expected second request to be denied")
	}

	// Another user, and another action for the same user, have their own buckets.
	if allowed, _ := bucket.Allow(ctx, "author_2", "upload_audio"); !allowed {
		t.Fatal("Expected other user's request to be allowed")
	}
	if allowed, _ := bucket.Allow(ctx, "author_1", "create_story"); !allowed {
		t.Fatal("Expected other action to be allowed")
	}
}

func TestTokenBucket_Reset(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, 1, 1)
	ctx := context.Background()

	if allowed, _ := bucket.Allow(ctx, "author_1", "upload_audio"); !allowed {
		t.Fatal("Expected first request to be allowed")
	}
	if allowed, _ := bucket.Allow(ctx, "author_1", "upload_audio"); allowed {
		t.Fatal("Expected second request to be denied")
	}

	if err := bucket.Reset(ctx, "author_1", "upload_audio"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if allowed, _ := bucket.Allow(ctx, "author_1", "upload_audio"); !allowed {
		t.Fatal("Expected request to be allowed after reset")
	}
}

func TestTokenBucket_Capacity(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, 20, 20)
	if bucket.Capacity() != 20 {
		t.Fatalf("Expected capacity 20, got %d", bucket.Capacity())
	}
}
