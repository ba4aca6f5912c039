package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/snapstory/snapstory-service/internal/config"
	"github.com/snapstory/snapstory-service/internal/ratelimit"
	"github.com/snapstory/snapstory-service/internal/utils/response"
)

// Rate-limited actions.
const (
	ActionCreateStory = "create_story"
	ActionUploadAudio = "upload_audio"
)

// RateLimiter holds per-action token buckets. Budgets come from
// configuration rather than package-level state.
type RateLimiter struct {
	limiters map[string]*ratelimit.TokenBucket
}

func NewRateLimiter(redisClient *redis.Client, cfg config.RateLimit) *RateLimiter {
	return &RateLimiter{
		limiters: map[string]*ratelimit.TokenBucket{
			ActionCreateStory: ratelimit.NewTokenBucket(redisClient, cfg.CreateStory, cfg.CreateStory),
			ActionUploadAudio: ratelimit.NewTokenBucket(redisClient, cfg.UploadAudio, cfg.UploadAudio),
		},
	}
}

// Limit wraps a handler with the named action's token bucket. Requests
// by unauthenticated callers never reach the bucket; auth middleware
// runs first.
func (rl *RateLimiter) Limit(action string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
				errors.New("user not authenticated")))
			return
		}

		limiter, exists := rl.limiters[action]
		if !exists {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := limiter.Allow(r.Context(), userID, action)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
				fmt.Errorf("rate limit check failed: %w", err)))
			return
		}

		remaining, _ := limiter.GetRemaining(r.Context(), userID, action)
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limiter.Capacity(), 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", "60")

		if !allowed {
			response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(
				errors.New("rate limit exceeded")))
			return
		}

		next.ServeHTTP(w, r)
	})
}
