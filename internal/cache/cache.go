package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/snapstory/snapstory-service/internal/storage"
	"github.com/snapstory/snapstory-service/internal/types"
)

// Service wraps a Storage with Redis read-through caching. Writes pass
// through and invalidate; reads fall back to the inner storage on any
// Redis error, so a dead Redis degrades to uncached reads.
type Service struct {
	storage.Storage
	redis *redis.Client
}

func NewService(store storage.Storage, redisClient *redis.Client) *Service {
	return &Service{
		Storage: store,
		redis:   redisClient,
	}
}

// Cache key patterns
const (
	AuthorStoriesKey = "stories:author:%s" // stories:author:<authorID>
	StoryKey         = "story:%s"          // story:<storyID>
)

// Cache durations
const (
	AuthorStoriesCacheDuration = 45 * time.Second // hot dashboard list
	StoryCacheDuration         = 10 * time.Minute // individual stories
)

// GetStoriesByAuthor returns the cached author list or fetches from storage.
func (c *Service) GetStoriesByAuthor(ctx context.Context, authorID string) ([]types.Story, error) {
	key := fmt.Sprintf(AuthorStoriesKey, authorID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var stories []types.Story
		if err := json.Unmarshal([]byte(cached), &stories); err == nil {
			return stories, nil
		}
	}

	stories, err := c.Storage.GetStoriesByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(stories)
	c.redis.Set(ctx, key, data, AuthorStoriesCacheDuration)

	return stories, nil
}

// GetStoryByID returns the cached story or fetches from storage.
func (c *Service) GetStoryByID(ctx context.Context, id string) (types.Story, error) {
	key := fmt.Sprintf(StoryKey, id)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var story types.Story
		if err := json.Unmarshal([]byte(cached), &story); err == nil {
			return story, nil
		}
	}

	story, err := c.Storage.GetStoryByID(ctx, id)
	if err != nil {
		return story, err
	}

	data, _ := json.Marshal(story)
	c.redis.Set(ctx, key, data, StoryCacheDuration)

	return story, nil
}

// GetStoryByIDAndAuthor reuses the per-story cache entry and applies the
// ownership scope on top of it. A cached story owned by someone else is
// reported as not found, same as the storage query would.
func (c *Service) GetStoryByIDAndAuthor(ctx context.Context, id, authorID string) (types.Story, error) {
	story, err := c.GetStoryByID(ctx, id)
	if err != nil {
		return types.Story{}, err
	}
	if story.AuthorID != authorID {
		return types.Story{}, storage.ErrNotFound
	}
	return story, nil
}

// CreateStory passes through and invalidates the author's list.
func (c *Service) CreateStory(ctx context.Context, story types.Story) error {
	if err := c.Storage.CreateStory(ctx, story); err != nil {
		return err
	}
	c.invalidate(ctx, story.ID, story.AuthorID)
	return nil
}

// UpdateStory passes through and invalidates both cache entries.
func (c *Service) UpdateStory(ctx context.Context, story types.Story) error {
	if err := c.Storage.UpdateStory(ctx, story); err != nil {
		return err
	}
	c.invalidate(ctx, story.ID, story.AuthorID)
	return nil
}

// UpdateStoryAudio passes through and invalidates both cache entries.
// The author is looked up first since the call carries only the story id.
func (c *Service) UpdateStoryAudio(ctx context.Context, id, audioFile string) error {
	authorID := c.lookupAuthor(ctx, id)
	if err := c.Storage.UpdateStoryAudio(ctx, id, audioFile); err != nil {
		return err
	}
	c.invalidate(ctx, id, authorID)
	return nil
}

// DeleteStory passes through and invalidates both cache entries.
func (c *Service) DeleteStory(ctx context.Context, id string) error {
	authorID := c.lookupAuthor(ctx, id)
	if err := c.Storage.DeleteStory(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id, authorID)
	return nil
}

func (c *Service) lookupAuthor(ctx context.Context, storyID string) string {
	story, err := c.GetStoryByID(ctx, storyID)
	if err != nil {
		return ""
	}
	return story.AuthorID
}

func (c *Service) invalidate(ctx context.Context, storyID, authorID string) {
	keys := []string{fmt.Sprintf(StoryKey, storyID)}
	if authorID != "" {
		keys = append(keys, fmt.Sprintf(AuthorStoriesKey, authorID))
	}
	c.redis.Del(ctx, keys...)
}
