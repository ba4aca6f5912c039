package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/snapstory/snapstory-service/internal/config"
	"github.com/snapstory/snapstory-service/internal/services/audio"
	"github.com/snapstory/snapstory-service/internal/storage"
	"github.com/snapstory/snapstory-service/internal/storage/postgres"
)

// gracePeriod keeps freshly written objects out of the sweep so an
// in-flight ingestion is never raced.
const gracePeriod = time.Hour

// AudioSweeper removes narration objects whose story was deleted, or
// that a story no longer references (e.g. a narration replaced with a
// different extension).
type AudioSweeper struct {
	storage  storage.Storage
	blobs    *audio.Store
	interval time.Duration
	logger   *slog.Logger
}

func NewAudioSweeper(store storage.Storage, blobs *audio.Store, interval time.Duration) *AudioSweeper {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &AudioSweeper{
		storage:  store,
		blobs:    blobs,
		interval: interval,
		logger:   logger,
	}
}

func (as *AudioSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(as.interval)
	defer ticker.Stop()

	as.logger.Info("Audio sweeper started", "interval", as.interval.String())

	// Run once up front, then on every tick.
	as.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			as.logger.Info("Audio sweeper stopped")
			return
		case <-ticker.C:
			as.sweep(ctx)
		}
	}
}

func (as *AudioSweeper) sweep(ctx context.Context) {
	objects, err := as.blobs.List(ctx, "audio_")
	if err != nil {
		as.logger.Error("Failed to list audio objects", "error", err.Error())
		return
	}

	removed := 0
	for _, obj := range objects {
		if time.Since(obj.LastModified) < gracePeriod {
			continue
		}

		storyID, ok := storyIDFromObjectKey(obj.Key)
		if !ok {
			continue
		}

		orphaned, err := as.isOrphan(ctx, storyID, obj.Key)
		if err != nil {
			as.logger.Error("Failed to check audio object", "object", obj.Key, "error", err.Error())
			continue
		}
		if !orphaned {
			continue
		}

		if err := as.blobs.Remove(ctx, obj.Key); err != nil {
			as.logger.Error("Failed to remove orphaned audio object", "object", obj.Key, "error", err.Error())
			continue
		}

		as.logger.Info("Removed orphaned audio object", "object", obj.Key, "story_id", storyID)
		removed++
	}

	if removed > 0 {
		as.logger.Info("Sweep finished", "scanned", len(objects), "removed", removed)
	}
}

func (as *AudioSweeper) isOrphan(ctx context.Context, storyID, objectKey string) (bool, error) {
	story, err := as.storage.GetStoryByID(ctx, storyID)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return story.AudioFile != objectKey, nil
}

// storyIDFromObjectKey extracts the story id from "audio_<id><ext>".
func storyIDFromObjectKey(key string) (string, bool) {
	name := strings.TrimSuffix(key, filepath.Ext(key))
	id := strings.TrimPrefix(name, "audio_")
	if id == "" || id == name {
		return "", false
	}
	return id, true
}

func main() {
	cfg := config.MustLoad()

	pg, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	blobs, err := audio.NewStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize audio store:", err)
	}

	sweeper := NewAudioSweeper(pg, blobs, 30*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go sweeper.Start(ctx)

	<-done
	cancel()
}
