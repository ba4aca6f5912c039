package stories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/snapstory/snapstory-service/internal/events"
	"github.com/snapstory/snapstory-service/internal/storage"
	"github.com/snapstory/snapstory-service/internal/types"
)

// DefaultMaxAudioSize is the narration upload ceiling (25 MB).
const DefaultMaxAudioSize = 25 << 20

// allowedAudioExtensions is the single allow-list for narration files.
// The declared content type must additionally carry the "audio" prefix.
var allowedAudioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".ogg": true,
	".m4a": true,
}

// BlobStore is the audio file storage the ingestion workflow writes to.
type BlobStore interface {
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
}

// AudioUpload is one uploaded narration file as received from the
// multipart request.
type AudioUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Service implements the story lifecycle: owner-scoped CRUD plus the
// audio ingestion workflow. Every operation takes the authenticated
// requester's identity; authentication itself happens upstream.
type Service struct {
	storage      storage.Storage
	blobs        BlobStore
	events       events.Publisher
	validate     *validator.Validate
	maxAudioSize int64
}

// NewService wires the story service. maxAudioSize <= 0 selects the
// default 25 MB ceiling.
func NewService(store storage.Storage, blobs BlobStore, publisher events.Publisher, maxAudioSize int64) *Service {
	if maxAudioSize <= 0 {
		maxAudioSize = DefaultMaxAudioSize
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &Service{
		storage:      store,
		blobs:        blobs,
		events:       publisher,
		validate:     validator.New(),
		maxAudioSize: maxAudioSize,
	}
}

// authorize is the ownership guard: only the author may mutate or delete
// a story. Callers establish existence first; ownership is undefined for
// records that were never fetched.
func authorize(story types.Story, requesterID string) error {
	if story.AuthorID != requesterID {
		return ErrNotAuthor
	}
	return nil
}

// List returns the requester's own stories, newest first.
func (s *Service) List(ctx context.Context, requesterID string) ([]types.Story, error) {
	stories, err := s.storage.GetStoriesByAuthor(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

// Create validates the supplied fields and persists a new story. The
// author is always the requester; there is no way to create a story on
// someone else's behalf.
func (s *Service) Create(ctx context.Context, requesterID string, req types.StoryCreateRequest) (types.Story, error) {
	if err := s.validate.Struct(req); err != nil {
		return types.Story{}, err
	}

	emotion := req.AudioEmotion
	if emotion == "" {
		emotion = types.EmotionNeutral
	}

	now := time.Now().UTC()
	story := types.Story{
		ID:           uuid.New().String(),
		Title:        req.Title,
		Content:      req.Content,
		Genre:        req.Genre,
		ReadingMode:  types.ReadingModeText,
		AudioEmotion: emotion,
		IsPublic:     req.IsPublic,
		AuthorID:     requesterID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.CreateStory(ctx, story); err != nil {
		return types.Story{}, fmt.Errorf("failed to create story: %w", err)
	}

	s.events.PublishStoryCreated(requesterID, story)

	return story, nil
}

// Get fetches one of the requester's own stories. Ownership is folded
// into the lookup: a story owned by someone else is not found, not
// denied.
func (s *Service) Get(ctx context.Context, id, requesterID string) (types.Story, error) {
	story, err := s.storage.GetStoryByIDAndAuthor(ctx, id, requesterID)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Story{}, ErrStoryNotFound
	}
	if err != nil {
		return types.Story{}, fmt.Errorf("failed to get story: %w", err)
	}
	return story, nil
}

// Update applies the supplied fields to an existing story. Existence is
// checked before ownership, and the merged record is re-validated in
// full before it is persisted.
func (s *Service) Update(ctx context.Context, id, requesterID string, req types.StoryUpdateRequest) (types.Story, error) {
	story, err := s.storage.GetStoryByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Story{}, ErrStoryNotFound
	}
	if err != nil {
		return types.Story{}, fmt.Errorf("failed to fetch story: %w", err)
	}

	if err := authorize(story, requesterID); err != nil {
		return types.Story{}, err
	}

	if req.Title != nil {
		story.Title = *req.Title
	}
	if req.Content != nil {
		story.Content = *req.Content
	}
	if req.Genre != nil {
		story.Genre = *req.Genre
	}
	if req.AudioEmotion != nil {
		story.AudioEmotion = *req.AudioEmotion
	}
	if req.IsPublic != nil {
		story.IsPublic = *req.IsPublic
	}

	if err := s.validate.Struct(story); err != nil {
		return types.Story{}, err
	}

	story.UpdatedAt = time.Now().UTC()
	if err := s.storage.UpdateStory(ctx, story); err != nil {
		return types.Story{}, fmt.Errorf("failed to update story: %w", err)
	}

	return story, nil
}

// Delete removes one of the requester's stories. Same existence-then-
// ownership sequence as Update.
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	story, err := s.storage.GetStoryByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrStoryNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to fetch story: %w", err)
	}

	if err := authorize(story, requesterID); err != nil {
		return err
	}

	if err := s.storage.DeleteStory(ctx, story.ID); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}

	return nil
}

// UploadAudio runs the narration ingestion workflow. Each gate is hard:
// a failure anywhere leaves the story record and the blob store exactly
// as they were. Only a completed ingestion moves the story's reading
// mode to audio.
func (s *Service) UploadAudio(ctx context.Context, id, requesterID string, upload *AudioUpload) (types.Story, error) {
	story, err := s.storage.GetStoryByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Story{}, ErrStoryNotFound
	}
	if err != nil {
		return types.Story{}, fmt.Errorf("failed to fetch story: %w", err)
	}

	if err := authorize(story, requesterID); err != nil {
		return types.Story{}, err
	}

	if upload == nil || upload.Content == nil {
		return types.Story{}, &BadRequestError{Reason: "no file supplied"}
	}

	ext, err := validateAudioUpload(upload.ContentType, upload.Filename, upload.Size, s.maxAudioSize)
	if err != nil {
		return types.Story{}, err
	}

	// One narration per story: the object name is derived from the story
	// id, so a re-upload overwrites the previous narration and can never
	// collide with another story's file.
	objectName := fmt.Sprintf("audio_%s%s", story.ID, ext)

	if err := s.blobs.Put(ctx, objectName, upload.Content, upload.Size, upload.ContentType); err != nil {
		return types.Story{}, fmt.Errorf("failed to store audio file: %w", err)
	}

	if err := s.storage.UpdateStoryAudio(ctx, story.ID, objectName); err != nil {
		return types.Story{}, fmt.Errorf("failed to update story audio: %w", err)
	}

	story.AudioFile = objectName
	story.ReadingMode = types.ReadingModeAudio
	story.UpdatedAt = time.Now().UTC()

	slog.Info("Audio narration ingested",
		slog.String("story_id", story.ID),
		slog.String("audio_file", objectName))

	s.events.PublishAudioReady(requesterID, story.ID, objectName)

	return story, nil
}

// validateAudioUpload is the single pass/fail check for narration
// uploads: declared media type prefix, filename extension allow-list and
// size ceiling. Returns the normalized extension on success.
func validateAudioUpload(contentType, filename string, size, maxSize int64) (string, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "audio") {
		return "", &BadRequestError{Reason: "please upload an audio file"}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedAudioExtensions[ext] {
		return "", &BadRequestError{Reason: "only MP3, WAV, OGG and M4A files are accepted"}
	}

	if size <= 0 {
		return "", &BadRequestError{Reason: "uploaded file is empty"}
	}
	if size > maxSize {
		return "", &BadRequestError{Reason: fmt.Sprintf("audio file exceeds the %d MB limit", maxSize/(1<<20))}
	}

	return ext, nil
}
