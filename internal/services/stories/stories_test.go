package stories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/snapstory/snapstory-service/internal/storage"
	"github.com/snapstory/snapstory-service/internal/types"
)

// fakeStorage is an in-memory Storage for service tests.
type fakeStorage struct {
	stories map[string]types.Story
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{stories: make(map[string]types.Story)}
}

func (f *fakeStorage) CreateStory(_ context.Context, story types.Story) error {
	f.stories[story.ID] = story
	return nil
}

func (f *fakeStorage) GetStoriesByAuthor(_ context.Context, authorID string) ([]types.Story, error) {
	var out []types.Story
	for _, s := range f.stories {
		if s.AuthorID == authorID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStorage) GetStoryByID(_ context.Context, id string) (types.Story, error) {
	s, ok := f.stories[id]
	if !ok {
		return types.Story{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStorage) GetStoryByIDAndAuthor(_ context.Context, id, authorID string) (types.Story, error) {
	s, ok := f.stories[id]
	if !ok || s.AuthorID != authorID {
		return types.Story{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStorage) UpdateStory(_ context.Context, story types.Story) error {
	if _, ok := f.stories[story.ID]; !ok {
		return storage.ErrNotFound
	}
	f.stories[story.ID] = story
	return nil
}

func (f *fakeStorage) UpdateStoryAudio(_ context.Context, id, audioFile string) error {
	s, ok := f.stories[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.AudioFile = audioFile
	s.ReadingMode = types.ReadingModeAudio
	f.stories[id] = s
	return nil
}

func (f *fakeStorage) DeleteStory(_ context.Context, id string) error {
	if _, ok := f.stories[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.stories, id)
	return nil
}

func (f *fakeStorage) CreateUser(context.Context, string, string, string) error {
	return nil
}

func (f *fakeStorage) GetUserByEmail(context.Context, string) (string, string, error) {
	return "", "", storage.ErrNotFound
}

// fakeBlobStore records written objects and can be told to fail.
type fakeBlobStore struct {
	objects map[string][]byte
	failPut bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(_ context.Context, objectName string, r io.Reader, _ int64, _ string) error {
	if f.failPut {
		return errors.New("blob store unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[objectName] = data
	return nil
}

func newTestService() (*Service, *fakeStorage, *fakeBlobStore) {
	store := newFakeStorage()
	blobs := newFakeBlobStore()
	return NewService(store, blobs, nil, 0), store, blobs
}

func validCreateRequest() types.StoryCreateRequest {
	return types.StoryCreateRequest{
		Title:   "T",
		Content: "C",
		Genre:   types.GenreFantasy,
	}
}

func mp3Upload(size int64) *AudioUpload {
	return &AudioUpload{
		Filename:    "narration.mp3",
		ContentType: "audio/mpeg",
		Size:        size,
		Content:     bytes.NewReader([]byte("mp3-bytes")),
	}
}

func TestCreateStory_Defaults(t *testing.T) {
	svc, _, _ := newTestService()

	story, err := svc.Create(context.Background(), "user1", validCreateRequest())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if story.ID == "" {
		t.Fatal("Expected a generated story ID")
	}
	if story.AuthorID != "user1" {
		t.Fatalf("Expected author user1, got %q", story.AuthorID)
	}
	if story.ReadingMode != types.ReadingModeText {
		t.Fatalf("Expected reading mode text, got %q", story.ReadingMode)
	}
	if story.AudioEmotion != types.EmotionNeutral {
		t.Fatalf("Expected neutral emotion, got %q", story.AudioEmotion)
	}
	if story.IsPublic {
		t.Fatal("Expected new story to be private")
	}
	if story.AudioFile != "" {
		t.Fatal("Expected no audio file on a new story")
	}
}

func TestCreateStory_MissingTitle(t *testing.T) {
	svc, store, _ := newTestService()

	_, err := svc.Create(context.Background(), "user1", types.StoryCreateRequest{
		Content: "C",
		Genre:   types.GenreFantasy,
	})

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("Expected validation errors, got %v", err)
	}
	if len(store.stories) != 0 {
		t.Fatal("Expected nothing persisted on validation failure")
	}
}

func TestCreateStory_InvalidGenre(t *testing.T) {
	svc, _, _ := newTestService()

	req := validCreateRequest()
	req.Genre = "Cooking"

	var ve validator.ValidationErrors
	if _, err := svc.Create(context.Background(), "user1", req); !errors.As(err, &ve) {
		t.Fatalf("Expected validation errors, got %v", err)
	}
}

func TestCreateStory_TitleTooLong(t *testing.T) {
	svc, _, _ := newTestService()

	req := validCreateRequest()
	req.Title = strings.Repeat("x", 101)

	var ve validator.ValidationErrors
	if _, err := svc.Create(context.Background(), "user1", req); !errors.As(err, &ve) {
		t.Fatalf("Expected validation errors, got %v", err)
	}
}

func TestCreateStory_AuthorCannotBeSupplied(t *testing.T) {
	svc, _, _ := newTestService()

	// A caller smuggling an author field gets it dropped on decode: the
	// request type has no author, so the requester always wins.
	var req types.StoryCreateRequest
	body := `{"title":"T","content":"C","genre":"Fantasy","author":"someone-else"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}

	story, err := svc.Create(context.Background(), "user1", req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if story.AuthorID != "user1" {
		t.Fatalf("Expected author user1, got %q", story.AuthorID)
	}
}

func TestList_ScopedToRequester(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a1, _ := svc.Create(ctx, "userA", validCreateRequest())
	a2, _ := svc.Create(ctx, "userA", validCreateRequest())
	if _, err := svc.Create(ctx, "userB", validCreateRequest()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, err := svc.List(ctx, "userA")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 stories for userA, got %d", len(got))
	}
	for _, s := range got {
		if s.AuthorID != "userA" {
			t.Fatalf("List leaked a story owned by %q", s.AuthorID)
		}
		if s.ID != a1.ID && s.ID != a2.ID {
			t.Fatalf("List returned unexpected story %q", s.ID)
		}
	}
}

func TestGet_OwnershipFoldedIntoLookup(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	// A non-owner sees not-found, never a denial, on the read path.
	_, err := svc.Get(ctx, story.ID, "intruder")
	if !errors.Is(err, ErrStoryNotFound) {
		t.Fatalf("Expected ErrStoryNotFound for non-owner read, got %v", err)
	}

	got, err := svc.Get(ctx, story.ID, "owner")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.ID != story.ID {
		t.Fatalf("Expected story %q, got %q", story.ID, got.ID)
	}
}

func TestGet_IdempotentRead(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	first, err := svc.Get(ctx, story.ID, "owner")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := svc.Get(ctx, story.ID, "owner")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("Expected identical results from back-to-back reads")
	}
}

func TestUpdate_NotAuthor(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	title := "X"
	_, err := svc.Update(ctx, story.ID, "intruder", types.StoryUpdateRequest{Title: &title})
	if !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("Expected ErrNotAuthor, got %v", err)
	}

	if got := store.stories[story.ID]; got.Title != "T" {
		t.Fatalf("Expected story unchanged, title is %q", got.Title)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	title := "X"
	_, err := svc.Update(context.Background(), "missing", "owner", types.StoryUpdateRequest{Title: &title})
	if !errors.Is(err, ErrStoryNotFound) {
		t.Fatalf("Expected ErrStoryNotFound, got %v", err)
	}
}

func TestUpdate_AppliesAndRevalidates(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	title := "New title"
	genre := types.GenreHorror
	updated, err := svc.Update(ctx, story.ID, "owner", types.StoryUpdateRequest{Title: &title, Genre: &genre})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if updated.Title != "New title" || updated.Genre != types.GenreHorror {
		t.Fatalf("Update not applied: %+v", updated)
	}
	if updated.Content != "C" {
		t.Fatalf("Untouched field changed: %q", updated.Content)
	}
	if got := store.stories[story.ID]; got.Title != "New title" {
		t.Fatal("Update not persisted")
	}

	// The merged record is re-validated in full.
	long := strings.Repeat("x", 101)
	var ve validator.ValidationErrors
	if _, err := svc.Update(ctx, story.ID, "owner", types.StoryUpdateRequest{Title: &long}); !errors.As(err, &ve) {
		t.Fatalf("Expected validation errors, got %v", err)
	}

	bad := types.Genre("Cooking")
	if _, err := svc.Update(ctx, story.ID, "owner", types.StoryUpdateRequest{Genre: &bad}); !errors.As(err, &ve) {
		t.Fatalf("Expected validation errors, got %v", err)
	}
}

func TestDelete_NotAuthor(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	if err := svc.Delete(ctx, story.ID, "intruder"); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("Expected ErrNotAuthor, got %v", err)
	}
	if _, ok := store.stories[story.ID]; !ok {
		t.Fatal("Story deleted by non-owner")
	}
}

func TestDelete_Owner(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	if err := svc.Delete(ctx, story.ID, "owner"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := store.stories[story.ID]; ok {
		t.Fatal("Story still present after delete")
	}

	if err := svc.Delete(ctx, story.ID, "owner"); !errors.Is(err, ErrStoryNotFound) {
		t.Fatalf("Expected ErrStoryNotFound on second delete, got %v", err)
	}
}

func TestUploadAudio_Success(t *testing.T) {
	svc, store, blobs := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	updated, err := svc.UploadAudio(ctx, story.ID, "owner", mp3Upload(1<<20))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wantObject := fmt.Sprintf("audio_%s.mp3", story.ID)
	if updated.AudioFile != wantObject {
		t.Fatalf("Expected audio file %q, got %q", wantObject, updated.AudioFile)
	}
	if updated.ReadingMode != types.ReadingModeAudio {
		t.Fatalf("Expected reading mode audio, got %q", updated.ReadingMode)
	}
	if _, ok := blobs.objects[wantObject]; !ok {
		t.Fatal("Audio object not written to blob store")
	}

	persisted := store.stories[story.ID]
	if persisted.AudioFile != wantObject || persisted.ReadingMode != types.ReadingModeAudio {
		t.Fatalf("Persisted record not updated: %+v", persisted)
	}
}

func TestUploadAudio_RejectsNonAudioType(t *testing.T) {
	svc, store, blobs := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	upload := &AudioUpload{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Size:        100,
		Content:     strings.NewReader("not audio"),
	}

	_, err := svc.UploadAudio(ctx, story.ID, "owner", upload)
	var bre *BadRequestError
	if !errors.As(err, &bre) {
		t.Fatalf("Expected BadRequestError, got %v", err)
	}

	assertUntouched(t, store, blobs, story.ID)
}

func TestUploadAudio_RejectsDisallowedExtension(t *testing.T) {
	svc, store, blobs := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	// Declared type passes the prefix check but the extension is not on
	// the allow-list; both constraints must hold.
	upload := &AudioUpload{
		Filename:    "narration.flac",
		ContentType: "audio/flac",
		Size:        100,
		Content:     strings.NewReader("flac"),
	}

	_, err := svc.UploadAudio(ctx, story.ID, "owner", upload)
	var bre *BadRequestError
	if !errors.As(err, &bre) {
		t.Fatalf("Expected BadRequestError, got %v", err)
	}

	assertUntouched(t, store, blobs, story.ID)
}

func TestUploadAudio_RejectsOversize(t *testing.T) {
	svc, store, blobs := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	_, err := svc.UploadAudio(ctx, story.ID, "owner", mp3Upload(26<<20))
	var bre *BadRequestError
	if !errors.As(err, &bre) {
		t.Fatalf("Expected BadRequestError, got %v", err)
	}

	assertUntouched(t, store, blobs, story.ID)
}

func TestUploadAudio_NoFile(t *testing.T) {
	svc, store, blobs := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	_, err := svc.UploadAudio(ctx, story.ID, "owner", nil)
	var bre *BadRequestError
	if !errors.As(err, &bre) {
		t.Fatalf("Expected BadRequestError, got %v", err)
	}

	assertUntouched(t, store, blobs, story.ID)
}

func TestUploadAudio_NotAuthorPrecedesFileChecks(t *testing.T) {
	svc, store, blobs := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	// Ownership is decided before the upload is even looked at: a
	// non-owner with a garbage file gets the denial, not a 400.
	_, err := svc.UploadAudio(ctx, story.ID, "intruder", nil)
	if !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("Expected ErrNotAuthor, got %v", err)
	}

	assertUntouched(t, store, blobs, story.ID)
}

func TestUploadAudio_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UploadAudio(context.Background(), "missing", "owner", mp3Upload(100))
	if !errors.Is(err, ErrStoryNotFound) {
		t.Fatalf("Expected ErrStoryNotFound, got %v", err)
	}
}

func TestUploadAudio_BlobWriteFailureLeavesRecordUntouched(t *testing.T) {
	svc, store, blobs := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())
	blobs.failPut = true

	_, err := svc.UploadAudio(ctx, story.ID, "owner", mp3Upload(100))
	if err == nil {
		t.Fatal("Expected an error from the failing blob store")
	}
	var bre *BadRequestError
	if errors.As(err, &bre) {
		t.Fatal("Storage failure must not surface as a bad request")
	}

	assertUntouched(t, store, blobs, story.ID)
}

func TestUploadAudio_ReadingModeOnlyChangesViaIngestion(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	story, _ := svc.Create(ctx, "owner", validCreateRequest())

	title := "Renamed"
	public := true
	if _, err := svc.Update(ctx, story.ID, "owner", types.StoryUpdateRequest{Title: &title, IsPublic: &public}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := store.stories[story.ID]; got.ReadingMode != types.ReadingModeText {
		t.Fatalf("Update changed reading mode to %q", got.ReadingMode)
	}
}

func assertUntouched(t *testing.T, store *fakeStorage, blobs *fakeBlobStore, storyID string) {
	t.Helper()

	got := store.stories[storyID]
	if got.AudioFile != "" {
		t.Fatalf("Expected no audio file reference, got %q", got.AudioFile)
	}
	if got.ReadingMode != types.ReadingModeText {
		t.Fatalf("Expected reading mode text, got %q", got.ReadingMode)
	}
	if len(blobs.objects) != 0 {
		t.Fatalf("Expected empty blob store, found %d objects", len(blobs.objects))
	}
}
