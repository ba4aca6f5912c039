package storage

import (
	"context"
	"errors"

	"github.com/snapstory/snapstory-service/internal/types"
)

// ErrNotFound is returned when a lookup matches no record. Driver-level
// sentinel values (sql.ErrNoRows) never cross this boundary.
var ErrNotFound = errors.New("record not found")

type Storage interface {
	CreateStory(ctx context.Context, story types.Story) error
	GetStoriesByAuthor(ctx context.Context, authorID string) ([]types.Story, error)
	GetStoryByID(ctx context.Context, id string) (types.Story, error)
	GetStoryByIDAndAuthor(ctx context.Context, id, authorID string) (types.Story, error)
	UpdateStory(ctx context.Context, story types.Story) error
	UpdateStoryAudio(ctx context.Context, id, audioFile string) error
	DeleteStory(ctx context.Context, id string) error

	CreateUser(ctx context.Context, id, email, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (id, passwordHash string, err error)
}
