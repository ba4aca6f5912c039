package types

import "time"

type Genre string

const (
	GenreFantasy    Genre = "Fantasy"
	GenreSciFi      Genre = "Sci-Fi"
	GenreMystery    Genre = "Mystery"
	GenreThriller   Genre = "Thriller"
	GenreRomance    Genre = "Romance"
	GenreHorror     Genre = "Horror"
	GenreAdventure  Genre = "Adventure"
	GenreHistorical Genre = "Historical"
	GenreBiography  Genre = "Biography"
	GenrePoetry     Genre = "Poetry"
	GenreOther      Genre = "Other"
)

type ReadingMode string

const (
	ReadingModeText      ReadingMode = "text"
	ReadingModeAudio     ReadingMode = "audio"
	ReadingModeAnimation ReadingMode = "animation"
)

type AudioEmotion string

const (
	EmotionNeutral AudioEmotion = "neutral"
	EmotionHappy   AudioEmotion = "happy"
	EmotionSad     AudioEmotion = "sad"
	EmotionAngry   AudioEmotion = "angry"
	EmotionExcited AudioEmotion = "excited"
	EmotionCalm    AudioEmotion = "calm"
)

// Story is one authored narrative. AuthorID is set once at creation and
// never reassigned. ReadingMode moves to "audio" only when an audio
// narration has been ingested, at which point AudioFile names the stored
// object.
type Story struct {
	ID           string       `json:"id"`
	Title        string       `json:"title" validate:"required,max=100"`
	Content      string       `json:"content" validate:"required"`
	Genre        Genre        `json:"genre" validate:"required,oneof=Fantasy Sci-Fi Mystery Thriller Romance Horror Adventure Historical Biography Poetry Other"`
	ReadingMode  ReadingMode  `json:"readingMode" validate:"required,oneof=text audio animation"`
	AudioEmotion AudioEmotion `json:"audioEmotion" validate:"required,oneof=neutral happy sad angry excited calm"`
	IsPublic     bool         `json:"isPublic"`
	AudioFile    string       `json:"audioFile,omitempty"`
	AuthorID     string       `json:"author"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// StoryCreateRequest carries the caller-supplied fields of a new story.
// There is deliberately no author field: the author is always the
// authenticated requester.
type StoryCreateRequest struct {
	Title        string       `json:"title" validate:"required,max=100"`
	Content      string       `json:"content" validate:"required"`
	Genre        Genre        `json:"genre" validate:"required,oneof=Fantasy Sci-Fi Mystery Thriller Romance Horror Adventure Historical Biography Poetry Other"`
	AudioEmotion AudioEmotion `json:"audioEmotion" validate:"omitempty,oneof=neutral happy sad angry excited calm"`
	IsPublic     bool         `json:"isPublic"`
}

// StoryUpdateRequest carries a partial update; nil fields are left as-is.
// The merged story is re-validated in full before it is persisted.
type StoryUpdateRequest struct {
	Title        *string       `json:"title"`
	Content      *string       `json:"content"`
	Genre        *Genre        `json:"genre"`
	AudioEmotion *AudioEmotion `json:"audioEmotion"`
	IsPublic     *bool         `json:"isPublic"`
}
