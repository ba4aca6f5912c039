package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventStoryCreated EventType = "story.created"
	EventAudioReady   EventType = "story.audio.ready"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// StoryCreatedEvent is pushed to the author's other connected clients
// when one of their stories is created.
type StoryCreatedEvent struct {
	StoryID   string `json:"story_id"`
	Title     string `json:"title"`
	Genre     Genre  `json:"genre"`
	CreatedAt string `json:"created_at"`
}

// AudioReadyEvent is pushed to the author when an audio narration has
// been ingested and the story switched to audio reading mode.
type AudioReadyEvent struct {
	StoryID   string `json:"story_id"`
	AudioFile string `json:"audio_file"`
	ReadyAt   string `json:"ready_at"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
