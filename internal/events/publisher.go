package events

import (
	"time"

	"github.com/snapstory/snapstory-service/internal/types"
)

// Publisher pushes story lifecycle events to the author's connected
// clients. Publishing is best-effort: a disconnected author is not an
// error and never fails the mutation that produced the event.
type Publisher interface {
	PublishStoryCreated(authorID string, story types.Story)
	PublishAudioReady(authorID, storyID, audioFile string)
}

// WebSocketHub is the subset of the hub the publisher needs.
type WebSocketHub interface {
	BroadcastToUser(userID string, event *types.Event)
	IsUserConnected(userID string) bool
}

// HubPublisher implements Publisher on top of the WebSocket hub.
type HubPublisher struct {
	hub WebSocketHub
}

func NewHubPublisher(hub WebSocketHub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) PublishStoryCreated(authorID string, story types.Story) {
	if !p.hub.IsUserConnected(authorID) {
		return
	}

	eventData := &types.StoryCreatedEvent{
		StoryID:   story.ID,
		Title:     story.Title,
		Genre:     story.Genre,
		CreatedAt: story.CreatedAt.UTC().Format(time.RFC3339),
	}

	p.hub.BroadcastToUser(authorID, types.NewEvent(types.EventStoryCreated, eventData))
}

func (p *HubPublisher) PublishAudioReady(authorID, storyID, audioFile string) {
	if !p.hub.IsUserConnected(authorID) {
		return
	}

	eventData := &types.AudioReadyEvent{
		StoryID:   storyID,
		AudioFile: audioFile,
		ReadyAt:   time.Now().UTC().Format(time.RFC3339),
	}

	p.hub.BroadcastToUser(authorID, types.NewEvent(types.EventAudioReady, eventData))
}

// NopPublisher drops all events. Used where no hub is wired, e.g. tests.
type NopPublisher struct{}

func (NopPublisher) PublishStoryCreated(string, types.Story)  {}
func (NopPublisher) PublishAudioReady(string, string, string) {}
