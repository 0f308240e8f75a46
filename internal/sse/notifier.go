package sse

import (
	"github.com/GTDGit/gtd_console/internal/models"
)

// HubPublisher delivers upload progress events to hub subscribers.
type HubPublisher struct {
	hub *Hub
}

// NewHubPublisher creates a publisher backed by the given Hub.
func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(event models.ProgressEvent) {
	if p.hub.ClientCount() == 0 {
		return
	}
	p.hub.Broadcast(event)
}

// EventName returns the SSE event name for a progress event.
func EventName(event models.ProgressEvent) EventType {
	if event.Completed {
		return EventCompleted
	}
	return EventProgress
}
