package sse

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/models"
)

// EventType defines the SSE event name.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
)

// Client represents a browser tab following one upload.
type Client struct {
	ID         string
	MerchantID int
	UploadID   string
	Events     chan []byte
}

// Hub manages subscriptions to upload progress and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register subscribes a client to the events of one of the merchant's uploads.
func (h *Hub) Register(clientID string, merchantID int, uploadID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:         clientID,
		MerchantID: merchantID,
		UploadID:   uploadID,
		Events:     make(chan []byte, 64),
	}
	h.clients[clientID] = c
	log.Info().Str("client_id", clientID).Int("merchant_id", merchantID).Str("upload_id", uploadID).Int("total_clients", len(h.clients)).Msg("Progress subscriber connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("Progress subscriber disconnected")
	}
}

// Broadcast sends an event to every client of the same merchant following its upload.
// Non-blocking: drops the message if a client buffer is full.
func (h *Hub) Broadcast(event models.ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal progress event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.MerchantID != event.MerchantID || c.UploadID != event.UploadID {
			continue
		}
		select {
		case c.Events <- data:
		default:
			log.Warn().Str("client_id", c.ID).Str("upload_id", event.UploadID).Msg("Progress subscriber buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
