package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/cache"
	"github.com/GTDGit/gtd_console/internal/middleware"
	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/sse"
)

const keepAliveInterval = 30 * time.Second

// SSEHandler streams the progress of one upload as Server-Sent Events.
type SSEHandler struct {
	hub    *sse.Hub
	status *cache.UploadStatusCache
}

// NewSSEHandler creates a new SSEHandler. status may be nil.
func NewSSEHandler(hub *sse.Hub, status *cache.UploadStatusCache) *SSEHandler {
	return &SSEHandler{hub: hub, status: status}
}

// Stream handles GET /v1/imports/:uploadId/events?token=<jwt>.
// EventSource cannot set headers, so the JWT middleware accepts the query param.
func (h *SSEHandler) Stream(c *gin.Context) {
	uploadID := c.Param("uploadId")
	merchantID := middleware.GetMerchantID(c)
	clientID := fmt.Sprintf("sse-%d-%d", c.GetInt("user_id"), time.Now().UnixNano())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(clientID, merchantID, uploadID)
	defer h.hub.Unregister(clientID)

	c.SSEvent("connected", gin.H{
		"clientId":  clientID,
		"uploadId":  uploadID,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	// Replay the latest known state for clients that connect mid-import.
	if last := lastStatus(c, h.status, merchantID, uploadID); last != nil {
		c.SSEvent(string(sse.EventName(*last)), last)
		if last.Completed {
			c.Writer.Flush()
			return
		}
	}
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Str("upload_id", uploadID).Msg("Upload SSE stream started")

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return false
			}
			var event models.ProgressEvent
			if err := json.Unmarshal(data, &event); err != nil {
				return true
			}
			c.SSEvent(string(sse.EventName(event)), string(data))
			return !event.Completed
		case <-time.After(keepAliveInterval):
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func lastStatus(c *gin.Context, status *cache.UploadStatusCache, merchantID int, uploadID string) *models.ProgressEvent {
	if status == nil {
		return nil
	}
	event, err := status.Get(c.Request.Context(), merchantID, uploadID)
	if err != nil {
		return nil
	}
	return event
}
