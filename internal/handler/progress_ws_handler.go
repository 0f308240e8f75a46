package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/cache"
	"github.com/GTDGit/gtd_console/internal/middleware"
	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/sse"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ProgressWSHandler streams upload progress over a WebSocket. It shares the
// hub with the SSE stream, so both transports see the same events.
type ProgressWSHandler struct {
	hub      *sse.Hub
	status   *cache.UploadStatusCache
	upgrader websocket.Upgrader
}

// NewProgressWSHandler creates a ProgressWSHandler. Origins are checked
// against the CORS allow-list.
func NewProgressWSHandler(hub *sse.Hub, status *cache.UploadStatusCache, checkOrigin func(r *http.Request) bool) *ProgressWSHandler {
	return &ProgressWSHandler{
		hub:    hub,
		status: status,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Serve handles GET /v1/imports/:uploadId/ws?token=<jwt>.
func (h *ProgressWSHandler) Serve(c *gin.Context) {
	uploadID := c.Param("uploadId")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("upload_id", uploadID).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	clientID := fmt.Sprintf("ws-%d-%d", c.GetInt("user_id"), time.Now().UnixNano())
	merchantID := middleware.GetMerchantID(c)
	client := h.hub.Register(clientID, merchantID, uploadID)
	defer h.hub.Unregister(clientID)

	if last := lastStatus(c, h.status, merchantID, uploadID); last != nil {
		if err := writeEvent(conn, last); err != nil || last.Completed {
			closeNormally(conn)
			return
		}
	}

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.Events:
			if !ok {
				closeNormally(conn)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			var event models.ProgressEvent
			if err := json.Unmarshal(data, &event); err == nil && event.Completed {
				closeNormally(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// readPump discards client messages and reports when the peer goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("WebSocket closed")
			}
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, event *models.ProgressEvent) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}

func closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
