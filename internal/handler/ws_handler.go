package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/damienbose/line-draw/internal/models"
	"github.com/damienbose/line-draw/internal/service"
)

// WSHandler streams job progress over a websocket. A subscriber
// disconnecting never affects the job; the terminal state stays
// recoverable through the status endpoint.
type WSHandler struct {
	manager   *service.Manager
	heartbeat time.Duration
	upgrader  websocket.Upgrader
}

// NewWSHandler creates a websocket handler. heartbeat is the idle
// interval after which a keep-alive message is sent so quiet
// connections are not mistaken for dead ones.
func NewWSHandler(manager *service.Manager, heartbeat time.Duration) *WSHandler {
	return &WSHandler{
		manager:   manager,
		heartbeat: heartbeat,
		upgrader: websocket.Upgrader{
			// Same open policy as the HTTP CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Stream is the websocket endpoint for real-time job progress.
// GET /api/ws/jobs/:id
func (h *WSHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return // Upgrade already wrote the HTTP error
	}
	defer conn.Close()

	id := c.Param("id")
	snap, err := h.manager.Status(id)
	if err != nil {
		conn.WriteJSON(models.StreamMessage{Type: models.MessageError, Error: "job not found"})
		return
	}

	// Initial status so the client can render immediately.
	if err := conn.WriteJSON(models.StreamMessage{
		Type:     models.MessageStatus,
		Status:   snap.Status,
		Progress: snap.Progress,
	}); err != nil {
		return
	}

	if snap.Status.Terminal() {
		h.sendTerminal(conn, id, snap)
		return
	}

	subID, ch, err := h.manager.Subscribe(id)
	if err != nil {
		conn.WriteJSON(models.StreamMessage{Type: models.MessageError, Error: err.Error()})
		return
	}
	defer h.manager.Unsubscribe(id, subID)

	// The job may have finished between the status read and the
	// subscription; re-check so the terminal message is never missed.
	if snap, err := h.manager.Status(id); err == nil && snap.Status.Terminal() {
		h.sendTerminal(conn, id, snap)
		return
	}

	timer := time.NewTimer(h.heartbeat)
	defer timer.Stop()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				// Channel closed by the run loop; report the terminal
				// state in case the message was dropped.
				if snap, err := h.manager.Status(id); err == nil && snap.Status.Terminal() {
					h.sendTerminal(conn, id, snap)
				}
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
			if msg.Type == models.MessageComplete || msg.Type == models.MessageError {
				return
			}
		case <-timer.C:
			snap, err := h.manager.Status(id)
			if err != nil {
				return
			}
			if snap.Status.Terminal() {
				h.sendTerminal(conn, id, snap)
				return
			}
			if err := conn.WriteJSON(models.HeartbeatMessage(snap)); err != nil {
				return
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(h.heartbeat)
	}
}

// sendTerminal delivers the final message for a finished job.
func (h *WSHandler) sendTerminal(conn *websocket.Conn, id string, snap models.Snapshot) {
	switch snap.Status {
	case models.StatusCompleted:
		data, err := h.manager.Result(id)
		if err != nil {
			log.Printf("[ws %s] result unavailable for completed job: %v", id, err)
			return
		}
		conn.WriteJSON(models.StreamMessage{
			Type:        models.MessageComplete,
			Status:      models.StatusCompleted,
			Progress:    1.0,
			ImageBase64: service.EncodeResult(data),
		})
	case models.StatusFailed:
		conn.WriteJSON(models.StreamMessage{
			Type:     models.MessageError,
			Status:   models.StatusFailed,
			Progress: snap.Progress,
			Error:    snap.Error,
		})
	}
}
