package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aydrian/tabnine-charity-activations/internal/service"
	"github.com/aydrian/tabnine-charity-activations/internal/stream"
)

// StreamHandler serves the dashboard event stream. Each connection gets an
// immediate snapshot of the event's tally, then one message per donation,
// all under the event name "new-donation-<eventId>".
type StreamHandler struct {
	Registry          *stream.Registry
	Tally             *service.TallyService
	Logger            *zap.Logger
	HeartbeatInterval time.Duration
	QueryTimeout      time.Duration
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/resources/stream/:eventId", h.stream)
}

// @Summary Dashboard event stream
// @Tags public
// @Param eventId path string true "event id"
// @Produce text/event-stream
// @Success 200
// @Router /resources/stream/{eventId} [get]
func (h *StreamHandler) stream(c *gin.Context) {
	if h.Registry == nil || h.Tally == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	eventID := strings.TrimSpace(c.Param("eventId"))
	if eventID == "" {
		Error(c, http.StatusBadRequest, "event id required", nil)
		return
	}
	eventName := "new-donation-" + eventID

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	updates, cancel := h.Registry.Subscribe(eventID)
	defer cancel()

	queryTimeout := h.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	snapCtx, snapCancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	snapshot, err := h.Tally.Update(snapCtx, eventID, "")
	snapCancel()
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("stream snapshot failed", zap.String("event_id", eventID), zap.Error(err))
		}
	} else {
		c.Render(-1, sse.Event{
			Event: eventName,
			Retry: 3000,
			Data:  snapshot,
		})
		c.Writer.Flush()
	}

	heartbeat := h.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case update, ok := <-updates:
			if !ok {
				return false
			}
			c.Render(-1, sse.Event{Event: eventName, Data: update})
			return true
		case <-ticker.C:
			// Comment line keeps proxies from idling out the connection.
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		}
	})
}
