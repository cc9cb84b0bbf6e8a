package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aydrian/tabnine-charity-activations/internal/feed"
)

// changefeedEnvelope is the webhook-sink body a CockroachDB changefeed posts:
// a batch of row payloads with the post-insert state under "after".
type changefeedEnvelope struct {
	Payload []struct {
		After map[string]json.RawMessage `json:"after"`
	} `json:"payload"`
	Length int `json:"length"`
}

// CDCHandler accepts changefeed webhook posts on the donations table and
// feeds them into the in-process change bus.
type CDCHandler struct {
	Bus    *feed.Bus
	Logger *zap.Logger
}

func (h *CDCHandler) Register(r *gin.Engine) {
	r.POST("/resources/cdc", h.receive)
}

// @Summary Changefeed webhook sink
// @Tags feed
// @Accept json
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /resources/cdc [post]
func (h *CDCHandler) receive(c *gin.Context) {
	if h.Bus == nil {
		Error(c, http.StatusServiceUnavailable, "change bus unavailable", nil)
		return
	}
	var envelope changefeedEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		Error(c, http.StatusBadRequest, "malformed changefeed envelope", nil)
		return
	}
	accepted := 0
	for _, row := range envelope.Payload {
		n := feed.Notification{
			DonationID: rawString(row.After, "id"),
			EventID:    rawString(row.After, "event_id", "eventId"),
			CharityID:  rawString(row.After, "charity_id", "charityId"),
		}
		if n.EventID == "" {
			if h.Logger != nil {
				h.Logger.Warn("changefeed row missing event id")
			}
			continue
		}
		if err := h.Bus.Publish(c.Request.Context(), n); err != nil {
			Error(c, http.StatusServiceUnavailable, "change bus full", nil)
			return
		}
		accepted++
	}
	Ok(c, gin.H{"accepted": accepted}, nil)
}

func rawString(row map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := row[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
