package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
	"github.com/yungbote/surveybridge-backend/internal/realtime"
)

type EventsHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewEventsHandler(baseLog *logger.Logger, hub *realtime.Hub) *EventsHandler {
	return &EventsHandler{log: baseLog.With("handler", "EventsHandler"), hub: hub}
}

// GET /api/events streams every ingest event; GET /api/courses/:course_id/events one course's.
func (h *EventsHandler) Stream(c *gin.Context) {
	var client *realtime.Client
	if courseID := c.Param("course_id"); courseID != "" {
		client = h.hub.Subscribe(courseID)
	} else {
		client = h.hub.Subscribe()
	}
	defer h.hub.Close(client)
	h.log.Debug("event stream open", "client_id", client.ID.String(), "course_id", c.Param("course_id"))

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-client.Outbound:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		}
	})
}
