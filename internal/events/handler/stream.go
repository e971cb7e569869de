package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"stagebook/internal/events/hub"
	apperrors "stagebook/pkg/errors"
	httputil "stagebook/pkg/http"
	"stagebook/pkg/logger"
	"stagebook/pkg/model"
)

const lastEventIDHeader = "Last-Event-ID"

// EventSource hands out hub subscriptions.
type EventSource interface {
	Subscribe() *hub.Subscription
	SubscribeSince(lastSeq uint64) *hub.Subscription
}

type StreamHandler struct {
	source EventSource
	log    *logger.Logger
}

func NewStreamHandler(source EventSource, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		source: source,
		log:    log,
	}
}

type wireEvent struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// Stream holds the connection open and writes every hub event as a
// Server-Sent Event until the client goes away or the hub drops it.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.Principal(r)
	if err == nil && (!principal.IsAdmin() || !principal.IsActive()) {
		err = apperrors.Forbidden("Admin role required")
	}
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Stream", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.log.Warn("failed to clear write deadline", "handler", "Stream", "error", err)
	}

	var sub *hub.Subscription
	if lastSeq, ok := parseLastEventID(r.Header.Get(lastEventIDHeader)); ok {
		sub = h.source.SubscribeSince(lastSeq)
	} else {
		sub = h.source.Subscribe()
	}
	defer sub.Close()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	h.log.Info("Admin event stream opened", "subscriber_id", sub.ID(), "principal_id", principal.ID)

	for {
		evt, err := sub.Next(r.Context())
		if err != nil {
			if errors.Is(err, hub.ErrSlowSubscriber) {
				h.log.Warn("Admin event stream dropped", "subscriber_id", sub.ID(), "error", err)
			} else {
				h.log.Info("Admin event stream closed", "subscriber_id", sub.ID(), "reason", err)
			}
			return
		}

		if err := writeEvent(w, evt); err != nil {
			h.log.Info("Admin event stream write failed", "subscriber_id", sub.ID(), "error", err)
			return
		}
		if err := rc.Flush(); err != nil {
			h.log.Error("failed to flush event stream", "handler", "Stream", "error", err)
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, evt model.NotificationEvent) error {
	data, err := json.Marshal(wireEvent{Type: evt.Type, Data: evt.Data, Timestamp: evt.Timestamp})
	if err != nil {
		return err
	}
	if evt.Seq > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", evt.Seq); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
	return err
}

func parseLastEventID(v string) (uint64, bool) {
	if v == "" {
		return 0, false
	}
	seq, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

func (h *StreamHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/admin/events", h.Stream)
}
