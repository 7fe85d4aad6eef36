package broadcast

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wardwatch/platform/pkg/common/logger"
)

// SSEHandler streams hub events to dashboard clients as Server-Sent Events.
// A client may pass ?location=a,b to scope itself to those locations; global
// events are delivered regardless.
type SSEHandler struct {
	hub *Hub
}

func NewSSEHandler(hub *Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

func (h *SSEHandler) Register(router *mux.Router) {
	router.HandleFunc("/events", h.handleStream).Methods(http.MethodGet)
}

func (h *SSEHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The server's WriteTimeout covers the whole response; left in place it
	// would cut every stream after one timeout window. Streams live until the
	// client disconnects.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logger.Log.WithError(err).Warn("failed to clear stream write deadline")
	}

	var locations []string
	if raw := r.URL.Query().Get("location"); raw != "" {
		for _, location := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(location); trimmed != "" {
				locations = append(locations, trimmed)
			}
		}
	}

	sub := h.hub.Subscribe(locations...)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				logger.Log.WithError(err).Error("failed to marshal stream event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}
