package analytics_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-badging/internal/logger"
	"ms-badging/internal/models"
	"ms-badging/internal/sse"
	"ms-badging/internal/utils"

	"github.com/go-chi/chi/v5"
)

type StatsProvider interface {
	GetAttendeeStats(ctx context.Context) (models.AttendeeStats, error)
}

// Handler serves the attendance dashboard endpoints
type Handler struct {
	Service   StatsProvider
	Emitter   *sse.CheckInEventEmitter
	Logger    *logger.Logger
	Heartbeat time.Duration
}

func NewHandler(service StatsProvider, emitter *sse.CheckInEventEmitter, log *logger.Logger) *Handler {
	return &Handler{
		Service:   service,
		Emitter:   emitter,
		Logger:    log,
		Heartbeat: 30 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/badges/stats", h.GetStats)
	r.Get("/api/badges/stats/stream", h.StreamStats)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetAttendeeStats(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to compute attendee stats: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load statistics", "internal error"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Attendee statistics", stats))
}

// StreamStats pushes fresh statistics after every accepted scan. An optional
// ?location= narrows the stream to scans made at that location.
func (h *Handler) StreamStats(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	location := r.URL.Query().Get("location")

	var notices chan models.CheckInNotice
	if location != "" {
		notices = h.Emitter.SubscribeToLocation(ctx, location)
	} else {
		notices = h.Emitter.Subscribe(ctx)
	}

	setupSSEHeaders(w)
	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	h.writeStats(ctx, w)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Dashboard connected to stats stream (location=%q)", location))

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case notice, ok := <-notices:
			if !ok {
				return
			}
			if data, err := json.Marshal(notice); err == nil {
				fmt.Fprintf(w, "event: checkin\ndata: %s\n\n", data)
			}
			h.writeStats(ctx, w)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", "Dashboard disconnected from stats stream")
			return
		}
	}
}

func (h *Handler) writeStats(ctx context.Context, w http.ResponseWriter) {
	stats, err := h.Service.GetAttendeeStats(ctx)
	if err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Failed to compute stats for stream: %v", err))
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize stats: %v", err))
		return
	}
	fmt.Fprintf(w, "event: stats\ndata: %s\n\n", data)
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}
