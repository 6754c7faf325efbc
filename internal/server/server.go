// Package server exposes the HTTP entry point: a health probe and a webhook
// that accepts storage object-created events.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/callsight-ai/callsight/internal/events"
	"github.com/callsight-ai/callsight/internal/logging"
)

type Server struct {
	router       *chi.Mux
	port         int
	campaignsDir string
	handler      events.Handler
}

func New(port int, campaignsDir string, handler events.Handler) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:       router,
		port:         port,
		campaignsDir: campaignsDir,
		handler:      handler,
	}

	router.Get("/healthz", s.health)
	router.Post("/events/storage", s.storageEvent)

	return s
}

func (s *Server) Start(ctx context.Context) error {
	log := logging.NewLogger(ctx)
	addr := fmt.Sprintf(":%d", s.port)
	log.Infof("http_server_starting addr=%q", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router exposes the mux for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// storageEvent validates the event and acknowledges with 202 before
// processing; the delivering service retries on its own schedule and must
// not wait on a full analysis.
func (s *Server) storageEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.NewLogger(ctx)

	event := events.StorageEvent{}
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
		return
	}

	// Buckets fan out every object notification; keys outside the campaign
	// layout are expected traffic, not client errors.
	item, err := event.Item(s.campaignsDir)
	if err != nil {
		log.Infof("storage_event_ignored bucket=%q key=%q reason=%v", event.Bucket, event.Key, err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	runID := uuid.NewString()
	log.Infof("storage_event_accepted run_id=%s bucket=%q key=%q", runID, event.Bucket, event.Key)

	go s.handler(context.WithoutCancel(ctx), item)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "runId": runID})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
