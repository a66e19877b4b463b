package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// FeedServer exposes the live sample feed and, when available, the
// current run's samples and the archive over HTTP.
type FeedServer struct {
	hub      *Hub
	recorder *Recorder
	archive  *Archive
	router   *mux.Router
	logger   *zap.SugaredLogger
	srv      *http.Server
}

// NewFeedServer wires the routes. recorder and archive may be nil.
func NewFeedServer(hub *Hub, recorder *Recorder, archive *Archive, logger *zap.SugaredLogger) *FeedServer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &FeedServer{
		hub:      hub,
		recorder: recorder,
		archive:  archive,
		router:   mux.NewRouter(),
		logger:   logger,
	}
	s.setupRoutes()
	return s
}

func (s *FeedServer) setupRoutes() {
	s.router.HandleFunc("/ws", s.hub.ServeWS)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/samples", s.handleSamples).Methods(http.MethodGet)
	s.router.HandleFunc("/runs", s.handleRuns).Methods(http.MethodGet)
	s.router.HandleFunc("/runs/{id}", s.handleRun).Methods(http.MethodGet)
}

func (s *FeedServer) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start serves until Shutdown is called.
func (s *FeedServer) Start(addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.Handler()}
	s.logger.Infow("feed_server_starting", "addr", addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *FeedServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *FeedServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{"status": "ok", "clients": s.hub.Clients()})
}

func (s *FeedServer) handleSamples(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		http.Error(w, "no run in progress", http.StatusNotFound)
		return
	}
	respondJSON(w, map[string]any{
		"run_id":  s.recorder.RunID(),
		"samples": s.recorder.Samples(),
	})
}

func (s *FeedServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}
	runs, err := s.archive.Runs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, runs)
}

func (s *FeedServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}
	meta, samples, err := s.archive.Load(mux.Vars(r)["id"])
	if errors.Is(err, ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"run": meta, "samples": samples})
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
