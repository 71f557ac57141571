package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/drawsync/go/internal/drawsync/canvas"
	"github.com/mcdev12/drawsync/go/internal/drawsync/conn"
	"github.com/mcdev12/drawsync/go/internal/drawsync/session"
)

const version = "1.0.0"

type renderedSegment struct {
	canvas.Segment
	Ops []canvas.Op `json:"ops"`
}

// setupInspectServer exposes the session's state and render plan for
// whatever draws it.
func setupInspectServer(port string, s *session.Session, metrics *conn.CounterMetrics) *http.Server {
	mux := http.NewServeMux()
	registerInspectRoutes(mux, s, metrics)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func registerInspectRoutes(mux *http.ServeMux, s *session.Session, metrics *conn.CounterMetrics) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"service":    "drawsync",
			"version":    version,
			"room_id":    s.RoomID(),
			"connection": s.Manager.Stats(),
			"metrics":    metrics.Snapshot(),
		})
	})

	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.Reducer.Snapshot())
	})

	mux.HandleFunc("GET /render", func(w http.ResponseWriter, r *http.Request) {
		plan := s.Engine.Plan()
		segments := make([]renderedSegment, 0, len(plan.Segments))
		for _, seg := range plan.Segments {
			segments = append(segments, renderedSegment{Segment: seg, Ops: seg.Ops()})
		}
		writeJSON(w, map[string]interface{}{"segments": segments})
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
