package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/courtline/go/internal/config"
)

// New builds the operator HTTP server: health and outbox record inspection.
func New(cfg config.HTTPConfig, health http.Handler, records RecordReader) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      Handler(cfg, health, records),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// Handler returns the routed, CORS-wrapped handler behind New.
func Handler(cfg config.HTTPConfig, health http.Handler, records RecordReader) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", health)
	mux.HandleFunc("GET /outbox/{id}", (&outboxHandler{records: records}).get)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	})

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
