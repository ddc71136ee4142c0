// Package api exposes a small status surface while a pipeline run is in
// progress: a health check and live counters per stage.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Progress holds the run counters the status endpoints report. The
// pipeline updates it; readers get a consistent snapshot.
type Progress struct {
	mu sync.Mutex

	Stage          string `json:"stage"`
	Discovered     int    `json:"discovered"`
	Products       int    `json:"products"`
	Skipped        int    `json:"skipped"`
	Stored         int    `json:"stored"`
	UploadedGames  int64  `json:"uploaded_games"`
	UploadedImages int64  `json:"uploaded_images"`
	Mirrored       int    `json:"mirrored"`
}

func NewProgress() *Progress {
	return &Progress{Stage: "starting"}
}

func (p *Progress) SetStage(stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stage = stage
}

func (p *Progress) Update(fn func(*Progress)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func (p *Progress) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Progress{
		Stage:          p.Stage,
		Discovered:     p.Discovered,
		Products:       p.Products,
		Skipped:        p.Skipped,
		Stored:         p.Stored,
		UploadedGames:  p.UploadedGames,
		UploadedImages: p.UploadedImages,
		Mirrored:       p.Mirrored,
	}
}

// NewServer builds the status HTTP server. The caller owns its lifecycle.
func NewServer(addr string, progress *Progress, logger *slog.Logger) *http.Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Get("/api/v1/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(progress.Snapshot()); err != nil {
			logger.Error("failed to encode stats", "error", err)
		}
	})

	return &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
