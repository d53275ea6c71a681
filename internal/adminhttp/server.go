// Package adminhttp exposes a read-only operational surface — health and
// stat snapshots for monitoring — over plain HTTP, separate from the
// game's binary TCP protocol. It carries no player traffic and no
// authentication beyond network placement, matching the "ops health
// endpoint, not a player-facing web admin" scope note.
package adminhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Snapshot is one point-in-time read of server vitals, assembled by the
// caller (composition root) from whatever live state it can reach.
type Snapshot struct {
	UptimeSeconds    int64 `json:"uptime_seconds"`
	OnlineCharacters int   `json:"online_characters"`
	LiveMobs         int   `json:"live_mobs"`
	TickQueueDepth   int   `json:"tick_queue_depth"`
	LastTickMs       int64 `json:"last_tick_ms"`
	ActiveGuildWars  int   `json:"active_guild_wars"`
}

// Provider supplies the current snapshot on demand; the tick goroutine's
// owner implements this without handing adminhttp a reference to the
// single-writer world state itself.
type Provider func() Snapshot

type Server struct {
	http *http.Server
	log  *zap.Logger
}

func NewServer(bindAddr string, provider Provider, log *zap.Logger) *Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(provider())
	})

	return &Server{
		http: &http.Server{
			Addr:              bindAddr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
