// Package server exposes ingestion, chat and notebook insights over HTTP
// and a websocket.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/xhad/sourcebook/pkg/chat"
	"github.com/xhad/sourcebook/pkg/ingest"
	"github.com/xhad/sourcebook/pkg/insights"
)

type Config struct {
	Port           int
	AllowedOrigins []string
	IngestTimeout  time.Duration
	RequestTimeout time.Duration
	MaxUploadBytes int64
	WSRate         float64
	WSBurst        int
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.IngestTimeout == 0 {
		c.IngestTimeout = 120 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 32 << 20
	}
	if c.WSRate == 0 {
		c.WSRate = 1
	}
	if c.WSBurst == 0 {
		c.WSBurst = 3
	}
}

type Server struct {
	config     Config
	ingest     *ingest.Service
	chat       *chat.Service
	insights   *insights.Service
	router     chi.Router
	httpServer *http.Server
}

func NewWithConfig(config Config, ingestSvc *ingest.Service, chatSvc *chat.Service, insightsSvc *insights.Service) (*Server, error) {
	if ingestSvc == nil || chatSvc == nil || insightsSvc == nil {
		return nil, fmt.Errorf("server requires ingest, chat and insights services")
	}
	config.applyDefaults()

	s := &Server{
		config:   config,
		ingest:   ingestSvc,
		chat:     chatSvc,
		insights: insightsSvc,
	}
	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// websocket connections outlive any request deadline
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.Timeout(s.config.IngestTimeout)).Post("/ingest", s.handleIngest)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.config.RequestTimeout))
			r.Post("/chat", s.handleChat)
			r.Post("/notebook/overview", s.handleOverview)
			r.Post("/notebook/mindmap", s.handleMindMap)
		})
	})

	return r
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Starting server on port %d", s.config.Port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
