// Package gallery serves the generated memes as a static web page rendered
// from the metadata log, plus a JSON API and the metrics endpoint.
package gallery

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"memebot/internal/metadata"
	"memebot/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server renders the meme gallery. It reads the metadata log on every
// request; the log is small and append-only, so there is nothing to cache.
type Server struct {
	host   string
	port   int
	log    *metadata.Log
	logger *slog.Logger
	tmpl   *htmltemplate.Template
	server *http.Server
}

type Config struct {
	Host   string
	Port   int
	Log    *metadata.Log
	Logger *slog.Logger
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	tmpl, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse gallery templates: %w", err)
	}

	s := &Server{
		host:   cfg.Host,
		port:   cfg.Port,
		log:    cfg.Log,
		logger: cfg.Logger,
		tmpl:   tmpl,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleGallery)
	mux.HandleFunc("GET /api/memes", s.handleAPIMemes)
	mux.Handle("GET /metrics", metrics.Default.Handler())

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, nil
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("gallery listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gallery server: %w", err)
	}
	return nil
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// sortedEntries returns the log newest first.
func (s *Server) sortedEntries() ([]metadata.Entry, error) {
	entries, err := s.log.Entries()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	entries, err := s.sortedEntries()
	if err != nil {
		s.logger.Error("cannot load meme log", "err", err)
		http.Error(w, "cannot load memes", http.StatusInternalServerError)
		return
	}

	data := struct {
		Memes []metadata.Entry
		Count int
	}{Memes: entries, Count: len(entries)}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "gallery.html", data); err != nil {
		s.logger.Error("render gallery", "err", err)
	}
}

func (s *Server) handleAPIMemes(w http.ResponseWriter, r *http.Request) {
	entries, err := s.sortedEntries()
	if err != nil {
		s.logger.Error("cannot load meme log", "err", err)
		http.Error(w, `{"error": "cannot load memes"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		s.logger.Error("encode memes", "err", err)
	}
}
