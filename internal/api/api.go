// Package api provides the HTTP server consuming LINE webhook callbacks.
//
// It verifies webhook signatures, acknowledges deliveries promptly, and
// processes the contained events asynchronously: deduplication by message
// ID, voice transcription, then dispatch to the flow router. Events for
// the same user are handled one at a time; different users proceed in
// parallel.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tsumugi-lab/lifelog/internal/messaging"
	"github.com/tsumugi-lab/lifelog/internal/models"
	"github.com/tsumugi-lab/lifelog/internal/store"
)

// MsgTranscriptionFailed is sent when a voice note cannot be transcribed.
const MsgTranscriptionFailed = "⚠️ 音声の文字起こしに失敗しました。"

// EventRouter dispatches one decoded inbound event to the flows.
type EventRouter interface {
	Route(ctx context.Context, ev models.Event) error
}

// Transcriber converts recorded speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// Config holds the server dependencies and listen address.
type Config struct {
	Addr          string
	ChannelSecret string

	Router      EventRouter
	Messenger   messaging.Service
	Media       messaging.MediaFetcher
	Transcriber Transcriber
	Dedup       store.DedupRepo
}

// Server is the webhook HTTP server.
type Server struct {
	cfg Config

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewServer creates a webhook server from the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.ChannelSecret == "" {
		return nil, fmt.Errorf("LINE channel secret not set")
	}
	if cfg.Router == nil || cfg.Messenger == nil || cfg.Dedup == nil || cfg.Media == nil || cfg.Transcriber == nil {
		return nil, fmt.Errorf("server dependencies not set")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	return &Server{cfg: cfg, userLocks: make(map[string]*sync.Mutex)}, nil
}

// Handler returns the HTTP handler serving the health check and the
// webhook callback.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.healthHandler)
	mux.HandleFunc("/callback", s.callbackHandler)
	return mux
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("lifelog API running", "addr", s.cfg.Addr)
	return srv.ListenAndServe()
}

// userLock returns the serialization mutex for a user, creating it on
// first use.
func (s *Server) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}
