// Package server provides the HTTP and WebSocket live transcript feed.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/meetpilot/meetpilot/internal/history"
	"github.com/meetpilot/meetpilot/internal/syncx"
)

// TranscriptMessage is pushed to every feed client when an utterance lands.
type TranscriptMessage struct {
	Type  string    `json:"type"`
	Start time.Time `json:"start"`
	Text  string    `json:"text"`
}

type historyEntry struct {
	Start      time.Time `json:"start"`
	DurationMs int64     `json:"duration_ms"`
	Language   string    `json:"language"`
	Text       string    `json:"text"`
}

// Server broadcasts committed transcript entries to WebSocket clients and
// serves the conversation over REST. The feed is observation only: clients
// receive, they do not command.
type Server struct {
	hist  *history.Log
	conns *syncx.RWGuard[map[*websocket.Conn]struct{}]
}

// New creates a feed server over the shared history and starts the
// broadcaster.
func New(hist *history.Log) *Server {
	s := &Server{
		hist:  hist,
		conns: syncx.NewGuard(make(map[*websocket.Conn]struct{})),
	}
	go s.broadcast()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.conns.Write(func(m *map[*websocket.Conn]struct{}) {
		(*m)[conn] = struct{}{}
	})
	defer s.conns.Write(func(m *map[*websocket.Conn]struct{}) {
		delete(*m, conn)
	})

	slog.Info("feed client connected", "remote", r.RemoteAddr)

	// Read loop exists only to notice the close; client messages are ignored.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			slog.Debug("feed client disconnected", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}

func (s *Server) broadcast() {
	for evt := range s.hist.Events() {
		msg := TranscriptMessage{Type: "transcript", Start: evt.Start, Text: evt.Text}

		s.conns.Read(func(m map[*websocket.Conn]struct{}) any {
			for conn := range m {
				go func(c *websocket.Conn) {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = wsjson.Write(ctx, c, msg)
				}(conn)
			}
			return nil
		})
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.hist.Snapshot(0)
	out := make([]historyEntry, len(entries))
	for i, e := range entries {
		out[i] = historyEntry{
			Start:      e.Start,
			DurationMs: e.Duration.Milliseconds(),
			Language:   e.Language,
			Text:       e.Text,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"entries": s.hist.Len(),
	})
}
