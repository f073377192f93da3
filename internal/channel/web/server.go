// Package web serves the HTTP side of the screener: health, optional session
// inspection and a websocket chat channel.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/hh-screener/internal/interview"
	"github.com/spigell/hh-screener/internal/logger"
)

const (
	ChannelName = "web"
	// IdentityPrefix keeps web identities apart from Telegram chat ids.
	IdentityPrefix = "web:"

	typeText    = "text"
	typeStart   = "start"
	typeFile    = "file"
	typeMessage = "message"
	typeError   = "error"
)

// Interviews is what the HTTP surface needs from the interview manager.
type Interviews interface {
	Submit(ev interview.Event) (<-chan interview.Outcome, error)
	Session(identity string) (*interview.Session, bool)
}

type inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Server struct {
	interviews Interviews
	hub        *Hub
	logger     *zap.Logger
	// OriginPatterns are passed to websocket.Accept. Empty allows same-origin only.
	OriginPatterns []string
	// ExposeSessions mounts /api/sessions/{identity}. It returns full
	// transcripts without authentication, so keep it for operator listeners.
	ExposeSessions bool
}

func NewServer(interviews Interviews, hub *Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{interviews: interviews, hub: hub, logger: log}
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.ExposeSessions {
		r.Get("/api/sessions/{identity}", s.session)
	}
	r.Get("/ws/{identity}", s.chat)

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	session, ok := s.interviews.Session(identity)
	if !ok {
		s.respond(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	s.respond(w, http.StatusOK, session)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	identity := IdentityPrefix + chi.URLParam(r, "identity")
	log := logger.ForConversation(s.logger, ChannelName, identity)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.OriginPatterns})
	if err != nil {
		log.Warn("accepting websocket", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	s.hub.register(identity, conn)
	defer s.hub.unregister(identity, conn)

	log.Info("chat connected")

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				log.Info("chat disconnected")
			} else {
				log.Warn("reading websocket", zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reject(ctx, conn, log, "malformed message")
			continue
		}

		var ev interview.Event
		switch msg.Type {
		case typeText:
			ev = interview.TextEvent(identity, msg.Text)
		case typeStart:
			ev = interview.ResetEvent(identity)
		case typeFile:
			ev = interview.NonTextEvent(identity)
		default:
			s.reject(ctx, conn, log, "unsupported message type")
			continue
		}

		if _, err := s.interviews.Submit(ev); err != nil {
			log.Error("submitting event", zap.Error(err))
			s.reject(ctx, conn, log, "interview unavailable")
			return
		}
	}
}

func (s *Server) reject(ctx context.Context, conn *websocket.Conn, log *zap.Logger, reason string) {
	if err := writeJSON(ctx, conn, outbound{Type: typeError, Text: reason}); err != nil {
		log.Debug("writing error frame", zap.Error(err))
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("encoding response", zap.Error(err))
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
