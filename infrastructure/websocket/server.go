package websocket

import (
	"chat-hub/auth"
	"chat-hub/contract"
	"chat-hub/domain/event"
	"chat-hub/services"
	"chat-hub/sink"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
)

type Config struct {
	MaxMessageSize    int64
	ConnectionBuffer  int
	RateLimitBurst    int
	RateLimitInterval time.Duration
	SinkTimeout       time.Duration
	PongWait          time.Duration
	PingPeriod        time.Duration
	WriteWait         time.Duration
}

// DefaultConfig keeps the ping period below the pong wait.
func DefaultConfig() Config {
	return Config{
		MaxMessageSize:    64 * 1024,
		ConnectionBuffer:  256,
		RateLimitBurst:    20,
		RateLimitInterval: time.Second,
		SinkTimeout:       time.Second,
		PongWait:          60 * time.Second,
		PingPeriod:        54 * time.Second,
		WriteWait:         10 * time.Second,
	}
}

// Server upgrades authenticated requests and runs their connections.
// It must be mounted behind auth.Gate.Middleware: no connection exists
// without a bound user.
type Server struct {
	log        *slog.Logger
	presence   services.IPresenceService
	registry   contract.IRegistry
	dispatcher *Dispatcher
	upgrader   gorilla.Upgrader
	cfg        Config
	wg         sync.WaitGroup
}

func NewServer(
	log *slog.Logger,
	presence services.IPresenceService,
	registry contract.IRegistry,
	dispatcher *Dispatcher,
	origins *OriginPolicy,
	cfg Config,
) *Server {
	return &Server{
		log:        log,
		presence:   presence,
		registry:   registry,
		dispatcher: dispatcher,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.Check,
		},
		cfg: cfg,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthenticated"})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Upgrade failed", "user_id", user.ID, "error", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	ctx := context.WithoutCancel(r.Context())
	session := sink.NewSessionSink(uuid.NewString(), user.ID, user.Username, s.cfg.ConnectionBuffer)
	if previous := s.presence.Connected(ctx, session); previous != nil {
		s.replace(ctx, previous)
	}
	s.log.Info("Session opened", "user_id", user.ID, "session", session.ID(), "remote", r.RemoteAddr)

	c := newConnection(s.log, conn, session, s.dispatcher, s.cfg)
	written := make(chan struct{})
	go func() {
		defer close(written)
		c.writePump()
	}()
	c.readPump(ctx)
	<-written

	s.presence.Disconnected(ctx, session, time.Now())
	s.log.Info("Session closed", "user_id", user.ID, "session", session.ID())
}

// replace notifies a superseded session, then closes it.
func (s *Server) replace(ctx context.Context, previous contract.Session) {
	notifyCtx, cancel := context.WithTimeout(ctx, s.cfg.SinkTimeout)
	defer cancel()
	if err := previous.Consume(notifyCtx, event.SessionReplaced{}); err != nil {
		s.log.Debug("Superseded session not notified", "session", previous.ID(), "error", err)
	}
	previous.Close()
	s.log.Info("Session replaced", "user_id", previous.UserID(), "session", previous.ID())
}

// Shutdown closes every open session and waits for their connections to end.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, session := range s.registry.Sessions() {
		session.Close()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
