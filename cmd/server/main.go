package main

import (
	"chat-hub/auth"
	"chat-hub/domain"
	"chat-hub/infrastructure/api"
	"chat-hub/infrastructure/health"
	"chat-hub/infrastructure/postgres"
	"chat-hub/infrastructure/storage"
	"chat-hub/infrastructure/websocket"
	"chat-hub/internal"
	"chat-hub/moderation"
	"chat-hub/repositories"
	"chat-hub/runtime"
	"chat-hub/runtime/workers"
	"chat-hub/services"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

type stores struct {
	users    repositories.IUserRepository
	chats    repositories.IChatRepository
	messages repositories.IMessageRepository
	reads    repositories.IReadRepository
	close    func()
}

// run wires every component and blocks until a signal or a server failure.
// Deferred cleanups run before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.ModerationCharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	st, err := openStores(ctx, config, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer st.close()

	// 3. Runtime & workers
	registry := runtime.NewRegistry()
	fanout := workers.NewEventFanoutWorker(logger, registry, config.BufferSize, config.SinkTimeout)
	presenceWorker := workers.NewPresenceWorker(logger, st.users, config.BufferSize)
	presence := services.NewPresenceService(logger, registry, st.chats, presenceWorker, fanout)

	sup := workers.NewSupervisor(logger)
	sup.Add(fanout, presenceWorker)
	if config.AwayAfter > 0 {
		sup.Add(workers.NewIdleWorker(logger, presence, config.IdleCheckInterval, config.AwayAfter))
	}

	// A nil *Moderator would be a non-nil Censor.
	var censor services.Censor
	if words := config.CensoredWords(); len(words) > 0 {
		moderator, err := moderation.NewModerator(words, charReplacement, logger)
		if err != nil {
			return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
		}
		censor = moderator
	}

	// 4. Services
	tokens := auth.NewTokenManager(config.JWTSecret, config.JWTIssuer, config.AuthTokenDuration)
	gate := auth.NewGate(tokens, st.users, logger)
	users := services.NewUserService(logger, st.users, config.SearchLimit)
	dispatcher := websocket.NewDispatcher(logger,
		services.NewChatService(logger, st.users, st.chats, st.messages),
		services.NewMessageService(logger, st.users, st.chats, st.messages, st.reads, registry, fanout, censor, config.MaxContentLength),
		services.NewReadService(logger, st.chats, st.messages, st.reads),
		presence,
		users,
	)

	wsConfig := websocket.DefaultConfig()
	wsConfig.MaxMessageSize = config.MaxMessageSize
	wsConfig.ConnectionBuffer = config.ConnectionBufferSize
	wsConfig.RateLimitBurst = config.RateLimitBurst
	wsConfig.RateLimitInterval = config.RateLimitInterval
	wsConfig.SinkTimeout = config.SinkTimeout
	wsServer := websocket.NewServer(logger, presence, registry, dispatcher,
		websocket.NewOriginPolicy(logger, config.Origins()), wsConfig)

	handler := api.NewHandler(logger, services.NewAuthService(logger, st.users, tokens), users, registry)
	corsOrigins := config.Origins()
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           api.NewRouter(logger, handler, gate, wsServer, corsOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Start
	errChan := make(chan error, 2)
	supervisorDone := make(chan struct{})
	// Workers outlive the signal: closing sessions still publishes presence.
	go func() {
		defer close(supervisorDone)
		sup.Run(context.Background())
	}()

	var healthServer *health.Server
	if config.GRPCHealthPort > 0 {
		address := fmt.Sprintf("%s:%d", config.Host, config.GRPCHealthPort)
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
		}
		healthServer = health.NewServer(logger)
		go func() {
			if err := healthServer.Serve(listener); err != nil {
				errChan <- err
			}
		}()
	}

	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "storage", config.StorageDriver, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()
	if healthServer != nil {
		healthServer.SetServing(true)
	}

	// 6. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 7. Graceful shutdown: stop accepting, close sessions, drain workers.
	logger.Info("Shutting down gracefully...")
	if healthServer != nil {
		healthServer.SetServing(false)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("WebSocket shutdown incomplete", "error", err)
	}
	sup.Stop()
	select {
	case <-supervisorDone:
	case <-shutdownCtx.Done():
		logger.Warn("Workers did not stop in time")
	}
	if healthServer != nil {
		healthServer.Stop()
	}
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func openStores(ctx context.Context, config internal.Config, logger *slog.Logger) (stores, error) {
	if config.StorageDriver == internal.DriverPostgres {
		db, err := postgres.Open(ctx, config.DatabaseURL, config.DatabaseMaxConns)
		if err != nil {
			return stores{}, fmt.Errorf("database opening failed: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, fmt.Errorf("schema bootstrap failed: %w", err)
		}
		return stores{
			users:    postgres.NewUserRepository(db, logger),
			chats:    postgres.NewChatRepository(db, logger),
			messages: postgres.NewMessageRepository(db, logger),
			reads:    postgres.NewReadRepository(db, logger),
			close: func() {
				logger.Info("Closing Postgres...")
				_ = db.Close()
			},
		}, nil
	}

	db, err := storage.OpenBadger(config.BadgerFilepath)
	if err != nil {
		return stores{}, fmt.Errorf("database opening failed: %w", err)
	}
	index, err := storage.OpenUserIndex(config.BlugeFilepath)
	if err != nil {
		_ = db.Close()
		return stores{}, err
	}
	users := storage.NewUserRepository(db, index, logger)
	// Badger is the source of truth: the index is rebuilt from it on every start.
	count, err := users.Reindex(ctx)
	if err != nil {
		_ = index.Close()
		_ = db.Close()
		return stores{}, fmt.Errorf("search index rebuild failed: %w", err)
	}
	logger.Info("Search index rebuilt", "users", count)

	if config.DebugPort > 0 {
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
		database.StartDebugServer(db, config.DebugPort, "/inspect", recordMapper)
	}
	return stores{
		users:    users,
		chats:    storage.NewChatRepository(db, logger),
		messages: storage.NewMessageRepository(db, logger),
		reads:    storage.NewReadRepository(db, logger),
		close: func() {
			logger.Info("Closing Bluge...")
			_ = index.Close()
			// Releases the directory lock and flushes the buffers.
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		},
	}, nil
}

// recordMapper renders users and chats in the debug inspector.
// Indexes and messages fall back to the raw value.
func recordMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	switch {
	case strings.HasPrefix(key, "user:"):
		var u domain.User
		if err := json.Unmarshal(val, &u); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "USER"
		row.Detail = fmt.Sprintf("%s <%s> %s", u.Username, u.Email, u.Status)
	case strings.HasPrefix(key, "chat:"):
		var c domain.Chat
		if err := json.Unmarshal(val, &c); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "DIRECT"
		if c.IsGroup {
			row.Type = "GROUP"
		}
		row.Detail = fmt.Sprintf("%s %v", c.Name, c.Participants)
	}
	return row
}
