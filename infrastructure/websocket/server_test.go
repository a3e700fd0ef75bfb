package websocket

import (
	"chat-hub/auth"
	"chat-hub/domain"
	"chat-hub/infrastructure/storage"
	"chat-hub/runtime"
	"chat-hub/runtime/workers"
	"chat-hub/services"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	gorilla "github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type hub struct {
	url    string
	tokens *auth.TokenManager
	users  *storage.UserRepository
	server *Server
}

func newHub(t *testing.T, cfg Config) hub {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	users := storage.NewUserRepository(db, storage.NewUserIndex(writer), log)
	chats := storage.NewChatRepository(db, log)
	messages := storage.NewMessageRepository(db, log)
	reads := storage.NewReadRepository(db, log)
	registry := runtime.NewRegistry()
	fanout := workers.NewEventFanoutWorker(log, registry, 256, cfg.SinkTimeout)
	presenceWorker := workers.NewPresenceWorker(log, users, 256)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = fanout.Run(ctx) }()
	go func() { _ = presenceWorker.Run(ctx) }()

	presence := services.NewPresenceService(log, registry, chats, presenceWorker, fanout)
	dispatcher := NewDispatcher(log,
		services.NewChatService(log, users, chats, messages),
		services.NewMessageService(log, users, chats, messages, reads, registry, fanout, nil, 4096),
		services.NewReadService(log, chats, messages, reads),
		presence,
		services.NewUserService(log, users, 20),
	)
	tokens := auth.NewTokenManager("a-long-enough-test-secret", "chat-hub", time.Hour)
	gate := auth.NewGate(tokens, users, log)
	server := NewServer(log, presence, registry, dispatcher, NewOriginPolicy(log, nil), cfg)

	httpServer := httptest.NewServer(gate.Middleware(server))
	t.Cleanup(func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = server.Shutdown(shutdownCtx)
		httpServer.Close()
		cancel()
	})
	return hub{
		url:    "ws" + strings.TrimPrefix(httpServer.URL, "http"),
		tokens: tokens,
		users:  users,
		server: server,
	}
}

func (h hub) createUser(t *testing.T, id, username string) string {
	t.Helper()
	_, err := h.users.CreateUser(context.Background(), domain.User{ID: id, Username: username, Email: username + "@example.com"})
	require.NoError(t, err)
	token, err := h.tokens.Generate(id)
	require.NoError(t, err)
	return token
}

type frame struct {
	ID    string          `json:"id"`
	Event string          `json:"event"`
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *AckError       `json:"error"`
}

type testClient struct {
	t      *testing.T
	conn   *gorilla.Conn
	nextID atomic.Int64
	mu     sync.Mutex
	acks   map[string]chan frame
	pushes chan frame
	closed chan struct{}
}

func (h hub) dial(t *testing.T, token string) *testClient {
	t.Helper()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := gorilla.DefaultDialer.Dial(h.url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()

	c := &testClient{
		t:      t,
		conn:   conn,
		acks:   make(map[string]chan frame),
		pushes: make(chan frame, 64),
		closed: make(chan struct{}),
	}
	go c.read()
	t.Cleanup(func() { _ = conn.Close() })
	return c
}

func (c *testClient) read() {
	defer close(c.closed)
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			return
		}
		if f.Event != ackEvent {
			c.pushes <- f
			continue
		}
		c.mu.Lock()
		ch, ok := c.acks[f.ID]
		c.mu.Unlock()
		if ok {
			ch <- f
		}
	}
}

func (c *testClient) request(event string, data any) frame {
	c.t.Helper()
	id := fmt.Sprint(c.nextID.Add(1))
	ch := make(chan frame, 1)
	c.mu.Lock()
	c.acks[id] = ch
	c.mu.Unlock()

	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(Request{ID: id, Event: event, Data: raw}))

	select {
	case f := <-ch:
		return f
	case <-time.After(3 * time.Second):
		c.t.Fatalf("no ack for %s", event)
		return frame{}
	}
}

// send writes a request without waiting for its ack.
func (c *testClient) send(event string, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(Request{ID: fmt.Sprint(c.nextID.Add(1)), Event: event, Data: raw}))
}

func (c *testClient) nextPush() frame {
	c.t.Helper()
	select {
	case f := <-c.pushes:
		return f
	case <-time.After(3 * time.Second):
		c.t.Fatal("no push received")
		return frame{}
	}
}

func decodeAck[T any](t *testing.T, f frame, key string) T {
	t.Helper()
	require.True(t, f.OK, "ack failed: %+v", f.Error)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(f.Data, &body))
	var v T
	require.NoError(t, json.Unmarshal(body[key], &v))
	return v
}

func TestServer_Rejects_Missing_Credential(t *testing.T) {
	req := require.New(t)
	h := newHub(t, DefaultConfig())

	_, resp, err := gorilla.DefaultDialer.Dial(h.url, nil)

	req.ErrorIs(err, gorilla.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestServer_End_To_End(t *testing.T) {
	req := require.New(t)
	h := newHub(t, DefaultConfig())
	alice := h.dial(t, h.createUser(t, "1", "alice"))
	bob := h.dial(t, h.createUser(t, "2", "bob"))

	// Given both users creating the chat for each other concurrently
	var wg sync.WaitGroup
	acks := make([]frame, 2)
	wg.Add(2)
	go func() { defer wg.Done(); acks[0] = alice.request(EventCreateChat, map[string]any{"participantId": "2"}) }()
	go func() { defer wg.Done(); acks[1] = bob.request(EventCreateChat, map[string]any{"participantId": "1"}) }()
	wg.Wait()

	// Then both observe the same chat
	chatA := decodeAck[domain.ChatView](t, acks[0], "chat")
	chatB := decodeAck[domain.ChatView](t, acks[1], "chat")
	req.Equal(chatA.ID, chatB.ID)
	chats := decodeAck[[]domain.ChatView](t, alice.request(EventListChats, nil), "chats")
	req.Len(chats, 1)

	// When alice sends "hi" while bob is subscribed
	req.True(bob.request(EventSubscribeChat, map[string]any{"chatId": chatA.ID}).OK)
	requestedAt := time.Now().UTC().Truncate(time.Microsecond)
	sendAck := alice.request(EventSendMessage, map[string]any{"chatId": chatA.ID, "content": "hi", "type": "text"})
	req.True(sendAck.OK)

	// Then bob receives the new message
	pushed := bob.nextPush()
	req.Equal("new-message", pushed.Event)
	var message domain.MessageView
	req.NoError(json.Unmarshal(pushed.Data, &message))
	req.Equal("hi", *message.Content)
	req.Equal("1", message.SenderID)
	req.False(message.CreatedAt.Before(requestedAt))

	// When bob marks it read twice
	req.True(bob.request(EventMarkRead, map[string]any{"messageId": message.ID}).OK)
	req.True(bob.request(EventMarkRead, map[string]any{"messageId": message.ID}).OK)

	// Then the history shows one read mark
	history := decodeAck[[]domain.MessageView](t, alice.request(EventListMessages, map[string]any{"chatId": chatA.ID}), "messages")
	req.Len(history, 1)
	req.Len(history[0].Reads, 1)
	req.Equal("2", history[0].Reads[0].UserID)

	// And the sender can ask who read it
	readers := decodeAck[[]domain.ReadMark](t, alice.request(EventGetReaders, map[string]any{"messageId": message.ID}), "readers")
	req.Len(readers, 1)
	req.Equal("2", readers[0].UserID)

	// And typing reaches bob only
	req.True(alice.request(EventTyping, map[string]any{"chatId": chatA.ID}).OK)
	typing := bob.nextPush()
	req.Equal("user-typing", typing.Event)
	select {
	case f := <-alice.pushes:
		t.Fatalf("sender received %s", f.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServer_Errors_Keep_Connection_Open(t *testing.T) {
	req := require.New(t)
	h := newHub(t, DefaultConfig())
	alice := h.dial(t, h.createUser(t, "1", "alice"))

	unknown := alice.request("dance", nil)
	req.False(unknown.OK)
	req.Equal("unknown_event", unknown.Error.Code)

	missing := alice.request(EventListMessages, map[string]any{"chatId": "nope"})
	req.False(missing.OK)
	req.Equal("chat_not_found", missing.Error.Code)

	readers := alice.request(EventGetReaders, map[string]any{"messageId": "nope"})
	req.False(readers.OK)
	req.Equal("message_not_found", readers.Error.Code)

	search := alice.request(EventSearchUsers, map[string]any{"query": ""})
	req.Equal("invalid_payload", search.Error.Code)

	// The connection is still usable
	req.True(alice.request(EventListChats, nil).OK)
}

func TestServer_Search_Excludes_Self(t *testing.T) {
	req := require.New(t)
	h := newHub(t, DefaultConfig())
	alice := h.dial(t, h.createUser(t, "1", "alice"))
	h.createUser(t, "2", "alina")

	users := decodeAck[[]map[string]any](t, alice.request(EventSearchUsers, map[string]any{"query": "AL"}), "users")

	req.Len(users, 1)
	req.Equal("2", users[0]["id"])
	for _, u := range users {
		req.NotContains(u, "passwordHash")
		req.NotContains(u, "PasswordHash")
	}
}

func TestServer_Rate_Limit(t *testing.T) {
	req := require.New(t)
	cfg := DefaultConfig()
	cfg.RateLimitBurst = 2
	cfg.RateLimitInterval = time.Hour
	h := newHub(t, cfg)
	alice := h.dial(t, h.createUser(t, "1", "alice"))

	req.True(alice.request(EventListChats, nil).OK)
	req.True(alice.request(EventListChats, nil).OK)
	limited := alice.request(EventListChats, nil)

	req.False(limited.OK)
	req.Equal("rate_limited", limited.Error.Code)
}

func TestServer_Second_Login_Replaces_First(t *testing.T) {
	req := require.New(t)
	h := newHub(t, DefaultConfig())
	token := h.createUser(t, "1", "alice")
	first := h.dial(t, token)
	req.True(first.request(EventListChats, nil).OK)

	second := h.dial(t, token)

	replaced := first.nextPush()
	req.Equal("session-replaced", replaced.Event)
	select {
	case <-first.closed:
	case <-time.After(3 * time.Second):
		t.Fatal("superseded connection was not closed")
	}
	req.True(second.request(EventListChats, nil).OK)
}

func TestServer_Sender_Disconnecting_Mid_Request_Still_Delivers(t *testing.T) {
	req := require.New(t)
	h := newHub(t, DefaultConfig())
	aliceToken := h.createUser(t, "1", "alice")
	alice := h.dial(t, aliceToken)
	bob := h.dial(t, h.createUser(t, "2", "bob"))

	// Given a chat bob is subscribed to
	chat := decodeAck[domain.ChatView](t, alice.request(EventCreateChat, map[string]any{"participantId": "2"}), "chat")
	req.True(bob.request(EventSubscribeChat, map[string]any{"chatId": chat.ID}).OK)

	// When alice sends a message and drops the socket without waiting for the ack
	alice.send(EventSendMessage, map[string]any{"chatId": chat.ID, "content": "bye", "type": "text"})
	req.NoError(alice.conn.Close())

	// Then bob still receives it
	pushed := bob.nextPush()
	req.Equal("new-message", pushed.Event)
	var message domain.MessageView
	req.NoError(json.Unmarshal(pushed.Data, &message))
	req.Equal("bye", *message.Content)

	// And it is part of the history alice sees after reconnecting
	back := h.dial(t, aliceToken)
	history := decodeAck[[]domain.MessageView](t, back.request(EventListMessages, map[string]any{"chatId": chat.ID}), "messages")
	req.Len(history, 1)
	req.Equal(message.ID, history[0].ID)
}
