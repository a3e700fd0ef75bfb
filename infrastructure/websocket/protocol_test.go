package websocket

import (
	"chat-hub/errors"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestDecodeChatRef(t *testing.T) {
	req := require.New(t)

	id, err := decodeChatRef(json.RawMessage(`{"chatId":"c1"}`))
	req.NoError(err)
	req.Equal("c1", id)

	id, err = decodeChatRef(json.RawMessage(`"c2"`))
	req.NoError(err)
	req.Equal("c2", id)

	_, err = decodeChatRef(nil)
	req.ErrorIs(err, errors.ErrInvalidPayload)

	_, err = decodeChatRef(json.RawMessage(`{"chatId":`))
	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestSendMessagePayload_Command(t *testing.T) {
	req := require.New(t)
	var payload sendMessagePayload
	req.NoError(decode(json.RawMessage(`{"chatId":"c1","type":"image","fileUrl":"https://f/x.png","fileSize":12,"replyTo":"m0"}`), &payload))

	cmd := payload.command("alice")

	req.Equal("alice", cmd.SenderID)
	req.Nil(cmd.Content)
	req.NotNil(cmd.File)
	req.Equal(int64(12), cmd.File.Size)
	req.Equal("m0", *cmd.ReplyToID)
}

func TestErrorAck_Hides_Internal_Detail(t *testing.T) {
	req := require.New(t)

	ack := errorAck("7", errors.Invalid(json.Unmarshal([]byte("{"), &struct{}{})))
	req.False(ack.OK)
	req.Equal("invalid_payload", ack.Error.Code)

	ack = errorAck("8", errors.ErrSessionClosed)
	req.Equal(errors.CodeInternal, ack.Error.Code)
	req.Equal("internal error", ack.Error.Message)
}

func TestRateLimiter_Refills(t *testing.T) {
	req := require.New(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(2, time.Second)
	limiter.lastCheck = now
	limiter.now = func() time.Time { return now }

	req.True(limiter.allow())
	req.True(limiter.allow())
	req.False(limiter.allow())

	now = now.Add(500 * time.Millisecond)
	req.True(limiter.allow())
	req.False(limiter.allow())
}

func TestOriginPolicy(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	policy := NewOriginPolicy(log, []string{"https://Chat.Example.com", "not a url", ""})

	withOrigin := func(origin string) bool {
		r := httptest.NewRequest("GET", "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return policy.Check(r)
	}

	req.True(withOrigin(""))
	req.True(withOrigin("https://chat.example.com"))
	req.False(withOrigin("https://evil.example.com"))
	req.True(NewOriginPolicy(log, []string{"*"}).Check(httptest.NewRequest("GET", "/ws", nil)))
}
