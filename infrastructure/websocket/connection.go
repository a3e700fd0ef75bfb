package websocket

import (
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/sink"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	gorilla "github.com/gorilla/websocket"
)

// connection pumps one socket. The read pump handles requests one at a time,
// in arrival order; the write pump is the only writer of the socket.
type connection struct {
	log        *slog.Logger
	conn       *gorilla.Conn
	session    *sink.SessionSink
	dispatcher *Dispatcher
	limiter    *rateLimiter
	acks       chan Ack
	cfg        Config
}

func newConnection(log *slog.Logger, conn *gorilla.Conn, session *sink.SessionSink, dispatcher *Dispatcher, cfg Config) *connection {
	return &connection{
		log:        log.With("user_id", session.UserID(), "session", session.ID()),
		conn:       conn,
		session:    session,
		dispatcher: dispatcher,
		limiter:    newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitInterval),
		acks:       make(chan Ack, cfg.ConnectionBuffer),
		cfg:        cfg,
	}
}

// readPump returns when the socket fails or the peer goes away.
// ctx is detached from the socket: a request in flight still completes.
func (c *connection) readPump(ctx context.Context) {
	defer c.session.Close()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			c.reply(errorAck("", errors.Invalid(fmt.Errorf("malformed frame: %v", err))))
			continue
		}
		if !c.limiter.allow() {
			observability.RateLimitHits.Inc()
			c.log.Debug("Rate limit exceeded", "event", req.Event)
			c.reply(errorAck(req.ID, errors.ErrRateLimited))
			continue
		}
		c.reply(c.dispatcher.Dispatch(ctx, c.session, req))
	}
}

// reply queues an ack for the write pump. Acks of a closed session are discarded.
func (c *connection) reply(ack Ack) {
	select {
	case c.acks <- ack:
	case <-c.session.Done():
	}
}

func (c *connection) logReadError(err error) {
	switch {
	case errors.Is(err, gorilla.ErrReadLimit):
		c.log.Warn("Frame exceeded maximum size", "max_bytes", c.cfg.MaxMessageSize)
	case gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway),
		errors.Is(err, io.EOF):
		c.log.Debug("Peer closed the connection")
	case gorilla.IsUnexpectedCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway, gorilla.CloseAbnormalClosure):
		c.log.Warn("Unexpected close", "error", err)
	default:
		c.log.Debug("Read failed", "error", err)
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ack := <-c.acks:
			if !c.write(ack) {
				return
			}
		case e := <-c.session.Events():
			if !c.write(push(e)) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(gorilla.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed", "error", err)
				return
			}
		case <-c.session.Done():
			c.flush()
			_ = c.conn.WriteControl(gorilla.CloseMessage,
				gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}

func (c *connection) write(v any) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := c.conn.WriteJSON(v); err != nil {
		c.log.Debug("Write failed", "error", err)
		return false
	}
	return true
}

// flush writes what was queued before the session closed, such as the
// session-replaced notice.
func (c *connection) flush() {
	for {
		select {
		case ack := <-c.acks:
			if !c.write(ack) {
				return
			}
		case e := <-c.session.Events():
			if !c.write(push(e)) {
				return
			}
		default:
			return
		}
	}
}
