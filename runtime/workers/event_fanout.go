package workers

import (
	"chat-hub/contract"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/observability"
	"context"
	"log/slog"
	"time"
)

// EventFanoutWorker delivers chat events to the sessions subscribed to the chat.
//
// Broadcasts are consumed from a single queue and delivered one at a time, so
// every session sees the events of a chat in the order they were published.
// A session that cannot accept an event within sinkTimeout is closed: one slow
// client never holds back the rest of the group.
type EventFanoutWorker struct {
	log         *slog.Logger
	registry    contract.IRegistry
	queue       chan event.Broadcast
	sinkTimeout time.Duration
}

func NewEventFanoutWorker(
	log *slog.Logger,
	registry contract.IRegistry,
	bufferSize int,
	sinkTimeout time.Duration,
) *EventFanoutWorker {
	return &EventFanoutWorker{
		log:         log,
		registry:    registry,
		queue:       make(chan event.Broadcast, bufferSize),
		sinkTimeout: sinkTimeout,
	}
}

// Publish enqueues b. It only blocks while the queue is full.
func (w *EventFanoutWorker) Publish(ctx context.Context, b event.Broadcast) error {
	select {
	case w.queue <- b:
		observability.FanoutQueueDepth.Set(float64(len(w.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *EventFanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case b := <-w.queue:
			observability.FanoutQueueDepth.Set(float64(len(w.queue)))
			w.Fanout(ctx, b)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout delivers b to every subscribed session except b.ExceptSession.
func (w *EventFanoutWorker) Fanout(ctx context.Context, b event.Broadcast) {
	sessions := w.registry.SessionsForChat(b.Event.ChatID())
	for _, s := range sessions {
		if b.ExceptSession != "" && s.ID() == b.ExceptSession {
			continue
		}
		w.deliver(ctx, s, b.Event)
	}
}

func (w *EventFanoutWorker) deliver(ctx context.Context, s contract.Session, e event.Event) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	err := s.Consume(sinkCtx, e)
	switch {
	case err == nil:
		observability.EventsDelivered.WithLabelValues(string(e.Name())).Inc()
	case errors.Is(err, errors.ErrSessionClosed):
		w.log.Debug("Session already closed", "session", s.ID(), "event", e.Name())
	default:
		w.log.Warn("Dropping slow session", "session", s.ID(), "user", s.UserID(), "event", e.Name(), "error", err)
		observability.SlowConsumers.Inc()
		s.Close()
	}
}
