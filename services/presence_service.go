package services

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/repositories"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type IPresenceService interface {
	Connected(ctx context.Context, session contract.Session) contract.Session
	Disconnected(ctx context.Context, session contract.Session, at time.Time)
	Activity(ctx context.Context, session contract.Session)
	Typing(ctx context.Context, session contract.Session, chatID string) error
	StopTyping(ctx context.Context, session contract.Session, chatID string) error
}

type activity struct {
	userID string
	last   time.Time
	away   bool
}

// PresenceService ties the session lifecycle to user status.
// Registering a session and queueing its status happen under one lock,
// so the queue sees transitions in the order sessions came and went.
// Typing indicators are only broadcast, never stored.
type PresenceService struct {
	log       *slog.Logger
	registry  contract.IRegistry
	chats     repositories.IChatRepository
	queue     contract.PresenceQueue
	publisher contract.Publisher
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*activity // session id -> activity
}

func NewPresenceService(
	log *slog.Logger,
	registry contract.IRegistry,
	chats repositories.IChatRepository,
	queue contract.PresenceQueue,
	publisher contract.Publisher,
) *PresenceService {
	return &PresenceService{
		log:       log,
		registry:  registry,
		chats:     chats,
		queue:     queue,
		publisher: publisher,
		now:       time.Now,
		sessions:  make(map[string]*activity),
	}
}

// Connected registers the session and marks its user online.
// It returns the session it superseded, which the caller must close.
func (p *PresenceService) Connected(ctx context.Context, session contract.Session) contract.Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	previous := p.registry.Register(session.UserID(), session)
	if previous != nil {
		delete(p.sessions, previous.ID())
		observability.SessionsReplaced.Inc()
	}
	p.sessions[session.ID()] = &activity{userID: session.UserID(), last: p.now()}
	observability.ConnectedSessions.Set(float64(p.registry.Count()))
	p.enqueue(ctx, domain.Online(session.UserID()))
	return previous
}

// Disconnected unregisters the session. The user goes offline only if this
// session was still the active one; a superseded session leaves no trace.
func (p *PresenceService) Disconnected(ctx context.Context, session contract.Session, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.sessions, session.ID())
	removed := p.registry.Unregister(session.UserID(), session)
	observability.ConnectedSessions.Set(float64(p.registry.Count()))
	if !removed {
		return
	}
	p.enqueue(ctx, domain.Offline(session.UserID(), at.UTC()))
}

// Activity records that the session did something. An away user comes back online.
func (p *PresenceService) Activity(ctx context.Context, session contract.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.sessions[session.ID()]
	if !ok {
		return
	}
	a.last = p.now()
	if a.away {
		a.away = false
		p.enqueue(ctx, domain.Online(a.userID))
	}
}

// MarkIdle moves sessions inactive for awayAfter to away and returns how many moved.
func (p *PresenceService) MarkIdle(ctx context.Context, now time.Time, awayAfter time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	marked := 0
	for _, a := range p.sessions {
		if a.away || now.Sub(a.last) < awayAfter {
			continue
		}
		a.away = true
		p.enqueue(ctx, domain.Away(a.userID))
		marked++
	}
	return marked
}

func (p *PresenceService) enqueue(ctx context.Context, u domain.PresenceUpdate) {
	if err := p.queue.Enqueue(ctx, u); err != nil {
		p.log.Warn("Presence update dropped", "user_id", u.UserID, "status", u.Status, "error", err)
	}
}

// Typing tells the other subscribers of the chat that the user is typing.
// The sender's own session never receives it.
func (p *PresenceService) Typing(ctx context.Context, session contract.Session, chatID string) error {
	return p.broadcastTyping(ctx, session, chatID, event.UserTyping{
		Chat:     chatID,
		UserID:   session.UserID(),
		Username: session.Username(),
	})
}

func (p *PresenceService) StopTyping(ctx context.Context, session contract.Session, chatID string) error {
	return p.broadcastTyping(ctx, session, chatID, event.UserStopTyping{
		Chat:   chatID,
		UserID: session.UserID(),
	})
}

func (p *PresenceService) broadcastTyping(ctx context.Context, session contract.Session, chatID string, e event.ChatEvent) error {
	if chatID == "" {
		return errors.Invalid(fmt.Errorf("chatId is required"))
	}
	member, err := p.chats.IsParticipant(ctx, chatID, session.UserID())
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return errors.ErrNotParticipant
	}
	return p.publisher.Publish(ctx, event.Broadcast{Event: e, ExceptSession: session.ID()})
}
