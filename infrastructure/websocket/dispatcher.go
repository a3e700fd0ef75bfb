package websocket

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/services"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

type handlerFunc func(ctx context.Context, session contract.Session, req Request) (any, error)

// Dispatcher routes requests to the services. It owns no state.
type Dispatcher struct {
	log      *slog.Logger
	chats    services.IChatService
	messages services.IMessageService
	reads    services.IReadService
	presence services.IPresenceService
	users    services.IUserService
	handlers map[string]handlerFunc
}

func NewDispatcher(
	log *slog.Logger,
	chats services.IChatService,
	messages services.IMessageService,
	reads services.IReadService,
	presence services.IPresenceService,
	users services.IUserService,
) *Dispatcher {
	d := &Dispatcher{log: log, chats: chats, messages: messages, reads: reads, presence: presence, users: users}
	d.handlers = map[string]handlerFunc{
		EventListChats:       d.listChats,
		EventGetChat:         d.getChat,
		EventCreateChat:      d.createChat,
		EventListMessages:    d.listMessages,
		EventSubscribeChat:   d.subscribeChat,
		EventUnsubscribeChat: d.unsubscribeChat,
		EventSendMessage:     d.sendMessage,
		EventMarkRead:        d.markRead,
		EventGetReaders:      d.getReaders,
		EventTyping:          d.typing,
		EventStopTyping:      d.stopTyping,
		EventSearchUsers:     d.searchUsers,
		EventUpdateProfile:   d.updateProfile,
		EventUpdatePrivacy:   d.updatePrivacy,
	}
	return d
}

// Dispatch runs the request and builds its ack. It never fails: every
// error becomes an error ack for the caller only.
func (d *Dispatcher) Dispatch(ctx context.Context, session contract.Session, req Request) Ack {
	name := req.Event
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	start := time.Now()

	handler, ok := d.handlers[name]
	if !ok {
		observability.RequestsTotal.WithLabelValues("unknown", errors.Code(errors.ErrUnknownEvent)).Inc()
		return errorAck(req.ID, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, req.Event))
	}

	d.presence.Activity(ctx, session)
	data, err := handler(ctx, session, req)
	observability.RequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		code := errors.Code(err)
		observability.RequestsTotal.WithLabelValues(name, code).Inc()
		if code == errors.CodeInternal {
			d.log.Error("Request failed", "event", name, "user_id", session.UserID(), "error", err)
		} else {
			d.log.Debug("Request rejected", "event", name, "user_id", session.UserID(), "code", code, "error", err)
		}
		return errorAck(req.ID, err)
	}
	observability.RequestsTotal.WithLabelValues(name, "ok").Inc()
	return okAck(req.ID, data)
}

func (d *Dispatcher) listChats(ctx context.Context, session contract.Session, _ Request) (any, error) {
	chats, err := d.chats.ListChats(ctx, session.UserID())
	if err != nil {
		return nil, err
	}
	return map[string]any{"chats": chats}, nil
}

func (d *Dispatcher) getChat(ctx context.Context, session contract.Session, req Request) (any, error) {
	chatID, err := decodeChatRef(req.Data)
	if err != nil {
		return nil, err
	}
	chat, err := d.chats.GetChat(ctx, session.UserID(), chatID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"chat": chat}, nil
}

func (d *Dispatcher) createChat(ctx context.Context, session contract.Session, req Request) (any, error) {
	var payload createChatPayload
	if err := decode(req.Data, &payload); err != nil {
		return nil, err
	}

	var (
		chat domain.ChatView
		err  error
	)
	if payload.IsGroup {
		chat, err = d.chats.CreateGroup(ctx, domain.CreateGroupCommand{
			CreatorID: session.UserID(),
			Name:      payload.Name,
			MemberIDs: lo.Uniq(append(payload.ParticipantIDs, payload.Participants...)),
		})
	} else {
		chat, err = d.chats.CreateOrGetDirect(ctx, session.UserID(), payload.ParticipantID)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"chat": chat}, nil
}

func (d *Dispatcher) listMessages(ctx context.Context, session contract.Session, req Request) (any, error) {
	chatID, err := decodeChatRef(req.Data)
	if err != nil {
		return nil, err
	}
	messages, err := d.messages.List(ctx, session.UserID(), chatID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"messages": messages}, nil
}

func (d *Dispatcher) subscribeChat(ctx context.Context, session contract.Session, req Request) (any, error) {
	chatID, err := decodeChatRef(req.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.messages.Subscribe(ctx, session, chatID)
}

func (d *Dispatcher) unsubscribeChat(_ context.Context, session contract.Session, req Request) (any, error) {
	chatID, err := decodeChatRef(req.Data)
	if err != nil {
		return nil, err
	}
	d.messages.Unsubscribe(session, chatID)
	return nil, nil
}

func (d *Dispatcher) sendMessage(ctx context.Context, session contract.Session, req Request) (any, error) {
	var payload sendMessagePayload
	if err := decode(req.Data, &payload); err != nil {
		return nil, err
	}
	message, err := d.messages.Submit(ctx, payload.command(session.UserID()))
	if err != nil {
		return nil, err
	}
	return map[string]any{"message": message}, nil
}

func (d *Dispatcher) markRead(ctx context.Context, session contract.Session, req Request) (any, error) {
	var payload markReadPayload
	if err := decode(req.Data, &payload); err != nil {
		return nil, err
	}
	return nil, d.reads.MarkRead(ctx, session.UserID(), payload.MessageID)
}

func (d *Dispatcher) getReaders(ctx context.Context, session contract.Session, req Request) (any, error) {
	var payload readersPayload
	if err := decode(req.Data, &payload); err != nil {
		return nil, err
	}
	readers, err := d.reads.Readers(ctx, session.UserID(), payload.MessageID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"readers": readers}, nil
}

func (d *Dispatcher) typing(ctx context.Context, session contract.Session, req Request) (any, error) {
	chatID, err := decodeChatRef(req.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.presence.Typing(ctx, session, chatID)
}

func (d *Dispatcher) stopTyping(ctx context.Context, session contract.Session, req Request) (any, error) {
	chatID, err := decodeChatRef(req.Data)
	if err != nil {
		return nil, err
	}
	return nil, d.presence.StopTyping(ctx, session, chatID)
}

func (d *Dispatcher) searchUsers(ctx context.Context, session contract.Session, req Request) (any, error) {
	var payload searchPayload
	if err := decode(req.Data, &payload); err != nil {
		return nil, err
	}
	users, err := d.users.Search(ctx, session.UserID(), payload.Query)
	if err != nil {
		return nil, err
	}
	return map[string]any{"users": users}, nil
}

func (d *Dispatcher) updateProfile(ctx context.Context, session contract.Session, req Request) (any, error) {
	var payload profilePayload
	if err := decode(req.Data, &payload); err != nil {
		return nil, err
	}
	user, err := d.users.UpdateProfile(ctx, session.UserID(), domain.ProfileUpdate{
		Username: payload.Username,
		Bio:      payload.Bio,
		Phone:    payload.Phone,
		Avatar:   payload.Avatar,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": user}, nil
}

func (d *Dispatcher) updatePrivacy(ctx context.Context, session contract.Session, req Request) (any, error) {
	var payload privacyPayload
	if err := decode(req.Data, &payload); err != nil {
		return nil, err
	}
	user, err := d.users.UpdatePrivacy(ctx, session.UserID(), payload.PrivacySettings)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": user}, nil
}
