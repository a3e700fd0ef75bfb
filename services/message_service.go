package services

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/repositories"
	"chat-hub/runtime"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageService interface {
	Submit(ctx context.Context, cmd domain.PostMessageCommand) (domain.MessageView, error)
	List(ctx context.Context, userID, chatID string) ([]domain.MessageView, error)
	Subscribe(ctx context.Context, session contract.Session, chatID string) error
	Unsubscribe(session contract.Session, chatID string)
}

// Censor rewrites forbidden words. It returns the words it found.
type Censor interface {
	Censor(content string) (string, []string)
}

// MessageService is the message pipeline: validate, persist, enrich, fan out.
// Writes to one chat are serialized, so timestamps are strictly increasing
// per chat and subscribers receive messages in persistence order.
type MessageService struct {
	log              *slog.Logger
	users            repositories.IUserRepository
	chats            repositories.IChatRepository
	messages         repositories.IMessageRepository
	reads            repositories.IReadRepository
	registry         contract.IRegistry
	publisher        contract.Publisher
	censor           Censor
	locks            *runtime.KeyedMutex
	maxContentLength int
	now              func() time.Time
}

func NewMessageService(
	log *slog.Logger,
	users repositories.IUserRepository,
	chats repositories.IChatRepository,
	messages repositories.IMessageRepository,
	reads repositories.IReadRepository,
	registry contract.IRegistry,
	publisher contract.Publisher,
	censor Censor,
	maxContentLength int,
) *MessageService {
	return &MessageService{
		log:              log,
		users:            users,
		chats:            chats,
		messages:         messages,
		reads:            reads,
		registry:         registry,
		publisher:        publisher,
		censor:           censor,
		locks:            runtime.NewKeyedMutex(),
		maxContentLength: maxContentLength,
		now:              time.Now,
	}
}

// Submit persists the message then publishes it to the chat subscribers.
// Nothing is broadcast when persistence fails.
func (s *MessageService) Submit(ctx context.Context, cmd domain.PostMessageCommand) (domain.MessageView, error) {
	if err := s.validate(&cmd); err != nil {
		return domain.MessageView{}, err
	}

	chat, err := s.chats.GetChat(ctx, cmd.ChatID)
	if err != nil {
		return domain.MessageView{}, err
	}
	if !chat.HasParticipant(cmd.SenderID) {
		return domain.MessageView{}, errors.ErrNotParticipant
	}

	var reply *domain.Message
	if cmd.ReplyToID != nil {
		target, err := s.messages.GetMessage(ctx, *cmd.ReplyToID)
		if err != nil {
			return domain.MessageView{}, fmt.Errorf("reply target: %w", err)
		}
		if target.ChatID != cmd.ChatID {
			return domain.MessageView{}, fmt.Errorf("%w: reply target belongs to another chat", errors.ErrMessageNotFound)
		}
		reply = &target
	}

	if s.censor != nil && cmd.Content != nil {
		censored, words := s.censor.Censor(*cmd.Content)
		if len(words) > 0 {
			observability.MessagesBlocked.Inc()
			s.log.Debug("Message censored", "chat_id", cmd.ChatID, "sender_id", cmd.SenderID, "words", words)
			cmd.Content = &censored
		}
	}

	sender, err := s.users.GetUser(ctx, cmd.SenderID)
	if err != nil {
		return domain.MessageView{}, fmt.Errorf("load sender: %w", err)
	}
	users := map[string]domain.User{sender.ID: sender}

	unlock := s.locks.Lock(cmd.ChatID)
	defer unlock()

	createdAt, err := s.nextTimestamp(ctx, cmd.ChatID)
	if err != nil {
		return domain.MessageView{}, err
	}
	message := domain.Message{
		ID:        uuid.NewString(),
		ChatID:    cmd.ChatID,
		SenderID:  cmd.SenderID,
		Content:   cmd.Content,
		Type:      cmd.Type,
		File:      cmd.File,
		ReplyToID: cmd.ReplyToID,
		CreatedAt: createdAt,
	}
	if err = s.messages.StoreMessage(ctx, message); err != nil {
		s.log.Error("Failed to persist message", "chat_id", cmd.ChatID, "sender_id", cmd.SenderID, "error", err)
		return domain.MessageView{}, fmt.Errorf("store message: %w", err)
	}
	observability.MessagesPersisted.WithLabelValues(string(message.Type)).Inc()

	view := messageView(message, users, reply, nil)
	if err = s.publisher.Publish(ctx, event.Broadcast{Event: event.NewMessage{Message: view}}); err != nil {
		s.log.Warn("Message persisted but not broadcast", "chat_id", cmd.ChatID, "message_id", message.ID, "error", err)
	}
	s.log.Debug("Message submitted", "chat_id", cmd.ChatID, "message_id", message.ID, "type", message.Type)
	return view, nil
}

// nextTimestamp returns now at microsecond precision, bumped past the last
// message of the chat when the clock did not move. Must be called under the
// chat lock.
func (s *MessageService) nextTimestamp(ctx context.Context, chatID string) (time.Time, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	last, err := s.messages.GetLastMessage(ctx, chatID)
	if err != nil {
		return time.Time{}, fmt.Errorf("last message of %s: %w", chatID, err)
	}
	if last != nil && !now.After(last.CreatedAt) {
		now = last.CreatedAt.UTC().Add(time.Microsecond)
	}
	return now, nil
}

func (s *MessageService) validate(cmd *domain.PostMessageCommand) error {
	if cmd.ChatID == "" {
		return errors.Invalid(fmt.Errorf("chatId is required"))
	}
	if cmd.Type == "" {
		cmd.Type = domain.MessageText
	}
	if cmd.ReplyToID != nil && *cmd.ReplyToID == "" {
		cmd.ReplyToID = nil
	}
	if _, err := domain.ParseMessageType(string(cmd.Type)); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessageType, err)
	}
	if cmd.Content != nil && len(*cmd.Content) > s.maxContentLength {
		return errors.Invalid(fmt.Errorf("content exceeds %d bytes", s.maxContentLength))
	}

	if !cmd.Type.IsFile() {
		if cmd.Content == nil || strings.TrimSpace(*cmd.Content) == "" {
			return errors.Invalid(fmt.Errorf("text message requires content"))
		}
		cmd.File = nil
		return nil
	}
	if cmd.File == nil {
		return errors.Invalid(fmt.Errorf("%s message requires fileUrl", cmd.Type))
	}
	if err := validate.Struct(cmd.File); err != nil {
		return errors.Invalid(err)
	}
	if cmd.Content != nil && *cmd.Content == "" {
		cmd.Content = nil
	}
	return nil
}

// List returns the messages of the chat in ascending creation order with
// sender, reply and read marks attached.
func (s *MessageService) List(ctx context.Context, userID, chatID string) ([]domain.MessageView, error) {
	if err := s.requireParticipant(ctx, chatID, userID); err != nil {
		return nil, err
	}

	messages, err := s.messages.GetMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if len(messages) == 0 {
		return []domain.MessageView{}, nil
	}

	byID := lo.SliceToMap(messages, func(m domain.Message) (string, domain.Message) { return m.ID, m })
	senderIDs := lo.Uniq(lo.Map(messages, func(m domain.Message, _ int) string { return m.SenderID }))
	users, err := s.users.GetUsers(ctx, senderIDs)
	if err != nil {
		return nil, fmt.Errorf("load senders: %w", err)
	}
	reads, err := s.reads.GetReads(ctx, lo.Keys(byID))
	if err != nil {
		return nil, fmt.Errorf("load reads: %w", err)
	}

	views := make([]domain.MessageView, 0, len(messages))
	for _, m := range messages {
		var reply *domain.Message
		if m.ReplyToID != nil {
			if target, ok := byID[*m.ReplyToID]; ok {
				reply = &target
			}
		}
		views = append(views, messageView(m, users, reply, reads[m.ID]))
	}
	return views, nil
}

// Subscribe joins the session to the broadcast group of the chat.
// Only participants may listen to a chat.
func (s *MessageService) Subscribe(ctx context.Context, session contract.Session, chatID string) error {
	if err := s.requireParticipant(ctx, chatID, session.UserID()); err != nil {
		return err
	}
	s.registry.Join(chatID, session)
	s.log.Debug("Session subscribed", "chat_id", chatID, "user_id", session.UserID())
	return nil
}

func (s *MessageService) Unsubscribe(session contract.Session, chatID string) {
	s.registry.Leave(chatID, session)
	s.log.Debug("Session unsubscribed", "chat_id", chatID, "user_id", session.UserID())
}

func (s *MessageService) requireParticipant(ctx context.Context, chatID, userID string) error {
	if chatID == "" {
		return errors.Invalid(fmt.Errorf("chatId is required"))
	}
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return errors.ErrNotParticipant
	}
	return nil
}
