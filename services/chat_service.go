package services

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/repositories"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

type IChatService interface {
	CreateGroup(ctx context.Context, cmd domain.CreateGroupCommand) (domain.ChatView, error)
	CreateOrGetDirect(ctx context.Context, userID, otherID string) (domain.ChatView, error)
	ListChats(ctx context.Context, userID string) ([]domain.ChatView, error)
	GetChat(ctx context.Context, userID, chatID string) (domain.ChatView, error)
}

// ChatService resolves chat membership.
// Groups are always created; direct chats are created once per user pair,
// the store owning that uniqueness.
type ChatService struct {
	log      *slog.Logger
	users    repositories.IUserRepository
	chats    repositories.IChatRepository
	messages repositories.IMessageRepository
}

func NewChatService(
	log *slog.Logger,
	users repositories.IUserRepository,
	chats repositories.IChatRepository,
	messages repositories.IMessageRepository,
) *ChatService {
	return &ChatService{log: log, users: users, chats: chats, messages: messages}
}

// CreateGroup creates a group administered by the creator.
// The creator is always a participant, duplicated members are ignored.
func (s *ChatService) CreateGroup(ctx context.Context, cmd domain.CreateGroupCommand) (domain.ChatView, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if err := validate.Struct(cmd); err != nil {
		return domain.ChatView{}, errors.Invalid(err)
	}

	participants := lo.Uniq(append([]string{cmd.CreatorID}, cmd.MemberIDs...))
	users, err := s.users.GetUsers(ctx, participants)
	if err != nil {
		return domain.ChatView{}, fmt.Errorf("load participants: %w", err)
	}
	if missing := missingUsers(participants, users); len(missing) > 0 {
		return domain.ChatView{}, fmt.Errorf("%w: %s", errors.ErrUserNotFound, strings.Join(missing, ", "))
	}

	chat, err := s.chats.CreateGroup(ctx, domain.Chat{
		Name:         cmd.Name,
		AdminID:      cmd.CreatorID,
		Participants: participants,
	})
	if err != nil {
		return domain.ChatView{}, fmt.Errorf("create group: %w", err)
	}
	observability.ChatsCreated.WithLabelValues("group").Inc()
	s.log.Info("Group chat created", "chat_id", chat.ID, "admin_id", chat.AdminID, "participants", len(participants))

	return chatView(chat, users, cmd.CreatorID, true, nil), nil
}

// CreateOrGetDirect returns the direct chat between userID and otherID,
// creating it on first use. Concurrent calls for the same pair, from either
// side, all get the same chat.
func (s *ChatService) CreateOrGetDirect(ctx context.Context, userID, otherID string) (domain.ChatView, error) {
	if otherID == "" {
		return domain.ChatView{}, errors.Invalid(fmt.Errorf("participantId is required"))
	}
	if userID == otherID {
		return domain.ChatView{}, errors.ErrSelfDirectChat
	}
	if _, err := s.users.GetUser(ctx, otherID); err != nil {
		return domain.ChatView{}, err
	}

	chat, created, err := s.chats.FindOrCreateDirect(ctx, userID, otherID)
	if err != nil {
		return domain.ChatView{}, fmt.Errorf("resolve direct chat: %w", err)
	}
	if created {
		observability.ChatsCreated.WithLabelValues("direct").Inc()
		s.log.Info("Direct chat created", "chat_id", chat.ID, "user_id", userID, "other_id", otherID)
	}
	return s.view(ctx, chat, userID)
}

// ListChats returns the chats of userID, most recently active first.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]domain.ChatView, error) {
	chats, err := s.chats.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	ids := lo.Uniq(lo.FlatMap(chats, func(c domain.Chat, _ int) []string { return c.Participants }))
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}

	views := make([]domain.ChatView, 0, len(chats))
	for _, chat := range chats {
		last, err := s.lastMessage(ctx, chat.ID, users)
		if err != nil {
			return nil, err
		}
		views = append(views, chatView(chat, users, userID, false, last))
	}
	return views, nil
}

func (s *ChatService) GetChat(ctx context.Context, userID, chatID string) (domain.ChatView, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return domain.ChatView{}, err
	}
	if !chat.HasParticipant(userID) {
		return domain.ChatView{}, errors.ErrNotParticipant
	}
	return s.view(ctx, chat, userID)
}

func (s *ChatService) view(ctx context.Context, chat domain.Chat, viewerID string) (domain.ChatView, error) {
	users, err := s.users.GetUsers(ctx, chat.Participants)
	if err != nil {
		return domain.ChatView{}, fmt.Errorf("load participants: %w", err)
	}
	last, err := s.lastMessage(ctx, chat.ID, users)
	if err != nil {
		return domain.ChatView{}, err
	}
	return chatView(chat, users, viewerID, false, last), nil
}

func (s *ChatService) lastMessage(ctx context.Context, chatID string, users map[string]domain.User) (*domain.MessageView, error) {
	last, err := s.messages.GetLastMessage(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("last message of %s: %w", chatID, err)
	}
	if last == nil {
		return nil, nil
	}
	view := messageView(*last, users, nil, nil)
	return &view, nil
}
