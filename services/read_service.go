package services

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/repositories"
	"context"
	"fmt"
	"log/slog"
	"time"
)

type IReadService interface {
	MarkRead(ctx context.Context, userID, messageID string) error
	Readers(ctx context.Context, userID, messageID string) ([]domain.ReadMark, error)
}

// ReadService records read receipts. A (message, user) pair is marked at
// most once; marking it again is a no-op.
type ReadService struct {
	log      *slog.Logger
	chats    repositories.IChatRepository
	messages repositories.IMessageRepository
	reads    repositories.IReadRepository
	now      func() time.Time
}

func NewReadService(
	log *slog.Logger,
	chats repositories.IChatRepository,
	messages repositories.IMessageRepository,
	reads repositories.IReadRepository,
) *ReadService {
	return &ReadService{log: log, chats: chats, messages: messages, reads: reads, now: time.Now}
}

func (s *ReadService) MarkRead(ctx context.Context, userID, messageID string) error {
	if messageID == "" {
		return errors.Invalid(fmt.Errorf("messageId is required"))
	}
	if err := s.checkVisible(ctx, userID, messageID); err != nil {
		return err
	}

	created, err := s.reads.MarkRead(ctx, domain.MessageRead{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    s.now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if created {
		observability.ReadsRecorded.Inc()
		s.log.Debug("Message read", "message_id", messageID, "user_id", userID)
	}
	return nil
}

// Readers returns the read marks of the message, oldest first. Only
// participants of the message's chat may ask.
func (s *ReadService) Readers(ctx context.Context, userID, messageID string) ([]domain.ReadMark, error) {
	if messageID == "" {
		return nil, errors.Invalid(fmt.Errorf("messageId is required"))
	}
	if err := s.checkVisible(ctx, userID, messageID); err != nil {
		return nil, err
	}
	reads, err := s.reads.GetReads(ctx, []string{messageID})
	if err != nil {
		return nil, fmt.Errorf("load reads: %w", err)
	}
	if marks, ok := reads[messageID]; ok {
		return marks, nil
	}
	return []domain.ReadMark{}, nil
}

// checkVisible fails unless the message exists and userID takes part in its chat.
func (s *ReadService) checkVisible(ctx context.Context, userID, messageID string) error {
	message, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	member, err := s.chats.IsParticipant(ctx, message.ChatID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return errors.ErrNotParticipant
	}
	return nil
}
