package services

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/mocks"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type readFixture struct {
	chats    *mocks.MockIChatRepository
	messages *mocks.MockIMessageRepository
	reads    *mocks.MockIReadRepository
	svc      *ReadService
}

func newReadFixture(t *testing.T) readFixture {
	ctrl := gomock.NewController(t)
	f := readFixture{
		chats:    mocks.NewMockIChatRepository(ctrl),
		messages: mocks.NewMockIMessageRepository(ctrl),
		reads:    mocks.NewMockIReadRepository(ctrl),
	}
	f.svc = NewReadService(testLogger(), f.chats, f.messages, f.reads)
	return f
}

func TestReadService_MarkRead_Repeat_Is_Silent(t *testing.T) {
	req := require.New(t)
	f := newReadFixture(t)
	ctx := context.Background()

	f.messages.EXPECT().GetMessage(ctx, "m1").Return(domain.Message{ID: "m1", ChatID: "chat-1"}, nil).Times(2)
	f.chats.EXPECT().IsParticipant(ctx, "chat-1", "bob").Return(true, nil).Times(2)
	gomock.InOrder(
		f.reads.EXPECT().MarkRead(ctx, gomock.Any()).Return(true, nil),
		f.reads.EXPECT().MarkRead(ctx, gomock.Any()).Return(false, nil),
	)

	req.NoError(f.svc.MarkRead(ctx, "bob", "m1"))
	req.NoError(f.svc.MarkRead(ctx, "bob", "m1"))
}

func TestReadService_MarkRead_Unknown_Message(t *testing.T) {
	req := require.New(t)
	f := newReadFixture(t)
	ctx := context.Background()

	f.messages.EXPECT().GetMessage(ctx, "nope").Return(domain.Message{}, errors.ErrMessageNotFound)
	f.reads.EXPECT().MarkRead(gomock.Any(), gomock.Any()).Times(0)

	req.ErrorIs(f.svc.MarkRead(ctx, "bob", "nope"), errors.ErrMessageNotFound)
	req.ErrorIs(f.svc.MarkRead(ctx, "bob", ""), errors.ErrInvalidPayload)
}

func TestReadService_MarkRead_Outsider(t *testing.T) {
	req := require.New(t)
	f := newReadFixture(t)
	ctx := context.Background()

	f.messages.EXPECT().GetMessage(ctx, "m1").Return(domain.Message{ID: "m1", ChatID: "chat-1"}, nil)
	f.chats.EXPECT().IsParticipant(ctx, "chat-1", "eve").Return(false, nil)
	f.reads.EXPECT().MarkRead(gomock.Any(), gomock.Any()).Times(0)

	req.ErrorIs(f.svc.MarkRead(ctx, "eve", "m1"), errors.ErrNotParticipant)
}

func TestReadService_Readers(t *testing.T) {
	req := require.New(t)
	f := newReadFixture(t)
	ctx := context.Background()
	readAt := time.Now()

	// Given two messages of a chat alice takes part in
	f.messages.EXPECT().GetMessage(ctx, "m1").Return(domain.Message{ID: "m1", ChatID: "chat-1"}, nil)
	f.messages.EXPECT().GetMessage(ctx, "m2").Return(domain.Message{ID: "m2", ChatID: "chat-1"}, nil)
	f.chats.EXPECT().IsParticipant(ctx, "chat-1", "alice").Return(true, nil).Times(2)
	f.reads.EXPECT().GetReads(ctx, []string{"m1"}).
		Return(map[string][]domain.ReadMark{"m1": {{UserID: "bob", ReadAt: readAt}}}, nil)
	f.reads.EXPECT().GetReads(ctx, []string{"m2"}).Return(map[string][]domain.ReadMark{}, nil)

	// When she asks who read them
	readers, err := f.svc.Readers(ctx, "alice", "m1")

	// Then the marks come back, and an unread message yields an empty list
	req.NoError(err)
	req.Equal([]domain.ReadMark{{UserID: "bob", ReadAt: readAt}}, readers)

	readers, err = f.svc.Readers(ctx, "alice", "m2")
	req.NoError(err)
	req.NotNil(readers)
	req.Empty(readers)
}

func TestReadService_Readers_Outsider(t *testing.T) {
	req := require.New(t)
	f := newReadFixture(t)
	ctx := context.Background()

	// Given eve is not part of the message's chat
	f.messages.EXPECT().GetMessage(ctx, "m1").Return(domain.Message{ID: "m1", ChatID: "chat-1"}, nil)
	f.chats.EXPECT().IsParticipant(ctx, "chat-1", "eve").Return(false, nil)
	f.reads.EXPECT().GetReads(gomock.Any(), gomock.Any()).Times(0)

	// When she asks for the readers
	_, err := f.svc.Readers(ctx, "eve", "m1")

	// Then she is refused before any read mark is loaded
	req.ErrorIs(err, errors.ErrNotParticipant)

	_, err = f.svc.Readers(ctx, "eve", "")
	req.ErrorIs(err, errors.ErrInvalidPayload)
}
