package storage

import (
	"chat-hub/domain"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestReadRepository_MarkRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewReadRepository(openDB(t), testLogger())
	messageID, bob := uuid.NewString(), uuid.NewString()
	first := time.Now().UTC()

	// When bob marks the message twice
	created, err := repo.MarkRead(ctx, domain.MessageRead{MessageID: messageID, UserID: bob, ReadAt: first})
	req.NoError(err)
	req.True(created)
	created, err = repo.MarkRead(ctx, domain.MessageRead{MessageID: messageID, UserID: bob, ReadAt: first.Add(time.Minute)})
	req.NoError(err)
	req.False(created)

	// Then the read set holds one mark with the first timestamp
	reads, err := repo.GetReads(ctx, []string{messageID})
	req.NoError(err)
	req.Len(reads[messageID], 1)
	req.Equal(bob, reads[messageID][0].UserID)
	req.True(first.Equal(reads[messageID][0].ReadAt))
}

func TestReadRepository_Concurrent_MarkRead_Creates_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewReadRepository(openDB(t), testLogger())
	messageID, bob := uuid.NewString(), uuid.NewString()

	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkRead(ctx, domain.MessageRead{MessageID: messageID, UserID: bob, ReadAt: time.Now().UTC()})
			req.NoError(err)
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	req.Equal(int32(1), created.Load())
	reads, err := repo.GetReads(ctx, []string{messageID})
	req.NoError(err)
	req.Len(reads[messageID], 1)
}

func TestReadRepository_GetReads_Per_Message(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewReadRepository(openDB(t), testLogger())
	m1, m2 := uuid.NewString(), uuid.NewString()
	at := time.Now().UTC()

	_, err := repo.MarkRead(ctx, domain.MessageRead{MessageID: m1, UserID: "bob", ReadAt: at.Add(time.Second)})
	req.NoError(err)
	_, err = repo.MarkRead(ctx, domain.MessageRead{MessageID: m1, UserID: "carol", ReadAt: at})
	req.NoError(err)

	reads, err := repo.GetReads(ctx, []string{m1, m2})
	req.NoError(err)
	req.Len(reads[m1], 2)
	req.Equal("carol", reads[m1][0].UserID)
	req.Empty(reads[m2])
}
