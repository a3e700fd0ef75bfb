package storage

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/observability"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type ChatRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewChatRepository(db *badger.DB, log *slog.Logger) *ChatRepository {
	return &ChatRepository{db: db, log: log}
}

func (r *ChatRepository) CreateGroup(_ context.Context, chat domain.Chat) (domain.Chat, error) {
	now := time.Now().UTC()
	chat.ID = uuid.NewString()
	chat.IsGroup = true
	chat.CreatedAt, chat.UpdatedAt = now, now

	err := update(r.db, func(txn *badger.Txn) error {
		return putChat(txn, chat)
	})
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// FindOrCreateDirect reads and writes the pair key in one serializable
// transaction. When two callers race on the same pair, Badger aborts the
// late committer with ErrConflict; it then runs again and finds the winner.
func (r *ChatRepository) FindOrCreateDirect(_ context.Context, userA, userB string) (domain.Chat, bool, error) {
	key := directKey(userA, userB)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		var chat domain.Chat
		created := false
		err := r.db.Update(func(txn *badger.Txn) error {
			chatID, err := getString(txn, key)
			switch {
			case err == nil:
				return getChat(txn, chatID, &chat)
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			now := time.Now().UTC()
			chat = domain.Chat{
				ID:           uuid.NewString(),
				Participants: []string{userA, userB},
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err = putChat(txn, chat); err != nil {
				return err
			}
			created = true
			return txn.Set(key, []byte(chat.ID))
		})
		if errors.Is(err, badger.ErrConflict) {
			observability.DirectChatConflicts.Inc()
			r.log.Debug("Direct chat creation conflicted, retrying", "pair", string(key), "attempt", attempt)
			continue
		}
		if err != nil {
			return domain.Chat{}, false, err
		}
		return chat, created, nil
	}
	return domain.Chat{}, false, fmt.Errorf("direct chat %s: %w", key, badger.ErrConflict)
}

func (r *ChatRepository) GetChat(_ context.Context, id string) (domain.Chat, error) {
	var chat domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		return getChat(txn, id, &chat)
	})
	return chat, err
}

func (r *ChatRepository) ListChatsForUser(_ context.Context, userID string) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := memberKey(userID, "")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		for _, id := range ids {
			var chat domain.Chat
			err := getChat(txn, id, &chat)
			if errors.Is(err, errors.ErrChatNotFound) {
				r.log.Warn("Dangling membership", "user_id", userID, "chat_id", id)
				continue
			}
			if err != nil {
				return err
			}
			chats = append(chats, chat)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(chats, func(a, b domain.Chat) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return chats, nil
}

func (r *ChatRepository) IsParticipant(_ context.Context, chatID, userID string) (bool, error) {
	var found bool
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = exists(txn, memberKey(userID, chatID))
		return err
	})
	return found, err
}

// touchChat moves the recency marker of the chat forward to at. It never
// moves backwards.
func touchChat(txn *badger.Txn, chatID string, at time.Time) error {
	var chat domain.Chat
	if err := getChat(txn, chatID, &chat); err != nil {
		return err
	}
	if !at.After(chat.UpdatedAt) {
		return nil
	}
	chat.UpdatedAt = at.UTC()
	return setJSON(txn, chatKey(chatID), chat)
}

func putChat(txn *badger.Txn, chat domain.Chat) error {
	if err := setJSON(txn, chatKey(chat.ID), chat); err != nil {
		return err
	}
	for _, edge := range chat.Edges() {
		if err := txn.Set(memberKey(edge.UserID, edge.ChatID), []byte{}); err != nil {
			return err
		}
	}
	return nil
}

func getChat(txn *badger.Txn, id string, chat *domain.Chat) error {
	err := getJSON(txn, chatKey(id), chat)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrChatNotFound
	}
	return err
}
