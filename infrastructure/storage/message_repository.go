package storage

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// StoreMessage persists a message under "msg:{chat}:{unix nano 19}:{id}".
// The zero padded timestamp makes a prefix scan return the chat in
// chronological order; the id separates messages sharing a timestamp.
// The chat record is bumped in the same transaction, so a listing never
// sees a message without the activity it implies.
func (r *MessageRepository) StoreMessage(_ context.Context, message domain.Message) error {
	key := messageKey(message.ChatID, message.CreatedAt.UnixNano(), message.ID)
	return update(r.db, func(txn *badger.Txn) error {
		if err := touchChat(txn, message.ChatID, message.CreatedAt); err != nil {
			return err
		}
		if err := setJSON(txn, key, message); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.ID), key)
	})
}

func (r *MessageRepository) GetMessage(_ context.Context, id string) (domain.Message, error) {
	var message domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		return getMessage(txn, id, &message)
	})
	return message, err
}

func (r *MessageRepository) GetMessages(_ context.Context, chatID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := messagesOf(chatID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var message domain.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	return messages, err
}

// GetLastMessage seeks past the highest possible timestamp and walks back once.
func (r *MessageRepository) GetLastMessage(_ context.Context, chatID string) (*domain.Message, error) {
	var last *domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := messagesOf(chatID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchSize = 1
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(append(prefix, 0xFF))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		var message domain.Message
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		})
		if err != nil {
			return err
		}
		last = &message
		return nil
	})
	return last, err
}

func getMessage(txn *badger.Txn, id string, message *domain.Message) error {
	key, err := getString(txn, messageIDKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	err = getJSON(txn, []byte(key), message)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrMessageNotFound
	}
	return err
}
