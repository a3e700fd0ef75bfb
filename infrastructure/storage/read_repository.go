package storage

import (
	"chat-hub/domain"
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
)

type ReadRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewReadRepository(db *badger.DB, log *slog.Logger) *ReadRepository {
	return &ReadRepository{db: db, log: log}
}

// MarkRead writes the mark only if the pair is absent. Two concurrent marks
// conflict on the same key; the retried one sees the mark and writes nothing.
func (r *ReadRepository) MarkRead(_ context.Context, read domain.MessageRead) (bool, error) {
	var created bool
	err := update(r.db, func(txn *badger.Txn) error {
		created = false
		key := readKey(read.MessageID, read.UserID)
		found, err := exists(txn, key)
		if err != nil || found {
			return err
		}
		created = true
		return setJSON(txn, key, domain.ReadMark{UserID: read.UserID, ReadAt: read.ReadAt.UTC()})
	})
	return created, err
}

func (r *ReadRepository) GetReads(_ context.Context, messageIDs []string) (map[string][]domain.ReadMark, error) {
	reads := make(map[string][]domain.ReadMark, len(messageIDs))
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for _, messageID := range messageIDs {
			prefix := readsOf(messageID)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var mark domain.ReadMark
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &mark)
				})
				if err != nil {
					return err
				}
				reads[messageID] = append(reads[messageID], mark)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, marks := range reads {
		slices.SortStableFunc(marks, func(a, b domain.ReadMark) int {
			return a.ReadAt.Compare(b.ReadAt)
		})
	}
	return reads, nil
}
