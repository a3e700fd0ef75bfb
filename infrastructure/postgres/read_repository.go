package postgres

import (
	"chat-hub/domain"
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ReadRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

func NewReadRepository(db *sqlx.DB, log *slog.Logger) *ReadRepository {
	return &ReadRepository{db: db, log: log}
}

// MarkRead leans on the (message_id, user_id) primary key.
func (r *ReadRepository) MarkRead(ctx context.Context, read domain.MessageRead) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id, read_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		read.MessageID, read.UserID, read.ReadAt.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *ReadRepository) GetReads(ctx context.Context, messageIDs []string) (map[string][]domain.ReadMark, error) {
	reads := make(map[string][]domain.ReadMark, len(messageIDs))
	if len(messageIDs) == 0 {
		return reads, nil
	}
	var rows []struct {
		MessageID string    `db:"message_id"`
		UserID    string    `db:"user_id"`
		ReadAt    time.Time `db:"read_at"`
	}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT message_id, user_id, read_at FROM message_reads WHERE message_id = ANY($1) ORDER BY read_at, user_id`,
		pq.Array(messageIDs))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		reads[row.MessageID] = append(reads[row.MessageID], domain.ReadMark{UserID: row.UserID, ReadAt: row.ReadAt.UTC()})
	}
	return reads, nil
}
