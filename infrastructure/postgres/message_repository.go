package postgres

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

const messageColumns = `id, chat_id, sender_id, content, type, file_url, file_name, file_size, reply_to_id, is_edited, created_at`

type messageRow struct {
	ID        string         `db:"id"`
	ChatID    string         `db:"chat_id"`
	SenderID  string         `db:"sender_id"`
	Content   sql.NullString `db:"content"`
	Type      string         `db:"type"`
	FileURL   sql.NullString `db:"file_url"`
	FileName  sql.NullString `db:"file_name"`
	FileSize  sql.NullInt64  `db:"file_size"`
	ReplyToID sql.NullString `db:"reply_to_id"`
	IsEdited  bool           `db:"is_edited"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r messageRow) toDomain() domain.Message {
	message := domain.Message{
		ID:        r.ID,
		ChatID:    r.ChatID,
		SenderID:  r.SenderID,
		Type:      domain.MessageType(r.Type),
		IsEdited:  r.IsEdited,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.Content.Valid {
		content := r.Content.String
		message.Content = &content
	}
	if r.FileURL.Valid {
		message.File = &domain.FileMeta{URL: r.FileURL.String, Name: r.FileName.String, Size: r.FileSize.Int64}
	}
	if r.ReplyToID.Valid {
		replyTo := r.ReplyToID.String
		message.ReplyToID = &replyTo
	}
	return message
}

type MessageRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

func NewMessageRepository(db *sqlx.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

func (r *MessageRepository) StoreMessage(ctx context.Context, message domain.Message) error {
	var fileURL, fileName sql.NullString
	var fileSize sql.NullInt64
	if message.File != nil {
		fileURL = sql.NullString{String: message.File.URL, Valid: true}
		fileName = sql.NullString{String: message.File.Name, Valid: message.File.Name != ""}
		fileSize = sql.NullInt64{Int64: message.File.Size, Valid: message.File.Size > 0}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	// The row lock taken here also orders concurrent writers of the chat.
	res, err := tx.ExecContext(ctx,
		`UPDATE chats SET updated_at = GREATEST(updated_at, $2) WHERE id=$1`, message.ChatID, message.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return errors.ErrChatNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		message.ID, message.ChatID, message.SenderID, message.Content, string(message.Type),
		fileURL, fileName, fileSize, message.ReplyToID, message.IsEdited, message.CreatedAt.UTC())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MessageRepository) GetMessage(ctx context.Context, id string) (domain.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, id)
	if err != nil {
		return domain.Message{}, notFound(err, errors.ErrMessageNotFound)
	}
	return row.toDomain(), nil
}

func (r *MessageRepository) GetMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 ORDER BY created_at, id`, chatID)
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toDomain())
	}
	return messages, nil
}

func (r *MessageRepository) GetLastMessage(ctx context.Context, chatID string) (*domain.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	message := row.toDomain()
	return &message, nil
}
