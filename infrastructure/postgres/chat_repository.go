package postgres

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const chatSelect = `SELECT c.id, c.name, c.is_group, COALESCE(c.admin_id, '') AS admin_id, c.avatar,
	c.created_at, c.updated_at,
	COALESCE(array_agg(p.user_id) FILTER (WHERE p.user_id IS NOT NULL), '{}') AS participants
	FROM chats c LEFT JOIN chat_participants p ON p.chat_id = c.id`

type chatRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	IsGroup      bool           `db:"is_group"`
	AdminID      string         `db:"admin_id"`
	Avatar       string         `db:"avatar"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	Participants pq.StringArray `db:"participants"`
}

func (r chatRow) toDomain() domain.Chat {
	return domain.Chat{
		ID:           r.ID,
		Name:         r.Name,
		IsGroup:      r.IsGroup,
		AdminID:      r.AdminID,
		Avatar:       r.Avatar,
		Participants: []string(r.Participants),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type ChatRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

func NewChatRepository(db *sqlx.DB, log *slog.Logger) *ChatRepository {
	return &ChatRepository{db: db, log: log}
}

func (r *ChatRepository) CreateGroup(ctx context.Context, chat domain.Chat) (domain.Chat, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	chat.ID = uuid.NewString()
	chat.IsGroup = true
	chat.CreatedAt, chat.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Chat{}, err
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chats (id, name, is_group, admin_id, avatar, created_at, updated_at) VALUES ($1, $2, true, $3, $4, $5, $5)`,
		chat.ID, chat.Name, chat.AdminID, chat.Avatar, now)
	if err != nil {
		return domain.Chat{}, err
	}
	if err = insertParticipants(ctx, tx, chat); err != nil {
		return domain.Chat{}, err
	}
	return chat, tx.Commit()
}

// FindOrCreateDirect relies on the UNIQUE direct_key column: the losing insert
// of a race waits for the winner's commit and then does nothing, and the
// winner is read back.
func (r *ChatRepository) FindOrCreateDirect(ctx context.Context, userA, userB string) (domain.Chat, bool, error) {
	key := domain.DirectKey(userA, userB)
	now := time.Now().UTC().Truncate(time.Microsecond)
	chat := domain.Chat{
		ID:           uuid.NewString(),
		Participants: []string{userA, userB},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Chat{}, false, err
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO chats (id, is_group, direct_key, created_at, updated_at) VALUES ($1, false, $2, $3, $3)
		ON CONFLICT (direct_key) DO NOTHING`,
		chat.ID, key, now)
	if err != nil {
		return domain.Chat{}, false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return domain.Chat{}, false, err
	}
	if inserted == 1 {
		if err = insertParticipants(ctx, tx, chat); err != nil {
			return domain.Chat{}, false, err
		}
		return chat, true, tx.Commit()
	}
	rollback(tx)

	var row chatRow
	err = r.db.GetContext(ctx, &row, chatSelect+` WHERE c.direct_key=$1 GROUP BY c.id`, key)
	if err != nil {
		return domain.Chat{}, false, err
	}
	r.log.Debug("Direct chat already exists", "pair", key)
	return row.toDomain(), false, nil
}

func (r *ChatRepository) GetChat(ctx context.Context, id string) (domain.Chat, error) {
	var row chatRow
	err := r.db.GetContext(ctx, &row, chatSelect+` WHERE c.id=$1 GROUP BY c.id`, id)
	if err != nil {
		return domain.Chat{}, notFound(err, errors.ErrChatNotFound)
	}
	return row.toDomain(), nil
}

func (r *ChatRepository) ListChatsForUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	var rows []chatRow
	err := r.db.SelectContext(ctx, &rows, chatSelect+`
		WHERE c.id IN (SELECT chat_id FROM chat_participants WHERE user_id=$1)
		GROUP BY c.id ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	chats := make([]domain.Chat, 0, len(rows))
	for _, row := range rows {
		chats = append(chats, row.toDomain())
	}
	return chats, nil
}

func (r *ChatRepository) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	var found bool
	err := r.db.GetContext(ctx, &found,
		`SELECT EXISTS (SELECT 1 FROM chat_participants WHERE chat_id=$1 AND user_id=$2)`, chatID, userID)
	return found, err
}

func insertParticipants(ctx context.Context, tx *sqlx.Tx, chat domain.Chat) error {
	for _, edge := range chat.Edges() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			edge.ChatID, edge.UserID)
		if err != nil {
			return err
		}
	}
	return nil
}
