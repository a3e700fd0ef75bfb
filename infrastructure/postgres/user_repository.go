package postgres

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const userColumns = `id, username, email, password_hash, avatar, status, last_seen, bio, phone, privacy, created_at`

type userRow struct {
	ID           string       `db:"id"`
	Username     string       `db:"username"`
	Email        string       `db:"email"`
	PasswordHash string       `db:"password_hash"`
	Avatar       string       `db:"avatar"`
	Status       string       `db:"status"`
	LastSeen     sql.NullTime `db:"last_seen"`
	Bio          string       `db:"bio"`
	Phone        string       `db:"phone"`
	Privacy      []byte       `db:"privacy"`
	CreatedAt    time.Time    `db:"created_at"`
}

func (r userRow) toDomain() (domain.User, error) {
	user := domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Avatar:       r.Avatar,
		Status:       domain.UserStatus(r.Status),
		Bio:          r.Bio,
		Phone:        r.Phone,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.LastSeen.Valid {
		user.LastSeen = r.LastSeen.Time.UTC()
	}
	if len(r.Privacy) > 0 {
		if err := json.Unmarshal(r.Privacy, &user.Privacy); err != nil {
			return domain.User{}, fmt.Errorf("decode privacy of %s: %w", r.ID, err)
		}
	}
	return user, nil
}

// UserRepository stores users in Postgres.
// Uniqueness of username and email relies on the case-insensitive unique indexes.
type UserRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

func NewUserRepository(db *sqlx.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

func (r *UserRepository) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Status == "" {
		user.Status = domain.StatusOffline
	}
	privacy, err := json.Marshal(user.Privacy)
	if err != nil {
		return domain.User{}, err
	}
	const q = `INSERT INTO users (id, username, email, password_hash, avatar, status, bio, phone, privacy, created_at)
		VALUES (:id, :username, :email, :password_hash, :avatar, :status, :bio, :phone, :privacy, :created_at)`
	params := map[string]any{
		"id":            user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"avatar":        user.Avatar,
		"status":        string(user.Status),
		"bio":           user.Bio,
		"phone":         user.Phone,
		"privacy":       string(privacy),
		"created_at":    user.CreatedAt,
	}
	if _, err = r.db.NamedExecContext(ctx, q, params); err != nil {
		return domain.User{}, mapUserConflict(err)
	}
	return user, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (domain.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if err != nil {
		return domain.User{}, notFound(err, errors.ErrUserNotFound)
	}
	return row.toDomain()
}

func (r *UserRepository) GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error) {
	users := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	var rows []userRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		user, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		users[user.ID] = user
	}
	return users, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
	if err != nil {
		return domain.User{}, notFound(err, errors.ErrUserNotFound)
	}
	return row.toDomain()
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (domain.User, error) {
	const q = `UPDATE users SET
		username = COALESCE($2, username),
		bio = COALESCE($3, bio),
		phone = COALESCE($4, phone),
		avatar = COALESCE($5, avatar)
		WHERE id=$1 RETURNING ` + userColumns
	var row userRow
	err := r.db.GetContext(ctx, &row, q, id, upd.Username, upd.Bio, upd.Phone, upd.Avatar)
	if err != nil {
		return domain.User{}, notFound(mapUserConflict(err), errors.ErrUserNotFound)
	}
	return row.toDomain()
}

func (r *UserRepository) UpdatePrivacy(ctx context.Context, id string, settings domain.PrivacySettings) (domain.User, error) {
	privacy, err := json.Marshal(settings)
	if err != nil {
		return domain.User{}, err
	}
	var row userRow
	err = r.db.GetContext(ctx, &row, `UPDATE users SET privacy=$2 WHERE id=$1 RETURNING `+userColumns, id, string(privacy))
	if err != nil {
		return domain.User{}, notFound(err, errors.ErrUserNotFound)
	}
	return row.toDomain()
}

func (r *UserRepository) SetStatus(ctx context.Context, id string, status domain.UserStatus, lastSeen *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET status=$2, last_seen=COALESCE($3, last_seen) WHERE id=$1`,
		id, string(status), lastSeen)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}
	const q = `SELECT ` + userColumns + ` FROM users
		WHERE id <> $1 AND (username ILIKE $2 OR email ILIKE $2)
		ORDER BY username LIMIT $3`
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, q, excludeID, containsPattern(query), limit); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		user, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
