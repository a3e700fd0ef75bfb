package storage

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// UserRepository stores users in Badger and keeps the search index in step.
// Email and username uniqueness is enforced by index keys written in the same
// transaction as the user record.
type UserRepository struct {
	db    *badger.DB
	index *UserIndex
	log   *slog.Logger
}

func NewUserRepository(db *badger.DB, index *UserIndex, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, index: index, log: log}
}

func (r *UserRepository) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Status == "" {
		user.Status = domain.StatusOffline
	}

	err := update(r.db, func(txn *badger.Txn) error {
		if taken, err := exists(txn, emailKey(user.Email)); err != nil {
			return err
		} else if taken {
			return errors.ErrEmailTaken
		}
		if taken, err := exists(txn, usernameKey(user.Username)); err != nil {
			return err
		} else if taken {
			return errors.ErrUsernameTaken
		}
		if found, err := exists(txn, userKey(user.ID)); err != nil {
			return err
		} else if found {
			return errors.ErrUserAlreadyExists
		}
		if err := setJSON(txn, userKey(user.ID), user); err != nil {
			return err
		}
		if err := txn.Set(emailKey(user.Email), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(usernameKey(user.Username), []byte(user.ID))
	})
	if err != nil {
		return domain.User{}, err
	}
	r.indexOrWarn(user)
	return user, nil
}

func (r *UserRepository) GetUser(_ context.Context, id string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getUser(txn, id, &user)
	})
	return user, err
}

func (r *UserRepository) GetUsers(_ context.Context, ids []string) (map[string]domain.User, error) {
	users := make(map[string]domain.User, len(ids))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var user domain.User
			err := getUser(txn, id, &user)
			switch {
			case err == nil:
				users[id] = user
			case errors.Is(err, errors.ErrUserNotFound):
			default:
				return err
			}
		}
		return nil
	})
	return users, err
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getString(txn, emailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return getUser(txn, id, &user)
	})
	return user, err
}

func (r *UserRepository) UpdateProfile(_ context.Context, id string, upd domain.ProfileUpdate) (domain.User, error) {
	var user domain.User
	err := update(r.db, func(txn *badger.Txn) error {
		if err := getUser(txn, id, &user); err != nil {
			return err
		}
		if upd.Username != nil && *upd.Username != user.Username {
			if !strings.EqualFold(*upd.Username, user.Username) {
				owner, err := getString(txn, usernameKey(*upd.Username))
				switch {
				case err == nil && owner != id:
					return errors.ErrUsernameTaken
				case err != nil && !errors.Is(err, badger.ErrKeyNotFound):
					return err
				}
				if err = txn.Delete(usernameKey(user.Username)); err != nil {
					return err
				}
			}
			if err := txn.Set(usernameKey(*upd.Username), []byte(id)); err != nil {
				return err
			}
			user.Username = *upd.Username
		}
		if upd.Bio != nil {
			user.Bio = *upd.Bio
		}
		if upd.Phone != nil {
			user.Phone = *upd.Phone
		}
		if upd.Avatar != nil {
			user.Avatar = *upd.Avatar
		}
		return setJSON(txn, userKey(id), user)
	})
	if err != nil {
		return domain.User{}, err
	}
	r.indexOrWarn(user)
	return user, nil
}

func (r *UserRepository) UpdatePrivacy(_ context.Context, id string, settings domain.PrivacySettings) (domain.User, error) {
	var user domain.User
	err := update(r.db, func(txn *badger.Txn) error {
		if err := getUser(txn, id, &user); err != nil {
			return err
		}
		user.Privacy = settings
		return setJSON(txn, userKey(id), user)
	})
	return user, err
}

func (r *UserRepository) SetStatus(_ context.Context, id string, status domain.UserStatus, lastSeen *time.Time) error {
	return update(r.db, func(txn *badger.Txn) error {
		var user domain.User
		if err := getUser(txn, id, &user); err != nil {
			return err
		}
		user.Status = status
		if lastSeen != nil {
			user.LastSeen = lastSeen.UTC()
		}
		return setJSON(txn, userKey(id), user)
	})
}

// SearchUsers keeps the ranking of the index.
func (r *UserRepository) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]domain.User, error) {
	ids, err := r.index.Search(ctx, query, excludeID, limit)
	if err != nil {
		return nil, err
	}
	found, err := r.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := found[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// indexOrWarn keeps the committed write when indexing fails.
// The index is rebuilt from the store at the next start.
func (r *UserRepository) indexOrWarn(user domain.User) {
	if err := r.index.Index(user); err != nil {
		r.log.Warn("Failed to index user, search is stale until restart", "user_id", user.ID, "error", err)
	}
}

// Reindex rebuilds the search index from the stored users.
// The server runs it at startup so that a lost index directory heals itself.
func (r *UserRepository) Reindex(_ context.Context) (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user domain.User
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &user)
			})
			if err != nil {
				return err
			}
			if err = r.index.Index(user); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("reindex users: %w", err)
	}
	r.log.Debug("Users reindexed", "count", count)
	return count, nil
}

func getUser(txn *badger.Txn, id string, user *domain.User) error {
	err := getJSON(txn, userKey(id), user)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}
