package storage

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewUserRepository(openDB(t), openIndex(t), testLogger())

	// Given a stored user
	created, err := repo.CreateUser(ctx, newUser("alice", "Alice@Example.com"))
	req.NoError(err)

	// Then it is offline until a first connection
	req.Equal(domain.StatusOffline, created.Status)
	req.False(created.CreatedAt.IsZero())

	// And it can be found by id and by email whatever the case
	byID, err := repo.GetUser(ctx, created.ID)
	req.NoError(err)
	req.Equal("alice", byID.Username)

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.COM")
	req.NoError(err)
	req.Equal(created.ID, byEmail.ID)
}

func TestUserRepository_Create_Rejects_Duplicates(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewUserRepository(openDB(t), openIndex(t), testLogger())

	_, err := repo.CreateUser(ctx, newUser("alice", "alice@example.com"))
	req.NoError(err)

	_, err = repo.CreateUser(ctx, newUser("bob", "ALICE@example.com"))
	req.ErrorIs(err, errors.ErrEmailTaken)

	_, err = repo.CreateUser(ctx, newUser("Alice", "other@example.com"))
	req.ErrorIs(err, errors.ErrUsernameTaken)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewUserRepository(openDB(t), openIndex(t), testLogger())

	_, err := repo.GetUser(ctx, "missing")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repo.GetUserByEmail(ctx, "missing@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)

	users, err := repo.GetUsers(ctx, []string{"missing"})
	req.NoError(err)
	req.Empty(users)
}

func TestUserRepository_Search_Is_Case_Insensitive_Substring(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewUserRepository(openDB(t), openIndex(t), testLogger())

	alice, err := repo.CreateUser(ctx, newUser("Alice", "alice@example.com"))
	req.NoError(err)
	malika, err := repo.CreateUser(ctx, newUser("malika", "m@example.com"))
	req.NoError(err)
	bob, err := repo.CreateUser(ctx, newUser("bob", "bob.ALI@corp.io"))
	req.NoError(err)
	_, err = repo.CreateUser(ctx, newUser("carol", "carol@example.com"))
	req.NoError(err)

	// When searching "ALI" on behalf of alice
	users, err := repo.SearchUsers(ctx, "ALI", alice.ID, 20)
	req.NoError(err)

	// Then username and email matches are returned, never alice herself
	ids := lo.Map(users, func(u domain.User, _ int) string { return u.ID })
	req.ElementsMatch([]string{malika.ID, bob.ID}, ids)
}

func TestUserRepository_Search_Respects_Limit(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewUserRepository(openDB(t), openIndex(t), testLogger())

	for _, name := range []string{"sam1", "sam2", "sam3"} {
		_, err := repo.CreateUser(ctx, newUser(name, name+"@example.com"))
		req.NoError(err)
	}

	users, err := repo.SearchUsers(ctx, "sam", "", 2)
	req.NoError(err)
	req.Len(users, 2)

	users, err = repo.SearchUsers(ctx, "*", "", 2)
	req.NoError(err)
	req.Empty(users)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewUserRepository(openDB(t), openIndex(t), testLogger())

	alice, err := repo.CreateUser(ctx, newUser("alice", "alice@example.com"))
	req.NoError(err)
	_, err = repo.CreateUser(ctx, newUser("bob", "bob@example.com"))
	req.NoError(err)

	// When alice takes bob's name
	_, err = repo.UpdateProfile(ctx, alice.ID, domain.ProfileUpdate{Username: lo.ToPtr("BOB")})

	// Then it is rejected
	req.ErrorIs(err, errors.ErrUsernameTaken)

	// When alice renames herself and sets a bio
	updated, err := repo.UpdateProfile(ctx, alice.ID, domain.ProfileUpdate{
		Username: lo.ToPtr("alicia"),
		Bio:      lo.ToPtr("hello"),
	})
	req.NoError(err)
	req.Equal("alicia", updated.Username)
	req.Equal("hello", updated.Bio)

	// Then the old name is free again and the index follows the rename
	_, err = repo.CreateUser(ctx, newUser("alice", "new@example.com"))
	req.NoError(err)
	users, err := repo.SearchUsers(ctx, "alicia", "", 20)
	req.NoError(err)
	req.Len(users, 1)
	req.Equal(alice.ID, users[0].ID)
}

func TestUserRepository_SetStatus_Keeps_LastSeen_When_Nil(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewUserRepository(openDB(t), openIndex(t), testLogger())

	alice, err := repo.CreateUser(ctx, newUser("alice", "alice@example.com"))
	req.NoError(err)
	seen := time.Now().UTC()

	req.NoError(repo.SetStatus(ctx, alice.ID, domain.StatusOffline, &seen))
	req.NoError(repo.SetStatus(ctx, alice.ID, domain.StatusOnline, nil))

	got, err := repo.GetUser(ctx, alice.ID)
	req.NoError(err)
	req.Equal(domain.StatusOnline, got.Status)
	req.True(seen.Equal(got.LastSeen))

	req.ErrorIs(repo.SetStatus(ctx, "missing", domain.StatusOnline, nil), errors.ErrUserNotFound)
}

func TestUserRepository_Reindex(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	repo := NewUserRepository(db, openIndex(t), testLogger())

	_, err := repo.CreateUser(ctx, newUser("alice", "alice@example.com"))
	req.NoError(err)

	// Given a fresh index over the same store
	rebuilt := NewUserRepository(db, openIndex(t), testLogger())
	users, err := rebuilt.SearchUsers(ctx, "alice", "", 20)
	req.NoError(err)
	req.Empty(users)

	// When it is rebuilt
	count, err := rebuilt.Reindex(ctx)
	req.NoError(err)
	req.Equal(1, count)

	// Then search finds the user again
	users, err = rebuilt.SearchUsers(ctx, "alice", "", 20)
	req.NoError(err)
	req.Len(users, 1)
}
