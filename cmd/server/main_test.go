package main

import (
	"chat-hub/domain"
	"chat-hub/internal"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestOpenStores_Rebuilds_A_Lost_Search_Index(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	logger := logs.GetLoggerFromLevel(slog.LevelDebug)
	dir := t.TempDir()
	config := internal.Config{
		StorageDriver:  internal.DriverBadger,
		BadgerFilepath: filepath.Join(dir, "badger"),
		BlugeFilepath:  filepath.Join(dir, "bluge-1"),
	}

	// Given a user stored during a first run
	first, err := openStores(ctx, config, logger)
	req.NoError(err)
	_, err = first.users.CreateUser(ctx, domain.User{ID: "1", Username: "alice", Email: "alice@example.com"})
	req.NoError(err)
	first.close()

	// When the server restarts without its index directory
	config.BlugeFilepath = filepath.Join(dir, "bluge-2")
	second, err := openStores(ctx, config, logger)
	req.NoError(err)
	defer second.close()

	// Then search still finds the user
	users, err := second.users.SearchUsers(ctx, "ali", "", 20)
	req.NoError(err)
	req.Len(users, 1)
	req.Equal("1", users[0].ID)
}
