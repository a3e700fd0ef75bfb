package services

import (
	"chat-hub/domain"
	"chat-hub/mocks"
	"log/slog"

	"github.com/mama165/sdk-go/logs"
	"go.uber.org/mock/gomock"
)

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func newMockSession(ctrl *gomock.Controller, id, userID, username string) *mocks.MockSession {
	s := mocks.NewMockSession(ctrl)
	s.EXPECT().ID().Return(id).AnyTimes()
	s.EXPECT().UserID().Return(userID).AnyTimes()
	s.EXPECT().Username().Return(username).AnyTimes()
	return s
}

func userFixture(id, username string) domain.User {
	return domain.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "secret-hash",
		Status:       domain.StatusOffline,
	}
}

func usersByID(users ...domain.User) map[string]domain.User {
	res := make(map[string]domain.User, len(users))
	for _, u := range users {
		res[u.ID] = u
	}
	return res
}

func text(s string) *string { return &s }
