package services

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/privacy"
	"chat-hub/repositories"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

const defaultSearchLimit = 20

type IUserService interface {
	Me(ctx context.Context, userID string) (domain.UserView, error)
	Search(ctx context.Context, viewerID, query string) ([]domain.UserView, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.UserView, error)
	UpdatePrivacy(ctx context.Context, userID string, settings domain.PrivacySettings) (domain.UserView, error)
}

type searchQuery struct {
	Query string `validate:"required,min=1,max=100"`
}

type profileRules struct {
	Username string `validate:"omitempty,max=50"`
	Bio      string `validate:"max=500"`
	Phone    string `validate:"max=32"`
	Avatar   string `validate:"max=2048"`
}

type UserService struct {
	log         *slog.Logger
	users       repositories.IUserRepository
	searchLimit int
}

func NewUserService(log *slog.Logger, users repositories.IUserRepository, searchLimit int) *UserService {
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}
	return &UserService{log: log, users: users, searchLimit: searchLimit}
}

func (s *UserService) Me(ctx context.Context, userID string) (domain.UserView, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.UserView{}, err
	}
	return user.SelfView(), nil
}

// Search matches username or email, case-insensitively, anywhere in the value.
// The viewer is never part of the result and every match is privacy-filtered.
func (s *UserService) Search(ctx context.Context, viewerID, query string) ([]domain.UserView, error) {
	q := searchQuery{Query: strings.TrimSpace(query)}
	if err := validate.Struct(q); err != nil {
		return nil, errors.Invalid(err)
	}

	users, err := s.users.SearchUsers(ctx, q.Query, viewerID, s.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	views := lo.FilterMap(users, func(u domain.User, _ int) (domain.UserView, bool) {
		return privacy.Filter(u, viewerID, false), u.ID != viewerID
	})
	return views, nil
}

// UpdateProfile changes the provided fields only and returns the caller's own view.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.UserView, error) {
	if update.Username != nil {
		trimmed := strings.TrimSpace(*update.Username)
		if trimmed == "" {
			return domain.UserView{}, errors.Invalid(fmt.Errorf("username must not be empty"))
		}
		update.Username = &trimmed
	}
	rules := profileRules{
		Username: lo.FromPtr(update.Username),
		Bio:      lo.FromPtr(update.Bio),
		Phone:    lo.FromPtr(update.Phone),
		Avatar:   lo.FromPtr(update.Avatar),
	}
	if err := validate.Struct(rules); err != nil {
		return domain.UserView{}, errors.Invalid(err)
	}

	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		return domain.UserView{}, err
	}
	s.log.Info("Profile updated", "user_id", userID)
	return user.SelfView(), nil
}

func (s *UserService) UpdatePrivacy(ctx context.Context, userID string, settings domain.PrivacySettings) (domain.UserView, error) {
	if err := validate.Struct(settings); err != nil {
		return domain.UserView{}, errors.Invalid(err)
	}
	user, err := s.users.UpdatePrivacy(ctx, userID, settings)
	if err != nil {
		return domain.UserView{}, err
	}
	s.log.Info("Privacy settings updated", "user_id", userID)
	return user.SelfView(), nil
}
