package services

import (
	"chat-hub/auth"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/repositories"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type IAuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (Token, domain.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (Token, domain.User, error)
}

type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
}

type Token string

func (t Token) String() string {
	return string(t)
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{log: log, userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, req auth.RegisterRequest) (Token, domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	// Validated before any expensive cryptographic operation.
	if err := auth.ValidateRegister(req); err != nil {
		return "", domain.User{}, err
	}

	// The repository never sees the plain password.
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(ctx, domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Status:       domain.StatusOffline,
	})
	if err != nil {
		return "", domain.User{}, err
	}
	s.log.Info("User registered", "user_id", user.ID)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", domain.User{}, err
	}
	return Token(token), user, nil
}

func (s *AuthService) Login(ctx context.Context, req auth.LoginRequest) (Token, domain.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := auth.ValidateLogin(req); err != nil {
		return "", domain.User{}, err
	}

	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, errors.ErrUserNotFound) {
		// Generic error to prevent user enumeration
		observability.AuthFailures.WithLabelValues("credentials").Inc()
		return "", domain.User{}, errors.ErrInvalidCredentials
	}
	if err != nil {
		return "", domain.User{}, fmt.Errorf("load user: %w", err)
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		observability.AuthFailures.WithLabelValues("credentials").Inc()
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", domain.User{}, err
	}
	return Token(token), user, nil
}
