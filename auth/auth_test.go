package auth

import (
	"chat-hub/errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MonMotDePasseTr0pSûr!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("MauvaisMDP", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_Rejects_Malformed_Hash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("secret", "not-a-hash")
	req.Error(err)

	_, err = ComparePassword("secret", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"Valid request", RegisterRequest{"alice", "test@example.com", "ComplexPass123!"}, nil},
		{"Missing username", RegisterRequest{"", "test@example.com", "ComplexPass123!"}, errors.ErrInvalidPayload},
		{"Invalid email", RegisterRequest{"alice", "notanemail", "ComplexPass123!"}, errors.ErrInvalidPayload},
		{"Password too short", RegisterRequest{"alice", "test@example.com", "Short1!"}, errors.ErrInvalidPayload},
		{"Missing digit", RegisterRequest{"alice", "test@example.com", "NoDigitPass!"}, errors.ErrInvalidPassword},
		{"Missing special char", RegisterRequest{"alice", "test@example.com", "NoSpecialChar123"}, errors.ErrInvalidPassword},
		{"Missing uppercase", RegisterRequest{"alice", "test@example.com", "nouppercase123!"}, errors.ErrInvalidPassword},
		{"Password too long", RegisterRequest{"alice", "test@example.com", strings.Repeat("a", 73)}, errors.ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr == nil {
				req.NoError(err)
				return
			}
			req.ErrorIs(err, tt.wantErr)
		})
	}
}

func TestLoginValidation(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateLogin(LoginRequest{Email: "a@example.com", Password: "x"}))
	req.ErrorIs(ValidateLogin(LoginRequest{Email: "a@example.com"}), errors.ErrInvalidPayload)
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
