package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// UserStore abstracts account lookup for the service.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
}

// Service authenticates users and issues tokens.
type Service struct {
	store UserStore
	jwt   *JWTManager
	ttl   time.Duration
}

// NewService builds Service.
func NewService(store UserStore, jwt *JWTManager, ttl time.Duration) *Service {
	return &Service{store: store, jwt: jwt, ttl: ttl}
}

// Login verifies credentials and returns a signed token. A disabled account
// fails the same way as a wrong password so usernames cannot be probed.
func (s *Service) Login(ctx context.Context, input LoginInput) (TokenResponse, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return TokenResponse{}, shared.InvalidInput("username and password are required")
	}
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			return TokenResponse{}, shared.Unauthorized("invalid username or password")
		}
		return TokenResponse{}, err
	}
	if !user.Active {
		return TokenResponse{}, shared.Unauthorized("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return TokenResponse{}, shared.Unauthorized("invalid username or password")
	}
	token, err := s.jwt.Generate(user.ID, user.Username, user.Role)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
		User: UserInfo{
			ID:          user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Role:        user.Role,
		},
	}, nil
}
