package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/repository"
)

// maxGuestAttempts bounds retries when a generated guest name is taken.
const maxGuestAttempts = 5

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	guests     *auth.GuestNameGenerator
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Guests   *auth.GuestNameGenerator
	Logger   *zap.Logger
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

// AuthResult is returned by every successful sign-in.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL()),
		guests:     deps.Guests,
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     deps.Logger,
	}
	if s.guests == nil {
		s.guests = auth.NewGuestNameGenerator(nil)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Register creates an account and signs it in. Usernames are unique ignoring case.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Login authenticates by username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(user)
}

// Guest creates a throwaway account with a generated name and random password.
func (s *AuthService) Guest(ctx context.Context) (*AuthResult, error) {
	hash, err := auth.HashPassword(uuid.NewString(), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxGuestAttempts; attempt++ {
		name := s.guests.Next()
		user := &domain.User{
			Username:     name,
			PasswordHash: hash,
			FirstName:    "Guest",
			LastName:     name,
			IsGuest:      true,
		}
		err := s.users.Create(ctx, user)
		if err == nil {
			s.logger.Info("guest created", zap.String("user_id", user.ID), zap.String("username", name))
			return s.issue(user)
		}
		if !errors.Is(err, domain.ErrUsernameTaken) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, meta, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: meta.ExpiresAt}, nil
}
