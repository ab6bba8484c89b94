package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/escape-room-booking/internal/auth"
)

const minPasswordLength = 8

// Service defines business logic related to admin accounts.
type Service interface {
	Login(ctx context.Context, email, password string) (*Admin, error)
	GetByID(ctx context.Context, id string) (*Admin, error)

	// EnsureBootstrap creates the first admin account if no account with
	// that email exists yet. It reports whether an account was created.
	EnsureBootstrap(ctx context.Context, email, password, displayName string) (bool, error)
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new admin Service.
func NewService(repo Repository, hasher auth.PasswordHasher, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		hasher: hasher,
		logger: logger.With().Str("component", "admin").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Login(ctx context.Context, email, password string) (*Admin, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	a, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch admin by email: %w", err)
	}

	if err := s.hasher.Compare(a.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !a.IsActive {
		return nil, ErrInactive
	}

	// Best effort; a failed timestamp does not fail the login.
	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, a.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("admin_id", a.ID).Msg("failed to record last login")
	} else {
		a.LastLoginAt = &now
	}

	return a, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Admin, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) EnsureBootstrap(ctx context.Context, email, password, displayName string) (bool, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" {
		return false, ErrEmailRequired
	}

	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("failed to check existing email: %w", err)
	}

	if len(password) < minPasswordLength {
		return false, ErrPasswordTooShort
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	var name *string
	if d := strings.TrimSpace(displayName); d != "" {
		name = &d
	}

	a := &Admin{
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  name,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrEmailAlreadyUsed) {
			// Another instance won the race.
			return false, nil
		}
		return false, err
	}

	s.logger.Info().Str("admin_id", a.ID).Str("email", a.Email).Msg("bootstrap admin created")
	return true, nil
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
