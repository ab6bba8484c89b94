package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/escape-room-booking/internal/auth"
)

type memRepo struct {
	mu         sync.Mutex
	byID       map[string]*Admin
	loginErr   error
	lastLogins int
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[string]*Admin)}
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			c := *a
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *a
	return &c, nil
}

func (m *memRepo) Create(_ context.Context, a *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == a.Email {
			return ErrEmailAlreadyUsed
		}
	}
	a.ID = fmt.Sprintf("a%d", len(m.byID)+1)
	a.CreatedAt = time.Now()
	c := *a
	m.byID[a.ID] = &c
	return nil
}

func (m *memRepo) UpdateLastLogin(_ context.Context, id string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loginErr != nil {
		return m.loginErr
	}
	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	m.lastLogins++
	a.LastLoginAt = &t
	return nil
}

func newTestService() (Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, auth.NewBcryptPasswordHasherWithCost(4), zerolog.Nop()), repo
}

func TestService_EnsureBootstrap(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.EnsureBootstrap(ctx, " Owner@Example.com ", "s3cret-pass", "Owner")
	require.NoError(t, err)
	assert.True(t, created)

	a, err := repo.GetByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.True(t, a.IsActive)
	assert.NotEqual(t, "s3cret-pass", a.PasswordHash)
	require.NotNil(t, a.DisplayName)
	assert.Equal(t, "Owner", *a.DisplayName)

	created, err = svc.EnsureBootstrap(ctx, "owner@example.com", "another-pass", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.byID, 1)
}

func TestService_EnsureBootstrapValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.EnsureBootstrap(ctx, "  ", "s3cret-pass", "")
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = svc.EnsureBootstrap(ctx, "owner@example.com", "short", "")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestService_Login(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.EnsureBootstrap(ctx, "owner@example.com", "s3cret-pass", "")
	require.NoError(t, err)

	a, err := svc.Login(ctx, "OWNER@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", a.Email)
	assert.NotNil(t, a.LastLoginAt)
	assert.Equal(t, 1, repo.lastLogins)

	_, err = svc.Login(ctx, "owner@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "owner@example.com", "   ")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_LoginInactive(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.EnsureBootstrap(ctx, "owner@example.com", "s3cret-pass", "")
	require.NoError(t, err)
	for _, a := range repo.byID {
		a.IsActive = false
	}

	_, err = svc.Login(ctx, "owner@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInactive)
}

func TestService_LoginSurvivesLastLoginFailure(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.EnsureBootstrap(ctx, "owner@example.com", "s3cret-pass", "")
	require.NoError(t, err)
	repo.loginErr = errors.New("db down")

	a, err := svc.Login(ctx, "owner@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Nil(t, a.LastLoginAt)
}
