package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/studisys/docshare-api/internal/models"
	appErrors "github.com/studisys/docshare-api/pkg/errors"
)

type stubAuthUsers struct {
	byEmail    map[string]*models.User
	lastLogins []string
}

func (m *stubAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *stubAuthUsers) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func newAuthService(repo *stubAuthUsers) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "docshare-test",
	})
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	repo := &stubAuthUsers{byEmail: map[string]*models.User{
		"teacher@example.com": {
			ID:           "u1",
			Email:        "teacher@example.com",
			PasswordHash: hash(t, "secret123"),
			FullName:     "Teacher One",
			Role:         models.RoleTeacher,
			Active:       true,
		},
	}}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, []string{"u1"}, repo.lastLogins)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &stubAuthUsers{byEmail: map[string]*models.User{
		"teacher@example.com": {
			ID:           "u1",
			Email:        "teacher@example.com",
			PasswordHash: hash(t, "secret123"),
			Active:       true,
		},
	}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := &stubAuthUsers{byEmail: map[string]*models.User{
		"teacher@example.com": {
			ID:           "u1",
			Email:        "teacher@example.com",
			PasswordHash: hash(t, "secret123"),
			Active:       false,
		},
	}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenGarbage(t *testing.T) {
	svc := newAuthService(&stubAuthUsers{})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
