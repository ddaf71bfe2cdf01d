package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type mockAuthRepo struct {
	userByUsername    *models.User
	userByID          *models.User
	refreshTokens     map[string]*models.RefreshToken
	auditLogs         []*models.AuditLog
	lastAccessUpdated bool
	revokedAllFor     string
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.userByUsername == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByUsername, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByUsername != nil {
		return m.userByUsername, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastAccess(ctx context.Context, id string, ts time.Time) error {
	m.lastAccessUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.userByUsername != nil && m.userByUsername.ID == id {
		m.userByUsername.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAllFor = userID
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.TokenHash] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByUsername: &models.User{ID: "u1", Username: "cajero1", PasswordHash: string(hash), Activo: true, Rol: models.RoleCajero}}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "cajero1", Password: "password"}, "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Empty(t, res.User.PasswordHash)
	assert.True(t, repo.lastAccessUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Accion)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByUsername: &models.User{ID: "u1", Username: "cajero1", PasswordHash: string(hash), Activo: false}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "cajero1", Password: "password"}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByUsername: &models.User{ID: "u1", Username: "cajero1", PasswordHash: string(hash), Activo: true}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "cajero1", Password: "wrong"}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	user := &models.User{ID: "u1", Username: "cajero1", Activo: true, Rol: models.RoleCajero}
	repo := &mockAuthRepo{userByID: user, refreshTokens: map[string]*models.RefreshToken{}}
	stored := &models.RefreshToken{ID: "rt1", UserID: "u1", TokenHash: hashToken("raw-token"), ExpiresAt: time.Now().Add(time.Hour)}
	repo.refreshTokens[stored.TokenHash] = stored
	svc := newAuthService(repo)

	res, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "raw-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "raw-token", res.RefreshToken)
	assert.NotNil(t, stored.RevokedAt)
}

func TestAuthServiceRefreshRejectsExpired(t *testing.T) {
	user := &models.User{ID: "u1", Activo: true}
	repo := &mockAuthRepo{userByID: user, refreshTokens: map[string]*models.RefreshToken{}}
	stored := &models.RefreshToken{ID: "rt1", UserID: "u1", TokenHash: hashToken("old"), ExpiresAt: time.Now().Add(-time.Minute)}
	repo.refreshTokens[stored.TokenHash] = stored
	svc := newAuthService(repo)

	_, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "old"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{}}
	stored := &models.RefreshToken{ID: "rt1", UserID: "u1", TokenHash: hashToken("raw"), ExpiresAt: time.Now().Add(time.Hour)}
	repo.refreshTokens[stored.TokenHash] = stored
	svc := newAuthService(repo)

	err := svc.Logout(context.Background(), "u2", "raw")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePasswordRevokesSessions(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByUsername: &models.User{ID: "u1", PasswordHash: string(oldHash), Activo: true}}
	svc := newAuthService(repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		CurrentPassword: "oldpassword",
		NewPassword:     "newpassword",
	})
	require.NoError(t, err)
	assert.NotEqual(t, string(oldHash), repo.userByUsername.PasswordHash)
	assert.Equal(t, "u1", repo.revokedAllFor)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthService(repo)
	user := &models.User{ID: "u1", Username: "admin", Rol: models.RoleAdministrador}

	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdministrador, claims.Rol)
}
