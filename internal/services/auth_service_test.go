// internal/services/auth_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imagestore/image-store-backend/internal/models"
	"github.com/imagestore/image-store-backend/internal/utils"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	cfg := newTestConfig(t)
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	return NewAuthService(newTestDB(t), cfg)
}

func registerReq() *RegisterRequest {
	return &RegisterRequest{
		Email:     "alice@example.com",
		Password:  "correct horse",
		FirstName: "Alice",
		LastName:  "Smith",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestAuth(t)

	reg, err := svc.Register(registerReq())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.Equal(t, models.UserRoleUser, reg.User.Role)
	assert.NotEmpty(t, reg.User.PasswordHash)
	assert.NotEqual(t, "correct horse", reg.User.PasswordHash)
	assert.Equal(t, "Bearer", reg.TokenType)

	// The issued token round-trips through validation.
	claims, err := utils.ValidateJWT(reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID.String(), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)

	login, err := svc.Login(&LoginRequest{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestAuth(t)

	_, err := svc.Register(registerReq())
	require.NoError(t, err)

	_, err = svc.Register(registerReq())
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestAuth(t)

	_, err := svc.Register(registerReq())
	require.NoError(t, err)

	_, err = svc.Login(&LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(&LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestAuth(t)

	req := registerReq()
	req.Password = "short"
	_, err := svc.Register(req)
	assert.Error(t, err)

	req = registerReq()
	req.Email = "not-an-email"
	_, err = svc.Register(req)
	assert.Error(t, err)
}
