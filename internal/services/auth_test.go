package services_test

import (
	"testing"
	"time"

	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		BCryptCost:      4,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewAuthService(testAuthConfig())

	user, err := svc.Register(db, services.RegistrationRequest{
		ChatID:   "chat-alice",
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", user.Password)

	_, err = svc.Register(db, services.RegistrationRequest{
		ChatID:   "chat-other",
		Username: "other",
		Email:    "alice@example.com",
		Password: "whatever1",
	})
	assert.ErrorIs(t, err, services.ErrConflict)

	logged, err := svc.Login(db, "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, err = svc.Login(db, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, services.ErrPermissionDenied)

	_, err = svc.Login(db, "nobody@example.com", "whatever1")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestRegisterUpgradesBotUser(t *testing.T) {
	db := newTestDB(t)
	existing := seedUser(t, db, "chat-alice", "alice")

	svc := services.NewAuthService(testAuthConfig())
	user, err := svc.Register(db, services.RegistrationRequest{
		ChatID:   "chat-alice",
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestTokenLifecycle(t *testing.T) {
	db := newTestDB(t)
	cfg := testAuthConfig()
	svc := services.NewAuthService(cfg)

	user, err := svc.Register(db, services.RegistrationRequest{
		ChatID:   "chat-alice",
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	pair, err := svc.GenerateTokens(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(cfg.AccessTokenTTL.Seconds()), pair.ExpiresIn)

	parsed, err := jwt.Parse(pair.AccessToken, func(token *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.String(), claims["user_id"])

	// Refresh rotates: the old refresh token is spent.
	rotated, err := svc.Refresh(db, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, err = svc.Refresh(db, pair.RefreshToken)
	assert.ErrorIs(t, err, services.ErrNotFound)

	require.NoError(t, svc.Logout(db, rotated.RefreshToken))
	err = svc.Logout(db, rotated.RefreshToken)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
