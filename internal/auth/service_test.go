package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgauth "github.com/deshikart/deshikart-backend/pkg/auth"
	"github.com/deshikart/deshikart-backend/pkg/config"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
	"github.com/deshikart/deshikart-backend/pkg/security"
)

func fastArgonConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

func testConfigs(t *testing.T, password string) (config.AdminConfig, config.JWTConfig) {
	t.Helper()

	hash, err := security.HashPassword(password, fastArgonConfig())
	require.NoError(t, err)

	admin := config.AdminConfig{Username: "operator", PasswordHash: hash}
	jwt := config.JWTConfig{
		Secret:            "test-secret-please-rotate",
		Issuer:            "deshikart-test",
		ExpirationMinutes: 60,
	}
	return admin, jwt
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestLoginSuccess(t *testing.T) {
	admin, jwtCfg := testConfigs(t, "correct horse battery")
	// ParseAccessToken checks exp against the wall clock, so the pinned
	// clock must sit near now or the minted token reads as expired.
	fixed := time.Now().UTC().Truncate(time.Second)
	svc := NewService(admin, jwtCfg, WithClock(func() time.Time { return fixed }))

	result, err := svc.Login(context.Background(), "operator", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "operator", result.Username)
	assert.Equal(t, fixed.Add(time.Hour), result.ExpiresAt)

	claims, err := pkgauth.ParseAccessToken(jwtCfg, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Username)
	assert.True(t, claims.IsAdmin())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	admin, jwtCfg := testConfigs(t, "correct horse battery")
	svc := NewService(admin, jwtCfg)
	ctx := context.Background()

	_, err := svc.Login(ctx, "operator", "wrong password")
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(ctx, "intruder", "correct horse battery")
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(ctx, "", "")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestLoginDisabledWithoutCredentialConfig(t *testing.T) {
	_, jwtCfg := testConfigs(t, "unused")
	svc := NewService(config.AdminConfig{}, jwtCfg)

	_, err := svc.Login(context.Background(), "operator", "anything")
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}
