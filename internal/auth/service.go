package auth

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	pkgauth "github.com/deshikart/deshikart-backend/pkg/auth"
	"github.com/deshikart/deshikart-backend/pkg/config"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
	"github.com/deshikart/deshikart-backend/pkg/security"
)

// LoginResult is the payload returned to a successfully authenticated
// operator.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

// Service authenticates the single configured operator. There is no user
// table; the credential pair lives in config and the password is stored as
// an argon2id hash.
type Service interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

type service struct {
	admin config.AdminConfig
	jwt   config.JWTConfig
	now   func() time.Time
}

// Option overrides service defaults, used by tests.
type Option func(*service)

// WithClock substitutes the time source.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// NewService builds the admin auth service.
func NewService(admin config.AdminConfig, jwt config.JWTConfig, opts ...Option) Service {
	s := &service{admin: admin, jwt: jwt, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Login(_ context.Context, username, password string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}
	if !s.admin.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin access is not configured")
	}

	// Constant-time compare on the username; the argon2id verify already
	// is constant-time on the password.
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) == 1

	passwordOK, err := security.VerifyPassword(password, s.admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials")
	}
	if !usernameOK || !passwordOK {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now()
	token, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{Username: s.admin.Username})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mint token")
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
		Username:  s.admin.Username,
	}, nil
}
