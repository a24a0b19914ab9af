package auth

import (
	"context"
	"errors"
	"time"

	"readtrac/internal/logging"
	"readtrac/internal/platform/crypto"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDisabled is returned when no owner password is configured.
	ErrDisabled = errors.New("authentication is disabled")
)

const ownerSubject = "owner"

// Config holds the single-owner credentials.
type Config struct {
	OwnerPasswordHash string        `koanf:"owner_password_hash"`
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
}

// Enabled reports whether mutating routes require a token.
func (c Config) Enabled() bool {
	return c.OwnerPasswordHash != "" && c.JWTSecret != ""
}

type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &Service{cfg: cfg}
}

// Token is an issued access token.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login exchanges the owner password for an access token.
func (s *Service) Login(ctx context.Context, password string) (Token, error) {
	if !s.cfg.Enabled() {
		return Token{}, ErrDisabled
	}
	if !crypto.VerifyPassword(s.cfg.OwnerPasswordHash, password) {
		logging.Ctx(ctx).Warn().Msg("owner login rejected")
		return Token{}, ErrUnauthorized
	}

	token, _, err := crypto.GenerateToken(s.cfg.JWTSecret, ownerSubject, crypto.RoleOwner, s.cfg.TokenTTL)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: token, ExpiresIn: int(s.cfg.TokenTTL.Seconds())}, nil
}
