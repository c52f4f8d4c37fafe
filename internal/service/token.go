package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"arcstore-api/internal/cache"
	"arcstore-api/internal/model"

	"go.uber.org/zap"
)

const (
	// SessionTokenPrefix marks tokens issued by the login flow.
	SessionTokenPrefix = "ars_"
	// PageTokenPrefix marks tokens issued by the account page re-authentication.
	PageTokenPrefix = "arp_"
)

// ErrInvalidToken is returned for unknown, malformed or expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and validates the two identity tokens. A session token
// is never accepted where a page token is required and vice versa.
type TokenService struct {
	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time
}

// NewTokenService creates a new token service.
func NewTokenService(c cache.Cache, ttl time.Duration, log *zap.Logger) *TokenService {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &TokenService{cache: c, ttl: ttl, log: log.Named("token"), now: time.Now}
}

// TTL returns the token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// IssueSession creates a login session token for user.
func (s *TokenService) IssueSession(ctx context.Context, user *model.User) (string, error) {
	return s.issue(ctx, model.KindSession, user)
}

// IssuePage creates an account page token for user.
func (s *TokenService) IssuePage(ctx context.Context, user *model.User) (string, error) {
	return s.issue(ctx, model.KindPage, user)
}

// ValidateSession resolves a login session token.
func (s *TokenService) ValidateSession(ctx context.Context, token string) (*model.AuthenticatedSession, error) {
	data, err := s.validate(ctx, model.KindSession, token)
	if err != nil {
		return nil, err
	}
	return &model.AuthenticatedSession{UserID: data.UserID, Name: data.Name, Token: token}, nil
}

// ValidatePage resolves an account page token.
func (s *TokenService) ValidatePage(ctx context.Context, token string) (*model.PageScopedIdentity, error) {
	data, err := s.validate(ctx, model.KindPage, token)
	if err != nil {
		return nil, err
	}
	return &model.PageScopedIdentity{UserID: data.UserID, Name: data.Name, Token: token}, nil
}

// Revoke deletes a token of either kind.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	kind, ok := kindOf(token)
	if !ok {
		return ErrInvalidToken
	}
	return s.cache.Delete(ctx, tokenKey(kind, token))
}

func (s *TokenService) issue(ctx context.Context, kind model.IdentityKind, user *model.User) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := prefixOf(kind) + hex.EncodeToString(tokenBytes)

	now := s.now()
	data := model.TokenData{
		Kind:      kind,
		UserID:    user.UserID,
		Name:      user.Name,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token data: %w", err)
	}
	if err := s.cache.Set(ctx, tokenKey(kind, token), raw, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	s.log.Debug("token issued", zap.String("kind", string(kind)), zap.Int64("user_id", user.UserID))
	return token, nil
}

func (s *TokenService) validate(ctx context.Context, kind model.IdentityKind, token string) (*model.TokenData, error) {
	if got, ok := kindOf(token); !ok || got != kind {
		return nil, ErrInvalidToken
	}

	raw, err := s.cache.Get(ctx, tokenKey(kind, token))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var data model.TokenData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse token data: %w", err)
	}
	if data.Kind != kind || s.now().After(data.ExpiresAt) {
		s.cache.Delete(ctx, tokenKey(kind, token))
		return nil, ErrInvalidToken
	}
	return &data, nil
}

func prefixOf(kind model.IdentityKind) string {
	if kind == model.KindPage {
		return PageTokenPrefix
	}
	return SessionTokenPrefix
}

func kindOf(token string) (model.IdentityKind, bool) {
	switch {
	case strings.HasPrefix(token, SessionTokenPrefix):
		return model.KindSession, true
	case strings.HasPrefix(token, PageTokenPrefix):
		return model.KindPage, true
	}
	return "", false
}

func tokenKey(kind model.IdentityKind, token string) string {
	return "token:" + string(kind) + ":" + token
}
