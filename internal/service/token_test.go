package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"arcstore-api/internal/cache"
	"arcstore-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	c := cache.NewMemoryCache(time.Hour)
	t.Cleanup(func() { c.Close() })
	return NewTokenService(c, time.Hour, zap.NewNop())
}

func TestTokenService_IdentitiesAreNotInterchangeable(t *testing.T) {
	svc := newTestTokenService(t)
	ctx := context.Background()
	user := &model.User{UserID: 7, Name: "alice"}

	session, err := svc.IssueSession(ctx, user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(session, SessionTokenPrefix))

	page, err := svc.IssuePage(ctx, user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(page, PageTokenPrefix))

	ident, err := svc.ValidateSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ident.UserID)
	assert.Equal(t, "alice", ident.Name)

	pageIdent, err := svc.ValidatePage(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pageIdent.UserID)

	_, err = svc.ValidatePage(ctx, session)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.ValidateSession(ctx, page)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A forged prefix does not move a token to the other keyspace.
	_, err = svc.ValidatePage(ctx, PageTokenPrefix+strings.TrimPrefix(session, SessionTokenPrefix))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RevokeAndExpiry(t *testing.T) {
	svc := newTestTokenService(t)
	ctx := context.Background()
	user := &model.User{UserID: 1, Name: "bob"}

	token, err := svc.IssuePage(ctx, user)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, token))
	_, err = svc.ValidatePage(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.ErrorIs(t, svc.Revoke(ctx, "garbage"), ErrInvalidToken)

	token, err = svc.IssueSession(ctx, user)
	require.NoError(t, err)
	later := time.Now().Add(2 * time.Hour)
	svc.now = func() time.Time { return later }
	_, err = svc.ValidateSession(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
