package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaoconhecimento/gc-auth/internal/models"
)

func TestIPAccessService_BlockAndUnblock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	block, err := env.ipAccess.Block(ctx, "203.0.113.7", "scanner", "admin-1", nil)
	require.NoError(t, err)
	assert.True(t, block.IsActive)
	assert.Equal(t, "admin-1", *block.BlockedBy)

	blocked, err := env.ipAccess.IsBlocked(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, blocked)

	list, err := env.ipAccess.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, env.ipAccess.Unblock(ctx, "203.0.113.7", "admin-1"))

	blocked, err = env.ipAccess.IsBlocked(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, blocked)

	assert.ErrorIs(t, env.ipAccess.Unblock(ctx, "203.0.113.7", "admin-1"), models.ErrNotFound)
}

func TestIPAccessService_ReblockReactivatesEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.ipAccess.Block(ctx, "203.0.113.7", "scanner", "admin-1", nil)
	require.NoError(t, err)
	require.NoError(t, env.ipAccess.Unblock(ctx, "203.0.113.7", "admin-1"))

	second, err := env.ipAccess.Block(ctx, "203.0.113.7", "scanner again", "admin-2", nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "scanner again", second.Reason)
	assert.Len(t, env.store.BlockedIPs, 1)
}

func TestIPAccessService_TemporaryBlockExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expiresAt := env.clock.Now().Add(30 * time.Minute)
	_, err := env.ipAccess.Block(ctx, "203.0.113.7", "burst", "admin-1", &expiresAt)
	require.NoError(t, err)

	blocked, err := env.ipAccess.IsBlocked(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, blocked)

	env.clock.Advance(31 * time.Minute)

	blocked, err = env.ipAccess.IsBlocked(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestIPAccessService_InvalidIP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ipAccess.Block(ctx, "not-an-ip", "x", "admin-1", nil)
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = env.ipAccess.Whitelist(ctx, "999.1.1.1", "x", "admin-1")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestIPAccessService_Whitelist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry, err := env.ipAccess.Whitelist(ctx, "2001:db8::1", "vpn egress", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "vpn egress", entry.Description)

	ok, err := env.ipAccess.IsWhitelisted(ctx, "2001:db8::1")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := env.ipAccess.ListWhitelisted(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, env.ipAccess.RemoveFromWhitelist(ctx, "2001:db8::1", "admin-1"))
	ok, err = env.ipAccess.IsWhitelisted(ctx, "2001:db8::1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, env.ipAccess.RemoveFromWhitelist(ctx, "2001:db8::1", "admin-1"), models.ErrNotFound)
}
