package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT("user-1", "a@b.co", "user", "secret", time.Minute)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.Equal(t, "user", claims.Role)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestParseJWTRejectsExpired(t *testing.T) {
	token, err := GenerateJWT("user-1", "a@b.co", "user", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokensAreUnique(t *testing.T) {
	a, err := GenerateJWT("user-1", "a@b.co", "user", "secret", time.Minute)
	require.NoError(t, err)
	b, err := GenerateJWT("user-1", "a@b.co", "user", "secret", time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, HashToken(a), HashToken(b))
	assert.Len(t, HashToken(a), 64)
}

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	require.NoError(t, SetCache(ctx, rdb, WalletCacheKey("u1"), map[string]float64{"totalBalance": 1.5}, CacheTTL))
	require.NoError(t, SetCache(ctx, rdb, "admin:users:page=1", []int{1}, CacheTTL))

	var got map[string]float64
	found, err := GetCache(ctx, rdb, WalletCacheKey("u1"), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1.5, got["totalBalance"])

	require.NoError(t, InvalidateWallet(ctx, rdb, "u1"))
	found, err = GetCache(ctx, rdb, WalletCacheKey("u1"), &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists("admin:users:page=1"))
}

func TestCacheNilClient(t *testing.T) {
	var dest map[string]any
	found, err := GetCache(context.Background(), nil, "k", &dest)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetCache(context.Background(), nil, "k", 1, CacheTTL))
	assert.NoError(t, InvalidateWallet(context.Background(), nil, "u"))
}
