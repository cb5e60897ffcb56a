package tokens

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voxlink/voxlink/config"
	"github.com/voxlink/voxlink/internal/apperrors"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.InviteConfig{
		DefaultHours:   168,
		MinHours:       1,
		MaxHours:       720,
		DefaultMaxUses: 1,
		MagicLinkTTL:   3600,
	}
	return NewStore(rdb, cfg, zap.NewNop()), mr
}

func TestCreateInvite(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	t.Run("defaults applied", func(t *testing.T) {
		inv, err := store.CreateInvite(ctx, CreateInviteParams{GuildID: "g1"})
		require.NoError(t, err)
		assert.NotEmpty(t, inv.Code)
		assert.Equal(t, "member", inv.Role)
		assert.Equal(t, 0, inv.Uses)
		assert.True(t, mr.Exists("invite:"+inv.Code))

		ttl, err := store.InviteTTL(ctx, inv.Code)
		require.NoError(t, err)
		assert.InDelta(t, (168 * time.Hour).Seconds(), ttl.Seconds(), 5)
	})

	t.Run("lifetime clamped to bounds", func(t *testing.T) {
		inv, err := store.CreateInvite(ctx, CreateInviteParams{GuildID: "g1", ExpiresInHours: 9000})
		require.NoError(t, err)

		ttl, err := store.InviteTTL(ctx, inv.Code)
		require.NoError(t, err)
		assert.InDelta(t, (720 * time.Hour).Seconds(), ttl.Seconds(), 5)
	})
}

func TestRedeemInvite(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	t.Run("consumes one use", func(t *testing.T) {
		inv, err := store.CreateInvite(ctx, CreateInviteParams{GuildID: "g1", MaxUses: 2})
		require.NoError(t, err)

		got, err := store.RedeemInvite(ctx, inv.Code)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Uses)
		assert.Equal(t, "g1", got.GuildID)

		got, err = store.RedeemInvite(ctx, inv.Code)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Uses)

		_, err = store.RedeemInvite(ctx, inv.Code)
		assert.ErrorIs(t, err, ErrMaxUsesReached)
	})

	t.Run("unlimited when max uses is zero", func(t *testing.T) {
		inv, err := store.CreateInvite(ctx, CreateInviteParams{GuildID: "g1", MaxUses: 0})
		require.NoError(t, err)

		for i := 1; i <= 10; i++ {
			got, err := store.RedeemInvite(ctx, inv.Code)
			require.NoError(t, err)
			assert.Equal(t, i, got.Uses)
		}
	})

	t.Run("unknown code is unauthorized", func(t *testing.T) {
		_, err := store.RedeemInvite(ctx, "no-such-code")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("expired code is unauthorized", func(t *testing.T) {
		inv, err := store.CreateInvite(ctx, CreateInviteParams{GuildID: "g1", ExpiresInHours: 1})
		require.NoError(t, err)

		mr.FastForward(2 * time.Hour)

		_, err = store.RedeemInvite(ctx, inv.Code)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("redemption keeps remaining ttl", func(t *testing.T) {
		inv, err := store.CreateInvite(ctx, CreateInviteParams{GuildID: "g1", ExpiresInHours: 10, MaxUses: 5})
		require.NoError(t, err)

		mr.FastForward(4 * time.Hour)

		_, err = store.RedeemInvite(ctx, inv.Code)
		require.NoError(t, err)

		ttl, err := store.InviteTTL(ctx, inv.Code)
		require.NoError(t, err)
		assert.InDelta(t, (6 * time.Hour).Seconds(), ttl.Seconds(), 5)
	})
}

// Two racing redemptions of a max_uses=1 invite must produce exactly
// one success.
func TestRedeemInviteConcurrent(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	inv, err := store.CreateInvite(ctx, CreateInviteParams{GuildID: "g1", MaxUses: 1})
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.RedeemInvite(ctx, inv.Code)
		}(i)
	}
	wg.Wait()

	successes, rejections := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrMaxUsesReached):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, rejections)
}

func TestMagicLink(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	t.Run("single use", func(t *testing.T) {
		token, err := store.CreateMagicLink(ctx, "alice@example.com")
		require.NoError(t, err)

		email, err := store.ConsumeMagicLink(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", email)

		_, err = store.ConsumeMagicLink(ctx, token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("expires", func(t *testing.T) {
		token, err := store.CreateMagicLink(ctx, "bob@example.com")
		require.NoError(t, err)

		mr.FastForward(2 * time.Hour)

		_, err = store.ConsumeMagicLink(ctx, token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestCacheUnavailable(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	inv, err := store.CreateInvite(ctx, CreateInviteParams{GuildID: "g1"})
	require.NoError(t, err)

	mr.Close()

	_, err = store.RedeemInvite(ctx, inv.Code)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)

	_, err = store.CreateMagicLink(ctx, "x@example.com")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)

	_, err = store.ConsumeMagicLink(ctx, "tok")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
}
