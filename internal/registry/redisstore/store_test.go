package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-lab/internal/registry"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(client, log), mr
}

func TestSaveVenue_NoOverwrite(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	added, err := store.SaveVenue(ctx, "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", "Jupiter")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.SaveVenue(ctx, "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", "Other")
	require.NoError(t, err)
	assert.False(t, added)

	venues, err := store.Venues(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jupiter", venues["JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"])
}

func TestKnownBots(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveKnownBot(ctx, "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"))
	require.NoError(t, store.SaveKnownBot(ctx, "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"))

	bots, err := store.KnownBots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"}, bots)
}

func TestEmptyStore(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	venues, err := store.Venues(ctx)
	require.NoError(t, err)
	assert.Empty(t, venues)

	bots, err := store.KnownBots(ctx)
	require.NoError(t, err)
	assert.Empty(t, bots)
}

func TestLoadInto(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	const venue = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	const bot = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

	_, err := store.SaveVenue(ctx, venue, "Jupiter")
	require.NoError(t, err)
	require.NoError(t, store.SaveKnownBot(ctx, bot))

	// rejected by the registry: invalid address, an infrastructure program
	// and a program-derived bot address
	mr.HSet(KeyVenues, "bad!", "Bad")
	mr.HSet(KeyVenues, "11111111111111111111111111111111", "System")
	require.NoError(t, store.SaveKnownBot(ctx, "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"))

	reg := registry.New()
	loaded, err := store.LoadInto(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.True(t, reg.IsVenue(venue))
	assert.True(t, reg.IsKnownBot(bot))
	assert.False(t, reg.IsVenue("bad!"))
	assert.False(t, reg.IsVenue("11111111111111111111111111111111"))
}

func TestConnect_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = Connect(context.Background(), Config{Addr: addr})
	assert.Error(t, err)
}
