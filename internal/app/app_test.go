package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-lab/internal/config"
	"solana-mev-lab/internal/registry/redisstore"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestOpenStores_MemoryFallback(t *testing.T) {
	stores, err := OpenStores(context.Background(), config.DatabaseConfig{}, nil, quietLogger())
	require.NoError(t, err)
	defer stores.Close()

	assert.False(t, stores.Persistent)
	assert.NotNil(t, stores.Swaps)
	assert.NotNil(t, stores.Analytics)

	ps := stores.Pipeline()
	assert.NotNil(t, ps.Progress)
	assert.Nil(t, ps.Venues)
	assert.NotNil(t, stores.API().Findings)
	assert.NotNil(t, stores.Reporting().Unknown)
}

func TestOpenRegistry_WithoutRedis(t *testing.T) {
	reg, err := OpenRegistry(context.Background(), config.RedisConfig{}, quietLogger())
	require.NoError(t, err)
	defer reg.Close()

	assert.Nil(t, reg.Store)
	assert.Nil(t, reg.VenueSaver())
	assert.NotEmpty(t, reg.Venues(), "defaults should be loaded")
}

func TestOpenRegistry_LoadsPersistedEntries(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	const program = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	const bot = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	mr.HSet(redisstore.KeyVenues, program, "Jupiter Custom")
	_, err := mr.SAdd(redisstore.KeyKnownBots, bot)
	require.NoError(t, err)

	reg, err := OpenRegistry(ctx, config.RedisConfig{Addr: mr.Addr()}, quietLogger())
	require.NoError(t, err)
	defer reg.Close()

	require.NotNil(t, reg.VenueSaver())
	assert.Equal(t, "Jupiter Custom", reg.VenueName(program))
	assert.True(t, reg.IsKnownBot(bot))
}

func TestOpenRegistry_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := OpenRegistry(context.Background(), config.RedisConfig{Addr: addr}, quietLogger())
	assert.Error(t, err)
}

func TestNewAnalyzer_Profile(t *testing.T) {
	reg, err := OpenRegistry(context.Background(), config.RedisConfig{}, quietLogger())
	require.NoError(t, err)

	cfg := config.DetectConfig{Workers: 2, ArbitrageProfile: "strict"}
	a, err := NewAnalyzer(cfg, "", reg.Registry, nil, quietLogger())
	require.NoError(t, err)
	assert.NotNil(t, a)

	_, err = NewAnalyzer(cfg, "bogus", reg.Registry, nil, quietLogger())
	assert.Error(t, err)
}

func TestScannerConfig(t *testing.T) {
	sc := ScannerConfig(config.ScanConfig{RateLimit: 12.5, Burst: 3, FetchConcurrency: 8, PollInterval: time.Second})
	assert.Equal(t, 12.5, sc.RateLimit)
	assert.Equal(t, 3, sc.Burst)
	assert.Equal(t, 8, sc.Concurrency)
	assert.Equal(t, time.Second, sc.PollInterval)
	assert.Equal(t, 32, sc.MaxFollowBatch)
}
