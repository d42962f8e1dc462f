// Package redisstore persists runtime registry additions in Redis so that
// venues discovered during one scan are known to the next.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"solana-mev-lab/internal/registry"
)

// Redis keys.
const (
	KeyVenues    = "mevlab:registry:venues"     // hash programID -> name
	KeyKnownBots = "mevlab:registry:known_bots" // set of wallets
)

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store reads and writes registry additions.
type Store struct {
	client redis.Cmdable
	log    logrus.FieldLogger
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// New creates a store over an existing client.
func New(client redis.Cmdable, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{client: client, log: log}
}

// SaveVenue records a discovered venue. Existing entries are not overwritten.
// It reports whether the venue was newly added.
func (s *Store) SaveVenue(ctx context.Context, programID, name string) (bool, error) {
	added, err := s.client.HSetNX(ctx, KeyVenues, programID, name).Result()
	if err != nil {
		return false, fmt.Errorf("save venue %s: %w", programID, err)
	}
	return added, nil
}

// SaveKnownBot adds a wallet to the known-bot set.
func (s *Store) SaveKnownBot(ctx context.Context, wallet string) error {
	if err := s.client.SAdd(ctx, KeyKnownBots, wallet).Err(); err != nil {
		return fmt.Errorf("save known bot %s: %w", wallet, err)
	}
	return nil
}

// Venues returns all persisted venues.
func (s *Store) Venues(ctx context.Context) (map[string]string, error) {
	venues, err := s.client.HGetAll(ctx, KeyVenues).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load venues: %w", err)
	}
	return venues, nil
}

// KnownBots returns all persisted known-bot wallets.
func (s *Store) KnownBots(ctx context.Context) ([]string, error) {
	bots, err := s.client.SMembers(ctx, KeyKnownBots).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load known bots: %w", err)
	}
	return bots, nil
}

// LoadInto merges persisted entries into reg. Entries the registry rejects
// (bad addresses, infrastructure programs) are logged and skipped.
func (s *Store) LoadInto(ctx context.Context, reg *registry.Registry) (int, error) {
	venues, err := s.Venues(ctx)
	if err != nil {
		return 0, err
	}
	bots, err := s.KnownBots(ctx)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for id, name := range venues {
		if err := reg.AddVenue(id, name); err != nil {
			s.log.WithError(err).WithField("program_id", id).Warn("skipping persisted venue")
			continue
		}
		loaded++
	}
	for _, w := range bots {
		if err := reg.AddKnownBot(w); err != nil {
			s.log.WithError(err).WithField("wallet", w).Warn("skipping persisted known bot")
			continue
		}
		loaded++
	}
	return loaded, nil
}
