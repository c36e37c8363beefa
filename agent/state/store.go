package state

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	defaultStoreKeyPrefix = "coach:session:"
	defaultStoreTTL       = 24 * time.Hour
	maxResponseSizeBytes  = 2 << 20
)

// Store persists session state between process restarts.
type Store interface {
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	Save(ctx context.Context, st *SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

const (
	BackendMemory   = "memory"
	BackendUpstash  = "upstash"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

type StoreConfig struct {
	Backend  string        `envconfig:"BACKEND" default:"memory"`
	TTL      time.Duration `envconfig:"TTL" default:"24h"`
	Upstash  UpstashRedisConfig
	Postgres PostgresConfig
	Bolt     BoltConfig
}

// NewStore builds the backend named by cfg.Backend.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendUpstash:
		return NewUpstashRedisStore(cfg.Upstash, WithTTL(cfg.TTL))
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.Postgres)
	case BackendBolt:
		return NewBoltStore(cfg.Bolt)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// CloseStore releases resources held by stores that own a connection or file.
func CloseStore(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
