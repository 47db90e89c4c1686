package legcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Kind selects a cache backend.
type Kind string

const (
	KindNone     Kind = "none"
	KindMemory   Kind = "memory"
	KindRedis    Kind = "redis"
	KindPostgres Kind = "postgres"
)

// Options configures Open.
type Options struct {
	Kind      Kind
	Namespace string

	// Memory.
	Capacity int

	// Redis.
	RedisAddr     string
	RedisPassword string
	RedisTTL      time.Duration

	// Postgres.
	PostgresDSN string
}

// Open builds the configured cache backend. KindNone returns a nil Cache,
// which callers treat as caching disabled.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Kind {
	case KindNone, "":
		return nil, nil

	case KindMemory:
		return NewMemory(opts.Capacity), nil

	case KindRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("leg cache redis ping: %w", err)
		}
		return NewRedis(client, opts.Namespace, opts.RedisTTL), nil

	case KindPostgres:
		db, err := sql.Open("pgx", opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("leg cache postgres open: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("leg cache postgres ping: %w", err)
		}
		if err := InitSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewPostgres(db, opts.Namespace), nil

	default:
		return nil, fmt.Errorf("unknown leg cache kind %q", opts.Kind)
	}
}
