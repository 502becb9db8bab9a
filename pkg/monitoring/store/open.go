package store

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/scheduler"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	// Backend is memory, sqlite or redis. Default: memory.
	Backend string

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	// RedisAddr is host:port for the redis backend.
	RedisAddr string

	// RedisPassword authenticates to Redis when set.
	RedisPassword string

	// RedisDB selects the Redis logical database.
	RedisDB int

	// PurgeSchedule is a cron expression for removing expired entries.
	// Empty disables scheduled purging; stages still purge before each run.
	PurgeSchedule string
}

// Open constructs the configured backend.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(nil), nil
	case BackendSQLite:
		return NewSQLiteStore(SQLiteConfig{Path: cfg.SQLitePath})
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis backend requires an address")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client, RedisConfig{}), nil
	default:
		return nil, fmt.Errorf("unknown monitoring store backend %q", cfg.Backend)
	}
}

// PurgeScheduler returns a cron scheduler that purges expired entries.
func PurgeScheduler(s Store, schedule string) *scheduler.Scheduler {
	return scheduler.New("monitoring.purge", schedule, s.Purge)
}
