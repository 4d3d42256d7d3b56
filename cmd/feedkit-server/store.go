package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/apex/log"
	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/adapters/memory"
	"github.com/coregx/feedkit/adapters/redis"
	"github.com/coregx/feedkit/adapters/relica"
	"github.com/coregx/feedkit/cmd/feedkit-server/internal/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// openRepository connects the configured subscription backend. The returned
// func releases its connections.
func openRepository(ctx context.Context, cfg config.StoreConfig) (feedkit.SubscriptionRepository, func(), error) {
	switch cfg.Backend {
	case "sql":
		return openSQL(ctx, cfg.Database)
	case "redis":
		client, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(logTags).Infof("Using Redis store at %s", cfg.Redis.Addr)
		closer := func() {
			if err := client.Close(); err != nil {
				log.WithError(err).WithFields(logTags).Error("Failed to close Redis client")
			}
		}
		return redis.NewSubscriptionRepositoryWithPrefix(client, cfg.Redis.KeyPrefix), closer, nil
	case "memory":
		log.WithFields(logTags).Warn("Using in-memory store, subscriptions are lost on restart")
		return memory.NewSubscriptionRepository(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func openSQL(ctx context.Context, cfg config.DatabaseConfig) (feedkit.SubscriptionRepository, func(), error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	closer := func() {
		if err := db.Close(); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failed to close database")
		}
	}

	if err := db.PingContext(ctx); err != nil {
		closer()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Migrate {
		if err := feedkit.ApplyMigrations(ctx, db); err != nil {
			closer()
			return nil, nil, err
		}
	}

	log.WithFields(logTags).Infof("Using %s store", cfg.Driver)
	return relica.NewRepositories(db, cfg.Driver).Subscription, closer, nil
}
