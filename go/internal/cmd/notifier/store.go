package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mcdev12/courtline/go/internal/config"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox/db"
)

// setupStore opens the configured outbox backend. The returned func releases it.
func setupStore(ctx context.Context, cfg config.StoreConfig) (outbox.OutboxRepository, func(), error) {
	switch cfg.Driver {
	case config.StoreMongo:
		return setupMongo(ctx, cfg.Mongo)
	default:
		return setupPostgres(ctx, cfg)
	}
}

func setupPostgres(ctx context.Context, cfg config.StoreConfig) (outbox.OutboxRepository, func(), error) {
	database, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("user", cfg.Postgres.User).
		Str("host", cfg.Postgres.Host).
		Int("port", cfg.Postgres.Port).
		Str("database", cfg.Postgres.Database).
		Msg("connected to postgres outbox")

	repo := outbox.NewRepository(db.New(database), database)
	return repo, func() { database.Close() }, nil
}

func setupMongo(ctx context.Context, cfg config.MongoConfig) (outbox.OutboxRepository, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to disconnect mongo")
		}
	}

	if err := client.Ping(ctx, nil); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	repo := outbox.NewMongoRepository(client.Database(cfg.Database).Collection(cfg.Collection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}

	log.Info().
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Msg("connected to mongo outbox")
	return repo, closeFn, nil
}
