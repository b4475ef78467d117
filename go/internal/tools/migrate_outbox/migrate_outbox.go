package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mcdev12/courtline/go/internal/config"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox"
)

// Creates the outbox table (postgres) or its indexes (mongo) for the configured store.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	switch cfg.Store.Driver {
	case config.StoreMongo:
		err = migrateMongo(ctx, cfg.Store.Mongo)
	default:
		err = migratePostgres(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("outbox schema ready (%s)\n", cfg.Store.Driver)
}

func migratePostgres(ctx context.Context, cfg *config.Config) error {
	pool, err := pgxpool.New(ctx, cfg.Store.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("connect error: %w", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, outbox.Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func migrateMongo(ctx context.Context, cfg config.MongoConfig) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return fmt.Errorf("connect error: %w", err)
	}
	defer client.Disconnect(ctx)

	repo := outbox.NewMongoRepository(client.Database(cfg.Database).Collection(cfg.Collection))
	return repo.EnsureIndexes(ctx)
}
