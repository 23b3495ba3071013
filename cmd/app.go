package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"pdfhistory/internal/config"
	"pdfhistory/internal/repository"
	"pdfhistory/internal/service"
)

// openDatabase подключается к базе (с повторами) и применяет миграции
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := repository.Connect(ctx, cfg.Driver, cfg.DSN(), cfg.MaxAttempts, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}

	if err := repository.Migrate(cfg.Driver, cfg.MigrationURL()); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	return db, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.Addr)
	}
	return client, nil
}

// newParamStore выбирает хранилище параметров инструментов
func newParamStore(ctx context.Context, cfg *config.Config, db *sqlx.DB) (*service.ParamStore, func(), error) {
	if cfg.Params.Backend != config.ParamsBackendRedis {
		return service.NewParamStore(repository.NewSQLKeyValueStore(db)), func() {}, nil
	}

	client, err := openRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	return service.NewParamStore(repository.NewRedisKeyValueStore(client, cfg.Params.RedisPrefix)), closeFn, nil
}
