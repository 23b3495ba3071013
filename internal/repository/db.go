package repository

import (
	"context"
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

// Connect подключается к базе с повторными попытками
func Connect(ctx context.Context, driver, dsn string, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var (
		db  *sqlx.DB
		err error
	)
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.ConnectContext(ctx, driver, dsn)
		if err == nil {
			if driver == DriverSQLite {
				// sqlite не любит параллельную запись из нескольких соединений
				db.SetMaxOpenConns(1)
			}
			return db, nil
		}

		log.Warn().Err(err).
			Str("driver", driver).
			Int("attempt", i+1).
			Int("max_attempts", maxAttempts).
			Msg("failed to connect to database")

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "connect cancelled")
		case <-time.After(delay):
		}
	}

	return nil, errors.Wrapf(err, "failed to connect after %d attempts", maxAttempts)
}

// Migrate применяет встроенные миграции для указанного драйвера
func Migrate(driver, databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return errors.Wrapf(err, "no migrations for driver %s", driver)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return errors.Wrap(err, "failed to create migrate instance")
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return errors.Wrap(err, "failed to get migration version")
	}

	if dirty {
		log.Warn().Uint("version", version).Msg("found dirty database state, forcing version")
		if err := m.Force(int(version)); err != nil {
			return errors.Wrap(err, "failed to force version")
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "failed to run migrations")
	}

	return nil
}
