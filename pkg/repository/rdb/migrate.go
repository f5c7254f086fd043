package rdb

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// Migrate applies all pending schema migrations of the dialect. It uses its own
// connection, which is closed before returning.
func Migrate(dialect Dialect, dsn string) error {
	if dialect == DialectSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return goerr.Wrap(err, "failed to open database for migration", goerr.V("dialect", dialect))
	}

	var driver database.Driver
	switch dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case DialectSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		_ = db.Close()
		return goerr.New("unsupported database dialect", goerr.V("dialect", dialect))
	}
	if err != nil {
		_ = db.Close()
		return goerr.Wrap(err, "failed to create migration driver", goerr.V("dialect", dialect))
	}

	src, err := iofs.New(migrations, "migrations/"+string(dialect))
	if err != nil {
		_ = driver.Close()
		return goerr.Wrap(err, "failed to load migrations", goerr.V("dialect", dialect))
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		_ = driver.Close()
		return goerr.Wrap(err, "failed to create migrate instance", goerr.V("dialect", dialect))
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return goerr.Wrap(err, "failed to run migration", goerr.V("dialect", dialect))
	}

	return nil
}
