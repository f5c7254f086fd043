package rdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite" // SQLite driver
)

// Dialect selects the SQL driver backing the repository
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) driverName() string {
	return string(d)
}

// RDB implements interfaces.Repository on a relational database via sqlx
type RDB struct {
	db               *sqlx.DB
	suggestedAction  *suggestedActionRepository
	monitoredChannel *monitoredChannelRepository
}

var _ interfaces.Repository = &RDB{}

type config struct {
	migrate bool
}

type Option func(*config)

// WithMigrate applies pending schema migrations before the repository is returned
func WithMigrate() Option {
	return func(c *config) {
		c.migrate = true
	}
}

// New connects to the database identified by dsn
func New(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*RDB, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, goerr.New("unsupported database dialect", goerr.V("dialect", dialect))
	}

	if dialect == DialectSQLite {
		dsn = sqliteDSN(dsn)
	}

	if cfg.migrate {
		if err := Migrate(dialect, dsn); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.ConnectContext(ctx, dialect.driverName(), dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to database", goerr.V("dialect", dialect))
	}

	if dialect == DialectSQLite {
		// SQLite allows a single writer; serialize access through one connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	return &RDB{
		db:               db,
		suggestedAction:  &suggestedActionRepository{db: db},
		monitoredChannel: &monitoredChannelRepository{db: db},
	}, nil
}

// NewPostgres connects to PostgreSQL
func NewPostgres(ctx context.Context, url string, opts ...Option) (*RDB, error) {
	return New(ctx, DialectPostgres, url, opts...)
}

// NewSQLite opens (and creates if needed) an SQLite database file
func NewSQLite(ctx context.Context, path string, opts ...Option) (*RDB, error) {
	return New(ctx, DialectSQLite, path, opts...)
}

func (r *RDB) SuggestedAction() interfaces.SuggestedActionRepository {
	return r.suggestedAction
}

func (r *RDB) MonitoredChannel() interfaces.MonitoredChannelRepository {
	return r.monitoredChannel
}

func (r *RDB) Close() error {
	if err := r.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	return nil
}

func sqliteDSN(path string) string {
	if len(path) >= 5 && path[:5] == "file:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
}

// withTx runs fn in a transaction, committing when fn returns nil
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return goerr.Wrap(err, "transaction failed and rollback failed", goerr.V("rollback_error", rbErr.Error()))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
