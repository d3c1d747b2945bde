package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

// openPgx opens a pgx pool and exposes it through database/sql
func openPgx(ctx context.Context, dsn, user, password string) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &InitError{Driver: "pgx", Reason: ReasonInvalidDSN, Err: err}
	}
	if user != "" {
		cfg.ConnConfig.User = user
	}
	if password != "" {
		cfg.ConnConfig.Password = password
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &InitError{Driver: "pgx", Reason: ReasonCannotConnect, Err: err}
	}

	conn := stdlib.OpenDBFromPool(pool)
	return &Client{
		db:     conn,
		driver: "pgx",
		close: func() error {
			err := conn.Close()
			pool.Close()
			return err
		},
	}, nil
}

// openPostgres opens a lib/pq connection from a URL or key=value DSN
func openPostgres(dsn, user, password string) (*Client, error) {
	conninfo := dsn
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		var err error
		if conninfo, err = pq.ParseURL(dsn); err != nil {
			return nil, &InitError{Driver: "postgres", Reason: ReasonInvalidDSN, Err: err}
		}
	}
	if user != "" {
		conninfo += " user=" + quoteConnValue(user)
	}
	if password != "" {
		conninfo += " password=" + quoteConnValue(password)
	}

	connector, err := pq.NewConnector(conninfo)
	if err != nil {
		return nil, &InitError{Driver: "postgres", Reason: ReasonInvalidDSN, Err: err}
	}

	return &Client{db: sql.OpenDB(connector), driver: "postgres"}, nil
}

// quoteConnValue quotes a value for a libpq key=value connection string
func quoteConnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
