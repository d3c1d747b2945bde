package db

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"
)

// openMySQL parses dsn and opens a connector with the given credentials
func openMySQL(dsn, user, password string) (*Client, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, &InitError{Driver: "mysql", Reason: ReasonInvalidDSN, Err: err}
	}
	if user != "" {
		cfg.User = user
	}
	if password != "" {
		cfg.Passwd = password
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, &InitError{Driver: "mysql", Reason: ReasonInvalidDSN, Err: err}
	}

	return &Client{db: sql.OpenDB(connector), driver: "mysql"}, nil
}
