package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	defaultMaxOpenConns = 2
	defaultMaxLifetime  = 5 * time.Minute
	pingTimeout         = 3 * time.Second
)

type Config struct {
	DSN string
	// A sync holds one connection at a time; zero values use small defaults.
	MaxOpenConns int
	MaxLifetime  time.Duration
}

// Open returns a MySQL pool for cfg.DSN. Timestamps are always parsed into time.Time.
func Open(cfg Config) (*sql.DB, error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	mc.ParseTime = true

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	lifetime := cfg.MaxLifetime
	if lifetime <= 0 {
		lifetime = defaultMaxLifetime
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(lifetime)

	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	c, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(c)
}
