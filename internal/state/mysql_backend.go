package state

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"time"

	"github.com/ETAnderson/offersync/internal/migrate"
)

//go:embed migrations/*.sql
var mysqlMigrations embed.FS

// DefaultSnapshotName is the row or key the snapshot is stored under.
const DefaultSnapshotName = "default"

// MySQLBackend stores the snapshot as one row of published_state_snapshots.
type MySQLBackend struct {
	db   *sql.DB
	name string
}

func NewMySQLBackend(db *sql.DB, name string) *MySQLBackend {
	if name == "" {
		name = DefaultSnapshotName
	}
	return &MySQLBackend{db: db, name: name}
}

// Migrate creates the snapshot table when missing.
func (b *MySQLBackend) Migrate(ctx context.Context) error {
	return migrate.ApplyFS(ctx, b.db, mysqlMigrations, "migrations")
}

func (b *MySQLBackend) Load(ctx context.Context) ([]byte, bool, error) {
	var body []byte
	err := b.db.QueryRowContext(
		ctx,
		`SELECT body FROM published_state_snapshots WHERE name = ?`,
		b.name,
	).Scan(&body)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

func (b *MySQLBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(
		ctx,
		`INSERT INTO published_state_snapshots (name, body, updated_at)
		 VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE body = VALUES(body), updated_at = VALUES(updated_at)`,
		b.name, data, time.Now().UTC(),
	)
	return err
}
