package state

import (
	"context"
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type snapshotRecord struct {
	Name      string `gorm:"primaryKey;size:64"`
	Body      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (snapshotRecord) TableName() string {
	return "published_state_snapshots"
}

// SQLiteBackend stores the snapshot as one row in a local SQLite database.
type SQLiteBackend struct {
	db   *gorm.DB
	name string
}

// OpenSQLite opens the database at path and creates the snapshot table.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&snapshotRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func NewSQLiteBackend(db *gorm.DB, name string) *SQLiteBackend {
	if name == "" {
		name = DefaultSnapshotName
	}
	return &SQLiteBackend{db: db, name: name}
}

func (b *SQLiteBackend) Load(ctx context.Context) ([]byte, bool, error) {
	var rec snapshotRecord
	res := b.db.WithContext(ctx).Where("name = ?", b.name).Limit(1).Find(&rec)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	return rec.Body, true, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, data []byte) error {
	rec := snapshotRecord{Name: b.name, Body: data, UpdatedAt: time.Now().UTC()}
	return b.db.WithContext(ctx).Save(&rec).Error
}
