package state

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestFileBackend_MissingFileIsEmpty(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "state.json"))

	_, ok, err := b.Load(context.Background())
	if err != nil || ok {
		t.Fatalf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
	}
}

func TestFileBackend_SaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")
	b := NewFileBackend(path)
	ctx := context.Background()

	if err := b.Save(ctx, []byte("first")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := b.Save(ctx, []byte("second")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	data, ok, err := b.Load(ctx)
	if err != nil || !ok || string(data) != "second" {
		t.Fatalf("unexpected load: ok=%v err=%v data=%s", ok, err, data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the state file, found %d entries", len(entries))
	}
}

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	gdb, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	b := NewSQLiteBackend(gdb, "")
	ctx := context.Background()

	if _, ok, err := b.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty backend, ok=%v err=%v", ok, err)
	}

	s := NewStore()
	s.GetOrCreate(5)
	s.SetPublished(5, 123, "hello")
	if _, err := s.Save(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.SetText(5, "hello again")
	if _, err := s.Save(ctx, b); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := Load(ctx, b)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m, ok := loaded.Get(5)
	if !ok || m.Text != "hello again" || *m.MessageID != 123 {
		t.Fatalf("unexpected record: %+v", m)
	}
}

func TestRedisBackend_RoundTrip(t *testing.T) {
	addr := os.Getenv("OFFERSYNC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("OFFERSYNC_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	b, err := NewRedisBackend(ctx, RedisConfig{Addr: addr, Key: "offersync:test:" + t.Name()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer b.Close()
	defer b.client.Del(ctx, b.key)

	if err := b.Save(ctx, []byte(`{"version":3,"messages":{}}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, ok, err := b.Load(ctx)
	if err != nil || !ok || len(data) == 0 {
		t.Fatalf("unexpected load: ok=%v err=%v", ok, err)
	}
}

func TestNewBackend(t *testing.T) {
	ctx := context.Background()

	res, err := NewBackend(ctx, FactoryConfig{Path: filepath.Join(t.TempDir(), "s.json")})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, ok := res.Backend.(*FileBackend); !ok {
		t.Fatalf("expected file backend by default, got %T", res.Backend)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := NewBackend(ctx, FactoryConfig{Backend: "file"}); err == nil {
		t.Fatalf("expected error without a path")
	}
	if _, err := NewBackend(ctx, FactoryConfig{Backend: "mysql"}); err == nil {
		t.Fatalf("expected error without a dsn")
	}
	if _, err := NewBackend(ctx, FactoryConfig{Backend: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestSQLiteBackend_EmptyLoadLogsNothing(t *testing.T) {
	gdb, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	var buf bytes.Buffer
	quiet := gdb.Session(&gorm.Session{Logger: gormlogger.New(
		log.New(&buf, "", 0),
		gormlogger.Config{LogLevel: gormlogger.Warn},
	)})

	ctx := context.Background()
	if _, ok, err := NewSQLiteBackend(quiet, "").Load(ctx); err != nil || ok {
		t.Fatalf("expected empty backend, ok=%v err=%v", ok, err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no log output, got %q", buf.String())
	}

	if err := NewSQLiteBackend(quiet, "other").Save(ctx, []byte(`{"version":3}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := NewSQLiteBackend(quiet, "").Load(ctx); err != nil || ok {
		t.Fatalf("expected default snapshot still missing, ok=%v err=%v", ok, err)
	}
}
