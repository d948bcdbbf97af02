package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smartfox/smartfox/internal/storage"

	_ "modernc.org/sqlite" // driver: sqlite
)

// DefaultPath — файл хранилища по умолчанию относительно домашнего каталога.
const DefaultPath = ".smartfox/state.db"

// Storage хранит сессию клиента в файле SQLite.
type Storage struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS local_storage (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)
`

// Open открывает (или создает) файл path. Для пустого path берется файл по умолчанию
// в домашнем каталоге, для ":memory:" база создается в памяти.
func Open(ctx context.Context, path string) (*Storage, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, DefaultPath)
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Одна база в памяти живет только в рамках одного соединения.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create local_storage table: %w", err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO local_storage (key, value) VALUES (?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, key)
	return err
}

func (s *Storage) Close() error {
	return s.db.Close()
}
