package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/smartfox/smartfox/internal/storage"
)

// Storage хранит сессию клиента в PostgreSQL.
// Используется на общих машинах в лаборатории, где сессия должна пережить смену рабочего места.
type Storage struct {
	pool      *pgxpool.Pool
	namespace string
}

const schema = `
CREATE TABLE IF NOT EXISTS local_storage (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
)
`

// NewStorage подключается к базе по dsn и создает таблицу, если ее нет.
// namespace отделяет сессии разных рабочих мест.
func NewStorage(ctx context.Context, dsn, namespace string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if _, err = pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create local_storage table: %w", err)
	}

	return &Storage{pool: pool, namespace: namespace}, nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	query := `
	SELECT value FROM local_storage WHERE namespace = $1 AND key = $2
	`

	var value string
	err := s.pool.QueryRow(ctx, query, s.namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO local_storage (namespace, key, value) VALUES ($1, $2, $3)
	ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value
	`

	_, err := s.pool.Exec(ctx, query, s.namespace, key, value)
	return err
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	query := `
	DELETE FROM local_storage WHERE namespace = $1 AND key = $2
	`

	_, err := s.pool.Exec(ctx, query, s.namespace, key)
	return err
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}
