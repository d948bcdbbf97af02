package storage

import (
	"context"
	"errors"
)

// Ключи, под которыми хранится сессия.
const (
	KeyToken    = "token"
	KeyUsername = "username"
	KeyRole     = "role"
	KeyUserID   = "user_id"
)

// SessionKeys — все ключи сессии.
var SessionKeys = []string{KeyToken, KeyUsername, KeyRole, KeyUserID}

// ErrNotFound возвращается Get, если ключа нет.
var ErrNotFound = errors.New("key not found")

// Storage определяет интерфейс локального хранилища клиента (аналог localStorage браузера).
type Storage interface {
	// Get возвращает значение по ключу или ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set сохраняет значение по ключу.
	Set(ctx context.Context, key, value string) error

	// Remove удаляет ключ. Отсутствие ключа не ошибка.
	Remove(ctx context.Context, key string) error

	// Close освобождает ресурсы хранилища.
	Close() error
}
