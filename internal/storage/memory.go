package storage

import (
	"context"
	"sync"
)

// MemoryStorage реализует Storage в памяти.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage создаёт новый MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string]string),
	}
}

// Get возвращает значение по ключу.
func (s *MemoryStorage) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}

	return value, nil
}

// Set сохраняет значение.
func (s *MemoryStorage) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	return nil
}

// Remove удаляет ключ.
func (s *MemoryStorage) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)

	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
