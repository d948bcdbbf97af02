package auth

import (
	"errors"
	"time"
)

// Ошибки авторизации
var (
	ErrValidation  = errors.New("validation error")
	ErrNotLoggedIn = errors.New("not logged in")
	ErrWrongRole   = errors.New("action is not available for this role")
)

// Session — данные текущей сессии.
type Session struct {
	Token    string
	Username string
	Role     string
	UserID   string
}

// LoggedIn возвращает true, если в сессии есть токен.
func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// Таймаут операций с хранилищем, когда контекст вызывающего недоступен
const timeoutStorage = 2 * time.Second
