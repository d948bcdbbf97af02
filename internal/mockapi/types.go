package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/smartfox/smartfox/internal/domain/models"
)

// Error — ошибка хранилища с HTTP-статусом ответа.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mockapi: %d %s", e.Status, e.Message)
}

func errorf(status int, format string, args ...interface{}) error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// statusOf возвращает HTTP-статус ошибки.
func statusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

type user struct {
	ID   int
	Name string
	Role string
	Hash []byte
}

type experiment struct {
	models.Experiment
	OwnerID   int
	CreatedAt time.Time
}

type attempt struct {
	Answers    map[string]models.AnswerInput
	Status     models.SubmissionStatus
	Submission *models.Submission
}

type group struct {
	ID         int
	Name       string
	StudentIDs []int
}

// Page — параметры страницы списка.
type Page struct {
	Page  int
	Limit int
}

// Значения страницы по умолчанию
const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 1000
)

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = defaultPage
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

func paginate[T any](items []T, p Page) ([]T, models.Pagination) {
	p = p.normalize()
	meta := models.Pagination{Page: p.Page, Limit: p.Limit, Total: len(items)}

	start := (p.Page - 1) * p.Limit
	if start >= len(items) {
		return []T{}, meta
	}
	end := min(start+p.Limit, len(items))
	return items[start:end], meta
}
