package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Ошибки клиента
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Kind — класс ошибки API.
type Kind int

const (
	// KindTransport — ответа от сервера нет вовсе.
	KindTransport Kind = iota
	// KindValidation — сервер отклонил запрос (4xx).
	KindValidation
	// KindServer — ошибка на стороне сервера (5xx).
	KindServer
)

// TransportError возвращается, когда запрос не дошел до сервера или ответ не был получен.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport error: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Kind всегда KindTransport.
func (e *TransportError) Kind() Kind {
	return KindTransport
}

// APIError возвращается, когда сервер ответил ошибкой.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("client api error: status %d: %s", e.StatusCode, e.Message)
}

// Kind возвращает KindServer для 5xx и KindValidation для остальных кодов.
func (e *APIError) Kind() Kind {
	if e.StatusCode >= http.StatusInternalServerError {
		return KindServer
	}
	return KindValidation
}

// Is позволяет сравнивать APIError с ErrUnauthorized и ErrForbidden через errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	}
	return false
}

// KindOf возвращает класс ошибки. Для ошибок, не пришедших из клиента, возвращает KindTransport.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind()
	}
	return KindTransport
}

// UserMessage возвращает сообщение сервера из цепочки ошибок или fallback, если его нет.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
