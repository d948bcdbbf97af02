package sender

import (
	"context"

	"github.com/smartfox/smartfox/internal/domain/models"
)

// Sender определяет основной интерфейс для отправки объявлений.
type Sender interface {
	// Message отправляет объявление студентам users.
	Message(ctx context.Context, title, content string, users []string, opts *Options) (*models.Notification, error)
}

// Options — необязательные поля объявления.
type Options struct {
	ExperimentID string
	Important    bool
}
