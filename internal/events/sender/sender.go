package sender

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
)

// ErrEmptyMessage возвращается, если у объявления нет заголовка или текста.
var ErrEmptyMessage = errors.New("notification title and content are required")

// NotificationSender реализует отправку объявлений через REST API платформы.
type NotificationSender struct {
	client client.NotificationAPI
	now    func() time.Time
}

// NewSender создает новый объект структуры NotificationSender.
func NewSender(client client.NotificationAPI) *NotificationSender {
	return &NotificationSender{client: client, now: time.Now}
}

// Message отправляет объявление.
func (s *NotificationSender) Message(
	ctx context.Context,
	title, content string,
	users []string,
	opts *Options,
) (*models.Notification, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, ErrEmptyMessage
	}

	n := models.Notification{
		Title:     title,
		Content:   content,
		Users:     users,
		CreatedAt: s.now().UTC(),
	}
	if opts != nil {
		n.ExperimentID = opts.ExperimentID
		n.IsImportant = opts.Important
	}

	if err := s.client.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	return &n, nil
}
