package sender

import (
	"context"
	"testing"
	"time"

	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationAPI struct {
	created []models.Notification
	err     error
}

func (f *fakeNotificationAPI) CreateNotification(ctx context.Context, n models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationAPI) TeacherNotifications(ctx context.Context, q models.PageQuery) (*client.NotificationList, error) {
	return &client.NotificationList{}, nil
}

func (f *fakeNotificationAPI) StudentNotifications(ctx context.Context, studentID string, q models.PageQuery) (*client.NotificationList, error) {
	return &client.NotificationList{}, nil
}

func TestSender_Message(t *testing.T) {
	api := &fakeNotificationAPI{}
	s := NewSender(api)
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	n, err := s.Message(context.Background(), " Дедлайн ", "Сдать до пятницы", []string{"1", "2"},
		&Options{ExperimentID: "exp1", Important: true})
	require.NoError(t, err)

	want := models.Notification{
		Title:        "Дедлайн",
		Content:      "Сдать до пятницы",
		ExperimentID: "exp1",
		IsImportant:  true,
		Users:        []string{"1", "2"},
		CreatedAt:    now,
	}
	assert.Equal(t, &want, n)
	assert.Equal(t, []models.Notification{want}, api.created)
}

func TestSender_MessageValidation(t *testing.T) {
	api := &fakeNotificationAPI{}
	s := NewSender(api)

	_, err := s.Message(context.Background(), "  ", "text", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, api.created)
}

func TestSender_MessageServerError(t *testing.T) {
	api := &fakeNotificationAPI{err: &client.APIError{StatusCode: 500, Message: "db down"}}
	s := NewSender(api)

	_, err := s.Message(context.Background(), "t", "c", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "db down", client.UserMessage(err, ""))
}
