package fetcher

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
)

// NotificationFetcher реализует Fetcher через REST API платформы.
// Вместо offset хранит время самого нового полученного объявления.
type NotificationFetcher struct {
	client  client.NotificationAPI
	role    string
	userID  string
	offset  time.Time
	seenIDs map[string]struct{}
}

// NewNotificationFetcher создает fetcher для роли role.
// userID нужен только студенту: объявления студента запрашиваются по его идентификатору.
func NewNotificationFetcher(client client.NotificationAPI, role, userID string) *NotificationFetcher {
	return &NotificationFetcher{
		client:  client,
		role:    role,
		userID:  userID,
		seenIDs: make(map[string]struct{}),
	}
}

// GetUpdates возвращает новые объявления от старых к новым.
func (f *NotificationFetcher) GetUpdates(ctx context.Context) ([]models.Notification, error) {
	q := models.PageQuery{Page: 1, Limit: pageLimit}

	var (
		list *client.NotificationList
		err  error
	)
	if f.role == models.RoleTeacher {
		list, err = f.client.TeacherNotifications(ctx, q)
	} else {
		list, err = f.client.StudentNotifications(ctx, f.userID, q)
	}
	if err != nil {
		return nil, err
	}

	var updates []models.Notification
	for _, n := range list.Notifications {
		if n.CreatedAt.Before(f.offset) {
			continue
		}
		// Объявления с тем же временем, что и offset, отсекаются по идентификатору
		if n.CreatedAt.Equal(f.offset) {
			if _, ok := f.seenIDs[n.NotificationID]; ok {
				continue
			}
		}
		updates = append(updates, n)
	}

	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].CreatedAt.Before(updates[j].CreatedAt)
	})

	if len(updates) != 0 {
		newest := updates[len(updates)-1].CreatedAt
		if newest.After(f.offset) {
			f.offset = newest
			f.seenIDs = make(map[string]struct{})
		}
		for _, n := range updates {
			if n.CreatedAt.Equal(f.offset) {
				f.seenIDs[n.NotificationID] = struct{}{}
			}
		}
	}

	return updates, nil
}

// Poll вызывает GetUpdates каждые interval и передает новые объявления в handle,
// пока не будет отменен ctx. Ошибки опроса логируются, опрос продолжается.
func Poll(ctx context.Context, f Fetcher, interval time.Duration, log *slog.Logger, handle func([]models.Notification)) {
	if log == nil {
		log = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		updates, err := f.GetUpdates(ctx)
		if err != nil && ctx.Err() == nil {
			log.Warn("failed to fetch notifications", slog.Any("error", err))
		}
		if len(updates) != 0 {
			handle(updates)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
