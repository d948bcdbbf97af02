package fetcher

import (
	"context"

	"github.com/smartfox/smartfox/internal/domain/models"
)

// Fetcher определяет основной интерфейс для получения новых объявлений.
type Fetcher interface {
	// GetUpdates возвращает объявления, которых еще не было в предыдущих вызовах.
	GetUpdates(ctx context.Context) ([]models.Notification, error)
}

// pageLimit — сколько последних объявлений запрашивается за один опрос
const pageLimit = 50
