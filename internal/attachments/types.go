package attachments

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

// Status — состояние загрузки вложения.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// File — вложение эксперимента в редакторе.
// Remote выставлен у файлов, которые уже лежат на сервере.
type File struct {
	ID       uuid.UUID
	Name     string
	Path     string
	MimeType string
	Size     int64
	Status   Status
	Preview  string
	Remote   bool
	Err      error
}

// IsImage возвращает true для изображений.
func (f File) IsImage() bool {
	return isImage(f.MimeType)
}

// Previewer выдает и освобождает превью изображений.
type Previewer interface {
	// Acquire создает превью файла path и возвращает его дескриптор.
	Acquire(path string) (string, error)

	// Release освобождает превью.
	Release(handle string) error
}

// FileAPI — методы REST API для вложений.
type FileAPI interface {
	UploadFile(ctx context.Context, experimentID, name string, r io.Reader) error
	DeleteFile(ctx context.Context, experimentID, name string) error
}

// Ошибки менеджера вложений
var (
	ErrNotFound     = errors.New("attachment not found")
	ErrNoExperiment = errors.New("experiment is not set for remote attachment")
	ErrClosed       = errors.New("attachment manager is closed")
)
