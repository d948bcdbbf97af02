package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Manager хранит список вложений редактора и их превью.
type Manager struct {
	mu           sync.Mutex
	files        []File
	experimentID string
	closed       bool

	api      FileAPI
	previews Previewer
	open     func(path string) (io.ReadCloser, error)
	log      *slog.Logger
}

// NewManager создает менеджер вложений. previews может быть nil, тогда превью не создаются.
func NewManager(api FileAPI, previews Previewer, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		api:      api,
		previews: previews,
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
		log: log,
	}
}

// LoadRemote добавляет файлы, которые уже загружены на сервер (режим редактирования).
func (m *Manager) LoadRemote(experimentID string, names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.experimentID = experimentID
	for _, name := range names {
		m.files = append(m.files, File{
			ID:       uuid.New(),
			Name:     name,
			MimeType: mimeType(name),
			Status:   StatusDone,
			Remote:   true,
		})
	}
}

// AddFiles добавляет локальные файлы в очередь загрузки. Для изображений создается превью.
func (m *Manager) AddFiles(paths ...string) ([]File, error) {
	added := make([]File, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return added, fmt.Errorf("failed to add attachment: %w", err)
		}
		if info.IsDir() {
			return added, fmt.Errorf("failed to add attachment: %s is a directory", path)
		}

		f := File{
			ID:       uuid.New(),
			Name:     filepath.Base(path),
			Path:     path,
			MimeType: mimeType(path),
			Size:     info.Size(),
			Status:   StatusPending,
		}

		if f.IsImage() && m.previews != nil {
			handle, err := m.previews.Acquire(path)
			if err != nil {
				// Без превью файл все равно можно загрузить
				m.log.Warn("failed to create preview", slog.String("file", f.Name), slog.Any("error", err))
			} else {
				f.Preview = handle
			}
		}

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			m.release(&f)
			return added, ErrClosed
		}
		m.files = append(m.files, f)
		m.mu.Unlock()

		added = append(added, f)
	}

	return added, nil
}

// Files возвращает копию списка вложений.
func (m *Manager) Files() []File {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]File(nil), m.files...)
}

// RemoveFile удаляет вложение. Файл на сервере сначала удаляется там,
// и только после ответа сервера пропадает из списка.
func (m *Manager) RemoveFile(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	f, ok := m.find(id)
	experimentID := m.experimentID
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	if f.Remote {
		if experimentID == "" {
			return ErrNoExperiment
		}
		if err := m.api.DeleteFile(ctx, experimentID, f.Name); err != nil {
			return fmt.Errorf("failed to delete attachment %s: %w", f.Name, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.files {
		if m.files[i].ID != id {
			continue
		}
		m.release(&m.files[i])
		m.files = append(m.files[:i], m.files[i+1:]...)
		return nil
	}

	// Файл уже удален параллельным вызовом
	return nil
}

// UploadAll по очереди загружает все локальные вложения, которые еще не загружены.
// Ошибка одного файла не прерывает загрузку остальных: она остается в статусе файла
// и попадает в общую возвращаемую ошибку.
func (m *Manager) UploadAll(ctx context.Context, experimentID string) error {
	m.mu.Lock()
	m.experimentID = experimentID
	var queue []File
	for _, f := range m.files {
		if !f.Remote && f.Status != StatusDone {
			queue = append(queue, f)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, f := range queue {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		m.setStatus(f.ID, StatusUploading, nil)

		err := m.upload(ctx, experimentID, f)
		if err != nil {
			m.log.Warn("attachment upload failed",
				slog.String("experiment_id", experimentID),
				slog.String("file", f.Name),
				slog.Any("error", err),
			)
			m.setStatus(f.ID, StatusError, err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}

		m.setStatus(f.ID, StatusDone, nil)
	}

	return errors.Join(errs...)
}

// Close освобождает все превью, независимо от статуса файлов.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for i := range m.files {
		m.release(&m.files[i])
	}
	return nil
}

func (m *Manager) upload(ctx context.Context, experimentID string, f File) error {
	r, err := m.open(f.Path)
	if err != nil {
		return err
	}
	defer r.Close()

	return m.api.UploadFile(ctx, experimentID, f.Name, r)
}

func (m *Manager) setStatus(id uuid.UUID, status Status, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.files {
		if m.files[i].ID == id {
			m.files[i].Status = status
			m.files[i].Err = err
			if status == StatusDone {
				m.files[i].Remote = true
			}
			return
		}
	}
}

func (m *Manager) find(id uuid.UUID) (File, bool) {
	for _, f := range m.files {
		if f.ID == id {
			return f, true
		}
	}
	return File{}, false
}

// release освобождает превью файла один раз.
func (m *Manager) release(f *File) {
	if f.Preview == "" || m.previews == nil {
		return
	}
	if err := m.previews.Release(f.Preview); err != nil {
		m.log.Warn("failed to release preview", slog.String("file", f.Name), slog.Any("error", err))
	}
	f.Preview = ""
}

func mimeType(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if t == "" {
		return "application/octet-stream"
	}
	return t
}

func isImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
