package attachments

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TempPreviewer копирует изображения во временный каталог. Дескриптор превью — путь к копии.
type TempPreviewer struct {
	dir    string
	create func(name string) (io.WriteCloser, error)
}

// NewTempPreviewer создает каталог для превью.
func NewTempPreviewer() (*TempPreviewer, error) {
	dir, err := os.MkdirTemp("", "smartfox-preview-*")
	if err != nil {
		return nil, err
	}
	return &TempPreviewer{
		dir: dir,
		create: func(name string) (io.WriteCloser, error) {
			return os.Create(name)
		},
	}, nil
}

// Dir возвращает каталог превью.
func (p *TempPreviewer) Dir() string {
	return p.dir
}

func (p *TempPreviewer) Acquire(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst := filepath.Join(p.dir, uuid.NewString()+filepath.Ext(path))
	f, err := p.create(dst)
	if err != nil {
		return "", err
	}

	_, err = io.Copy(f, src)
	// Ошибка Close означает недописанную копию
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to copy preview: %w", err)
	}
	return dst, nil
}

func (p *TempPreviewer) Release(handle string) error {
	if !strings.HasPrefix(filepath.Clean(handle), filepath.Clean(p.dir)+string(filepath.Separator)) {
		return errors.New("preview is not owned by this previewer")
	}
	return os.Remove(handle)
}

// Close удаляет каталог превью со всем содержимым.
func (p *TempPreviewer) Close() error {
	return os.RemoveAll(p.dir)
}
