package attachments

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPreviewer struct {
	mu       sync.Mutex
	acquired map[string]int
	released map[string]int
	n        int
}

func newCountingPreviewer() *countingPreviewer {
	return &countingPreviewer{acquired: map[string]int{}, released: map[string]int{}}
}

func (p *countingPreviewer) Acquire(path string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.n++
	handle := filepath.Base(path)
	p.acquired[handle]++
	return handle, nil
}

func (p *countingPreviewer) Release(handle string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.released[handle]++
	return nil
}

type fakeFileAPI struct {
	mu        sync.Mutex
	uploaded  map[string]string
	deleted   []string
	failOn    string
	deleteErr error
}

func (f *fakeFileAPI) UploadFile(ctx context.Context, experimentID, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if name == f.failOn {
		return errors.New("upload rejected")
	}
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[experimentID+"/"+name] = string(data)
	return nil
}

func (f *fakeFileAPI) DeleteFile(ctx context.Context, experimentID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, experimentID+"/"+name)
	return nil
}

func writeFiles(t *testing.T, names ...string) []string {
	t.Helper()

	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("content of "+name), 0o600))
		paths = append(paths, path)
	}
	return paths
}

func TestManager_AddFilesCreatesPreviewsForImages(t *testing.T) {
	previews := newCountingPreviewer()
	m := NewManager(&fakeFileAPI{}, previews, nil)

	added, err := m.AddFiles(writeFiles(t, "photo.png", "task.pdf")...)
	require.NoError(t, err)
	require.Len(t, added, 2)

	assert.Equal(t, StatusPending, added[0].Status)
	assert.Equal(t, "photo.png", added[0].Preview)
	assert.Equal(t, "image/png", added[0].MimeType)
	assert.True(t, added[0].IsImage())
	assert.Empty(t, added[1].Preview)
	assert.Equal(t, 1, previews.n)
}

func TestManager_RemoveReleasesPreviewOnce(t *testing.T) {
	previews := newCountingPreviewer()
	m := NewManager(&fakeFileAPI{}, previews, nil)

	added, err := m.AddFiles(writeFiles(t, "photo.png")...)
	require.NoError(t, err)

	require.NoError(t, m.RemoveFile(context.Background(), added[0].ID))
	assert.ErrorIs(t, m.RemoveFile(context.Background(), added[0].ID), ErrNotFound)
	require.NoError(t, m.Close())

	assert.Equal(t, 1, previews.released["photo.png"])
	assert.Empty(t, m.Files())
}

func TestManager_CloseReleasesAll(t *testing.T) {
	previews := newCountingPreviewer()
	api := &fakeFileAPI{}
	m := NewManager(api, previews, nil)

	_, err := m.AddFiles(writeFiles(t, "a.png", "b.jpg", "c.txt")...)
	require.NoError(t, err)
	require.NoError(t, m.UploadAll(context.Background(), "exp1"))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Equal(t, map[string]int{"a.png": 1, "b.jpg": 1}, previews.released)

	_, err = m.AddFiles(writeFiles(t, "d.png")...)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 1, previews.released["d.png"])
}

func TestManager_UploadAllContinuesAfterFailure(t *testing.T) {
	api := &fakeFileAPI{failOn: "b.txt"}
	m := NewManager(api, nil, nil)

	_, err := m.AddFiles(writeFiles(t, "a.txt", "b.txt", "c.txt")...)
	require.NoError(t, err)

	err = m.UploadAll(context.Background(), "exp125")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.txt")

	files := m.Files()
	require.Len(t, files, 3)
	assert.Equal(t, StatusDone, files[0].Status)
	assert.Equal(t, StatusError, files[1].Status)
	assert.Error(t, files[1].Err)
	assert.Equal(t, StatusDone, files[2].Status)

	assert.Equal(t, "content of a.txt", api.uploaded["exp125/a.txt"])
	assert.Equal(t, "content of c.txt", api.uploaded["exp125/c.txt"])

	// Повтор загружает только оставшийся файл
	api.failOn = ""
	require.NoError(t, m.UploadAll(context.Background(), "exp125"))
	assert.Len(t, api.uploaded, 3)
	assert.Equal(t, StatusDone, m.Files()[1].Status)
}

func TestManager_RemoteFiles(t *testing.T) {
	api := &fakeFileAPI{}
	m := NewManager(api, nil, nil)
	m.LoadRemote("exp7", []string{"old.pdf", "keep.pdf"})

	// Файлы с сервера не загружаются повторно
	require.NoError(t, m.UploadAll(context.Background(), "exp7"))
	assert.Empty(t, api.uploaded)

	files := m.Files()
	require.Len(t, files, 2)

	api.deleteErr = errors.New("server is down")
	require.Error(t, m.RemoveFile(context.Background(), files[0].ID))
	assert.Len(t, m.Files(), 2)

	api.deleteErr = nil
	require.NoError(t, m.RemoveFile(context.Background(), files[0].ID))
	assert.Equal(t, []string{"exp7/old.pdf"}, api.deleted)

	files = m.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "keep.pdf", files[0].Name)
}

func TestManager_AddMissingFile(t *testing.T) {
	m := NewManager(&fakeFileAPI{}, nil, nil)

	_, err := m.AddFiles(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
	assert.Empty(t, m.Files())
}

func TestTempPreviewer(t *testing.T) {
	p, err := NewTempPreviewer()
	require.NoError(t, err)
	defer p.Close()

	paths := writeFiles(t, "photo.png")
	handle, err := p.Acquire(paths[0])
	require.NoError(t, err)

	data, err := os.ReadFile(handle)
	require.NoError(t, err)
	assert.Equal(t, "content of photo.png", string(data))

	require.NoError(t, p.Release(handle))
	_, err = os.Stat(handle)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, p.Release(paths[0]))
}

type failingClose struct {
	*os.File
}

func (f failingClose) Close() error {
	_ = f.File.Close()
	return errors.New("no space left on device")
}

func TestTempPreviewer_CloseError(t *testing.T) {
	p, err := NewTempPreviewer()
	require.NoError(t, err)
	defer p.Close()

	p.create = func(name string) (io.WriteCloser, error) {
		f, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		return failingClose{File: f}, nil
	}

	paths := writeFiles(t, "photo.png")
	handle, err := p.Acquire(paths[0])
	assert.ErrorContains(t, err, "no space left on device")
	assert.Empty(t, handle)

	entries, err := os.ReadDir(p.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
