package usecase

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
)

// mockMediaLinkRepository is an in-memory MediaLinkRepository with per-method overrides and call counters.
type mockMediaLinkRepository struct {
	mu      sync.Mutex
	entries map[string]*model.CacheEntry

	getByURLFn        func(ctx context.Context, url string) (*model.CacheEntry, error)
	createFn          func(ctx context.Context, entry *model.CacheEntry) error
	updateFn          func(ctx context.Context, entry *model.CacheEntry) error
	incrementAccessFn func(ctx context.Context, url string) error
	deleteFn          func(ctx context.Context, url string) error

	getCalls       atomic.Int32
	createCalls    atomic.Int32
	updateCalls    atomic.Int32
	incrementCalls atomic.Int32
}

func newMockMediaLinkRepository() *mockMediaLinkRepository {
	return &mockMediaLinkRepository{
		entries: make(map[string]*model.CacheEntry),
	}
}

func (m *mockMediaLinkRepository) GetByURL(ctx context.Context, url string) (*model.CacheEntry, error) {
	m.getCalls.Add(1)
	if m.getByURLFn != nil {
		return m.getByURLFn(ctx, url)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[url]
	if !ok {
		return nil, repository.ErrMediaLinkNotFound
	}
	return e.Clone(), nil
}

func (m *mockMediaLinkRepository) Create(ctx context.Context, entry *model.CacheEntry) error {
	m.createCalls.Add(1)
	if m.createFn != nil {
		return m.createFn(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.Key]; ok {
		return repository.ErrDuplicateMediaLink
	}
	m.entries[entry.Key] = entry.Clone()
	return nil
}

func (m *mockMediaLinkRepository) Update(ctx context.Context, entry *model.CacheEntry) error {
	m.updateCalls.Add(1)
	if m.updateFn != nil {
		return m.updateFn(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.Key]; !ok {
		return repository.ErrMediaLinkNotFound
	}
	m.entries[entry.Key] = entry.Clone()
	return nil
}

func (m *mockMediaLinkRepository) IncrementAccess(ctx context.Context, url string) error {
	m.incrementCalls.Add(1)
	if m.incrementAccessFn != nil {
		return m.incrementAccessFn(ctx, url)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[url]
	if !ok {
		return repository.ErrMediaLinkNotFound
	}
	e.AccessCount++
	return nil
}

func (m *mockMediaLinkRepository) Delete(ctx context.Context, url string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, url)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, url)
	return nil
}

func (m *mockMediaLinkRepository) ListByPlatformAndType(ctx context.Context, platform model.Platform, assetType model.AssetType, limit int) ([]*model.CacheEntry, error) {
	return nil, nil
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
type mockObjectStorage struct {
	mu       sync.Mutex
	uploaded map[string]string // key -> content type
	deleted  []string

	generatePresignedDownloadURLFn func(ctx context.Context, key string, expiry time.Duration) (string, error)
	uploadFn                       func(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	downloadFn                     func(ctx context.Context, key string) (io.ReadCloser, error)
	deleteFn                       func(ctx context.Context, key string) error
	existsFn                       func(ctx context.Context, key string) (bool, error)
}

func (m *mockObjectStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.generatePresignedDownloadURLFn != nil {
		return m.generatePresignedDownloadURLFn(ctx, key, expiry)
	}
	return "http://example.com/download", nil
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	m.mu.Lock()
	if m.uploaded == nil {
		m.uploaded = make(map[string]string)
	}
	m.uploaded[key] = contentType
	m.mu.Unlock()

	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, reader, size, contentType)
	}
	_, _ = io.Copy(io.Discard, reader)
	return "etag-" + filepath.Base(key), nil
}

func (m *mockObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, key)
	}
	return nil, nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, key)
	m.mu.Unlock()

	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return true, nil
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishResolveTaskFn  func(ctx context.Context, task repository.ResolveTask) error
	consumeResolveTasksFn func(ctx context.Context, handler func(task repository.ResolveTask) error) error
}

func (m *mockMessageQueue) PublishResolveTask(ctx context.Context, task repository.ResolveTask) error {
	if m.publishResolveTaskFn != nil {
		return m.publishResolveTaskFn(ctx, task)
	}
	return nil
}

func (m *mockMessageQueue) ConsumeResolveTasks(ctx context.Context, handler func(task repository.ResolveTask) error) error {
	if m.consumeResolveTasksFn != nil {
		return m.consumeResolveTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockResolver provides a configurable mock for MediaResolver.
type mockResolver struct {
	resolveFn func(ctx context.Context, rawURL string, platform model.Platform) (*model.AssetDescriptor, error)
	calls     atomic.Int32
}

func (m *mockResolver) Resolve(ctx context.Context, rawURL string, platform model.Platform) (*model.AssetDescriptor, error) {
	m.calls.Add(1)
	if m.resolveFn != nil {
		return m.resolveFn(ctx, rawURL, platform)
	}
	return nil, model.NewClassifiedError(model.ErrorKindUnknown, "not configured")
}

// mockVideoSearcher provides a configurable mock for VideoSearcher.
type mockVideoSearcher struct {
	searchFn func(ctx context.Context, query string, maxResults int) ([]model.VideoSummary, error)
}

func (m *mockVideoSearcher) Search(ctx context.Context, query string, maxResults int) ([]model.VideoSummary, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, maxResults)
	}
	return nil, nil
}

// newDescriptor writes files into a fresh work directory and returns a descriptor owning them.
func newDescriptor(dir string, platform model.Platform, files map[string]string) (*model.AssetDescriptor, error) {
	workDir, err := os.MkdirTemp(dir, "work-")
	if err != nil {
		return nil, err
	}
	paths := make(map[string]string, len(files))
	for name, content := range files {
		p := filepath.Join(workDir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			return nil, err
		}
		paths[name] = p
	}

	d := model.AssetDescriptor{
		Title:    "Clip",
		Platform: platform,
		Type:     model.AssetTypeVideo,
	}
	for name, p := range paths {
		switch filepath.Ext(name) {
		case ".mp4":
			d.LocalFilePath = p
		case ".jpg":
			d.ThumbnailPath = p
		case ".m4a":
			d.AudioPath = p
		}
	}
	return model.NewAssetDescriptor(workDir, d), nil
}
