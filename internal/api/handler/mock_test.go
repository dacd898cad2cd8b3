package handler

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
	"github.com/hszk-dev/mediacache/internal/usecase"
)

// mockMediaService detects with the real rules unless detectFn is set.
type mockMediaService struct {
	detectFn         func(rawURL string) usecase.Detection
	resolveMediaFn   func(ctx context.Context, rawURL string) (*model.AssetDescriptor, error)
	enqueueResolveFn func(ctx context.Context, rawURL, requestedBy string) (uuid.UUID, error)
}

func (m *mockMediaService) Detect(rawURL string) usecase.Detection {
	if m.detectFn != nil {
		return m.detectFn(rawURL)
	}
	return usecase.NewMediaService(nil, nil).Detect(rawURL)
}

func (m *mockMediaService) ResolveMedia(ctx context.Context, rawURL string) (*model.AssetDescriptor, error) {
	if m.resolveMediaFn != nil {
		return m.resolveMediaFn(ctx, rawURL)
	}
	return nil, nil
}

func (m *mockMediaService) EnqueueResolve(ctx context.Context, rawURL, requestedBy string) (uuid.UUID, error) {
	if m.enqueueResolveFn != nil {
		return m.enqueueResolveFn(ctx, rawURL, requestedBy)
	}
	return uuid.New(), nil
}

type mockCacheService struct {
	lookupFn     func(ctx context.Context, key string) (*model.CacheEntry, bool)
	storeFn      func(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error)
	invalidateFn func(ctx context.Context, key string) error
}

func (m *mockCacheService) Lookup(ctx context.Context, key string) (*model.CacheEntry, bool) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, key)
	}
	return nil, false
}

func (m *mockCacheService) Store(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error) {
	if m.storeFn != nil {
		return m.storeFn(ctx, entry)
	}
	return entry, nil
}

func (m *mockCacheService) Invalidate(ctx context.Context, key string) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, key)
	}
	return nil
}

type mockPublishService struct {
	fetchFn       func(ctx context.Context, rawURL string) (*model.CacheEntry, error)
	cachedFn      func(ctx context.Context, key string) (*model.CacheEntry, bool)
	evictFn       func(ctx context.Context, key string) error
	processTaskFn func(ctx context.Context, task repository.ResolveTask) error
}

func (m *mockPublishService) Cached(ctx context.Context, key string) (*model.CacheEntry, bool) {
	if m.cachedFn != nil {
		return m.cachedFn(ctx, key)
	}
	return nil, false
}

func (m *mockPublishService) Evict(ctx context.Context, key string) error {
	if m.evictFn != nil {
		return m.evictFn(ctx, key)
	}
	return nil
}

func (m *mockPublishService) Fetch(ctx context.Context, rawURL string) (*model.CacheEntry, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, rawURL)
	}
	return nil, nil
}

func (m *mockPublishService) ProcessTask(ctx context.Context, task repository.ResolveTask) error {
	if m.processTaskFn != nil {
		return m.processTaskFn(ctx, task)
	}
	return nil
}

type mockObjectStorage struct {
	generatePresignedDownloadURLFn func(ctx context.Context, key string, expiry time.Duration) (string, error)
	downloadFn                     func(ctx context.Context, key string) (io.ReadCloser, error)
}

func (m *mockObjectStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.generatePresignedDownloadURLFn != nil {
		return m.generatePresignedDownloadURLFn(ctx, key, expiry)
	}
	return "http://minio:9000/media/" + key + "?X-Amz-Signature=abc", nil
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	return "etag", nil
}

func (m *mockObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, key)
	}
	return io.NopCloser(strings.NewReader("")), nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, key string) error {
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	return true, nil
}

type mockSearchService struct {
	searchVideosFn  func(ctx context.Context, sessionKey, query string) (*usecase.SearchPage, error)
	getSearchPageFn func(sessionKey string, index int) (*usecase.SearchPage, error)
	selectVideoFn   func(sessionKey, videoID string) (model.VideoSummary, error)
}

func (m *mockSearchService) SearchVideos(ctx context.Context, sessionKey, query string) (*usecase.SearchPage, error) {
	if m.searchVideosFn != nil {
		return m.searchVideosFn(ctx, sessionKey, query)
	}
	return &usecase.SearchPage{Query: query}, nil
}

func (m *mockSearchService) GetSearchPage(sessionKey string, index int) (*usecase.SearchPage, error) {
	if m.getSearchPageFn != nil {
		return m.getSearchPageFn(sessionKey, index)
	}
	return nil, usecase.ErrSearchNotFound
}

func (m *mockSearchService) SelectVideo(sessionKey, videoID string) (model.VideoSummary, error) {
	if m.selectVideoFn != nil {
		return m.selectVideoFn(sessionKey, videoID)
	}
	return model.VideoSummary{}, usecase.ErrSearchNotFound
}

type mockMusicRecognizer struct {
	recognizeFn func(ctx context.Context, clipPath string) *model.MusicMatch
}

func (m *mockMusicRecognizer) Recognize(ctx context.Context, clipPath string) *model.MusicMatch {
	if m.recognizeFn != nil {
		return m.recognizeFn(ctx, clipPath)
	}
	return nil
}
