package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
	"github.com/hszk-dev/mediacache/internal/usecase"
)

func newMediaHandlerForTest(cacheSvc *mockCacheService, publish *mockPublishService, media *mockMediaService) *MediaHandler {
	if media == nil {
		media = &mockMediaService{}
	}
	if cacheSvc == nil {
		cacheSvc = &mockCacheService{}
	}
	if publish == nil {
		publish = &mockPublishService{}
	}
	return NewMediaHandler(media, cacheSvc, publish, &mockObjectStorage{}, 15*time.Minute)
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	if s, ok := v.(string); ok {
		return bytes.NewReader([]byte(s))
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	return bytes.NewReader(b)
}

func cachedEntry(key string) *model.CacheEntry {
	return &model.CacheEntry{
		Key:           key,
		Platform:      model.PlatformYouTube,
		RemoteAssetID: "media/youtube/abc/Clip.mp4",
		AssetType:     model.AssetTypeVideo,
		Title:         "Clip",
		AccessCount:   3,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestMediaHandler_Detect(t *testing.T) {
	tests := []struct {
		name          string
		body          any
		wantStatus    int
		wantPlatform  string
		wantCanonical string
	}{
		{
			name:          "supported link",
			body:          URLRequest{URL: "https://youtu.be/dQw4w9WgXcQ"},
			wantStatus:    http.StatusOK,
			wantPlatform:  "youtube",
			wantCanonical: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:          "unsupported link",
			body:          URLRequest{URL: "https://example.com/a"},
			wantStatus:    http.StatusOK,
			wantCanonical: "https://example.com/a",
		},
		{
			name:       "invalid JSON body",
			body:       "{",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMediaHandlerForTest(nil, nil, nil)

			req := httptest.NewRequest(http.MethodPost, "/v1/detect", jsonBody(t, tt.body))
			rec := httptest.NewRecorder()
			h.Detect(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp DetectResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Platform != tt.wantPlatform || resp.CanonicalURL != tt.wantCanonical {
				t.Errorf("unexpected response: %+v", resp)
			}
		})
	}
}

func TestMediaHandler_GetCache(t *testing.T) {
	t.Run("hit with download link", func(t *testing.T) {
		publish := &mockPublishService{
			cachedFn: func(ctx context.Context, key string) (*model.CacheEntry, bool) {
				if key != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
					t.Errorf("lookup key = %s, want canonical", key)
				}
				return cachedEntry(key), true
			},
		}
		h := newMediaHandlerForTest(nil, publish, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/cache?url="+url.QueryEscape("https://youtu.be/dQw4w9WgXcQ"), nil)
		rec := httptest.NewRecorder()
		h.GetCache(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp CacheEntryResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.RemoteAssetID != "media/youtube/abc/Clip.mp4" || resp.DownloadURL == "" || resp.AccessCount != 3 {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("foreign handle has no download link", func(t *testing.T) {
		publish := &mockPublishService{
			cachedFn: func(ctx context.Context, key string) (*model.CacheEntry, bool) {
				entry := cachedEntry(key)
				entry.RemoteAssetID = "BAACAgIAAxkBAAIC"
				return entry, true
			},
		}
		h := newMediaHandlerForTest(nil, publish, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/cache?url="+url.QueryEscape("https://youtu.be/dQw4w9WgXcQ"), nil)
		rec := httptest.NewRecorder()
		h.GetCache(rec, req)

		var resp CacheEntryResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if rec.Code != http.StatusOK || resp.DownloadURL != "" {
			t.Errorf("status %d, download_url %q", rec.Code, resp.DownloadURL)
		}
	})

	t.Run("miss", func(t *testing.T) {
		h := newMediaHandlerForTest(nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/cache?url="+url.QueryEscape("https://youtu.be/dQw4w9WgXcQ"), nil)
		rec := httptest.NewRecorder()
		h.GetCache(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		h := newMediaHandlerForTest(nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/cache", nil)
		rec := httptest.NewRecorder()
		h.GetCache(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestMediaHandler_PutCache(t *testing.T) {
	valid := PutCacheRequest{
		URL:           "https://www.instagram.com/reel/Cabc/?igsh=1",
		RemoteAssetID: "BAACAgIAAxkBAAIC",
		AssetType:     "video",
		Title:         "Reel",
	}

	tests := []struct {
		name       string
		body       any
		storeFn    func(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error)
		wantStatus int
	}{
		{
			name: "stores under canonical key",
			body: valid,
			storeFn: func(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error) {
				if entry.Key != "https://www.instagram.com/reel/Cabc/" || entry.Platform != model.PlatformInstagram {
					t.Errorf("unexpected entry: %+v", entry)
				}
				return entry, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "cache io error",
			body: valid,
			storeFn: func(ctx context.Context, entry *model.CacheEntry) (*model.CacheEntry, error) {
				return nil, &model.CacheIOError{Op: "create", Err: errors.New("connection refused")}
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "invalid asset type",
			body:       PutCacheRequest{URL: valid.URL, RemoteAssetID: "x", AssetType: "gif"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing remote asset id",
			body:       PutCacheRequest{URL: valid.URL, AssetType: "video"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported url",
			body:       PutCacheRequest{URL: "https://example.com/v", RemoteAssetID: "x", AssetType: "video"},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMediaHandlerForTest(&mockCacheService{storeFn: tt.storeFn}, nil, nil)

			req := httptest.NewRequest(http.MethodPut, "/v1/cache", jsonBody(t, tt.body))
			rec := httptest.NewRecorder()
			h.PutCache(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMediaHandler_DeleteCache(t *testing.T) {
	t.Run("evicts canonical key", func(t *testing.T) {
		var evicted string
		publish := &mockPublishService{
			evictFn: func(ctx context.Context, key string) error {
				evicted = key
				return nil
			},
		}
		h := newMediaHandlerForTest(nil, publish, nil)

		req := httptest.NewRequest(http.MethodDelete, "/v1/cache?url="+url.QueryEscape("https://x.com/a/status/1?s=20"), nil)
		rec := httptest.NewRecorder()
		h.DeleteCache(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		if evicted != "https://twitter.com/a/status/1" {
			t.Errorf("evicted %s", evicted)
		}
	})

	t.Run("cache io error", func(t *testing.T) {
		publish := &mockPublishService{
			evictFn: func(ctx context.Context, key string) error {
				return &model.CacheIOError{Op: "delete", Err: errors.New("connection refused")}
			},
		}
		h := newMediaHandlerForTest(nil, publish, nil)

		req := httptest.NewRequest(http.MethodDelete, "/v1/cache?url="+url.QueryEscape("https://x.com/a/status/1"), nil)
		rec := httptest.NewRecorder()
		h.DeleteCache(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rec.Code)
		}
	})
}

func TestMediaHandler_GetContent(t *testing.T) {
	const link = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	tests := []struct {
		name        string
		remoteID    string
		download    func(ctx context.Context, key string) (io.ReadCloser, error)
		wantStatus  int
		wantBody    string
		wantType    string
		wantEvicted bool
	}{
		{
			name:     "streams stored object",
			remoteID: "media/youtube/abc/Clip.mp4",
			download: func(ctx context.Context, key string) (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader("video bytes")), nil
			},
			wantStatus: http.StatusOK,
			wantBody:   "video bytes",
			wantType:   "video/mp4",
		},
		{
			name:       "foreign handle",
			remoteID:   "BAACAgIAAxkBAAIC",
			wantStatus: http.StatusNotFound,
		},
		{
			name:     "object vanished",
			remoteID: "media/youtube/abc/Clip.mp4",
			download: func(ctx context.Context, key string) (io.ReadCloser, error) {
				return nil, repository.ErrObjectNotFound
			},
			wantStatus:  http.StatusNotFound,
			wantEvicted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var invalidated string
			cacheSvc := &mockCacheService{
				invalidateFn: func(ctx context.Context, key string) error {
					invalidated = key
					return nil
				},
			}
			publish := &mockPublishService{
				cachedFn: func(ctx context.Context, key string) (*model.CacheEntry, bool) {
					entry := cachedEntry(key)
					entry.RemoteAssetID = tt.remoteID
					return entry, true
				},
			}
			store := &mockObjectStorage{downloadFn: tt.download}
			h := NewMediaHandler(&mockMediaService{}, cacheSvc, publish, store, time.Minute)

			req := httptest.NewRequest(http.MethodGet, "/v1/cache/content?url="+url.QueryEscape(link), nil)
			rec := httptest.NewRecorder()
			h.GetContent(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantType != "" && rec.Header().Get("Content-Type") != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", rec.Header().Get("Content-Type"), tt.wantType)
			}
			if evicted := invalidated == link; evicted != tt.wantEvicted {
				t.Errorf("invalidated %q, want evicted=%v", invalidated, tt.wantEvicted)
			}
		})
	}
}

func TestMediaHandler_Resolve(t *testing.T) {
	taskID := uuid.New()

	tests := []struct {
		name       string
		enqueueFn  func(ctx context.Context, rawURL, requestedBy string) (uuid.UUID, error)
		wantStatus int
	}{
		{
			name: "accepted",
			enqueueFn: func(ctx context.Context, rawURL, requestedBy string) (uuid.UUID, error) {
				return taskID, nil
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name: "unsupported",
			enqueueFn: func(ctx context.Context, rawURL, requestedBy string) (uuid.UUID, error) {
				return uuid.Nil, usecase.ErrUnsupportedURL
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "queue down",
			enqueueFn: func(ctx context.Context, rawURL, requestedBy string) (uuid.UUID, error) {
				return uuid.Nil, errors.New("publish resolve task: channel closed")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMediaHandlerForTest(nil, nil, &mockMediaService{enqueueResolveFn: tt.enqueueFn})

			req := httptest.NewRequest(http.MethodPost, "/v1/resolve", jsonBody(t, URLRequest{URL: "https://www.tiktok.com/@a/video/1"}))
			rec := httptest.NewRecorder()
			h.Resolve(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusAccepted {
				var resp ResolveResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.TaskID != taskID.String() {
					t.Errorf("TaskID = %s, want %s", resp.TaskID, taskID)
				}
			}
		})
	}
}

func TestMediaHandler_Fetch_ErrorKinds(t *testing.T) {
	tests := []struct {
		kind       model.ErrorKind
		wantStatus int
	}{
		{model.ErrorKindIPBlocked, http.StatusServiceUnavailable},
		{model.ErrorKindAuthRequired, http.StatusBadGateway},
		{model.ErrorKindStoryUnavailable, http.StatusGone},
		{model.ErrorKindUnsupported, http.StatusUnprocessableEntity},
		{model.ErrorKindTimeout, http.StatusGatewayTimeout},
		{model.ErrorKindUnknown, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			publish := &mockPublishService{
				fetchFn: func(ctx context.Context, rawURL string) (*model.CacheEntry, error) {
					return nil, model.NewClassifiedError(tt.kind, "ERROR: something")
				},
			}
			h := newMediaHandlerForTest(nil, publish, nil)

			req := httptest.NewRequest(http.MethodPost, "/v1/fetch", jsonBody(t, URLRequest{URL: "https://www.instagram.com/p/abc/"}))
			rec := httptest.NewRecorder()
			h.Fetch(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Error != tt.kind.String() || resp.Message == "" {
				t.Errorf("unexpected error body: %+v", resp)
			}
		})
	}
}

func TestMediaHandler_Fetch(t *testing.T) {
	publish := &mockPublishService{
		fetchFn: func(ctx context.Context, rawURL string) (*model.CacheEntry, error) {
			return cachedEntry("https://www.youtube.com/watch?v=dQw4w9WgXcQ"), nil
		},
	}
	h := newMediaHandlerForTest(nil, publish, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/fetch", jsonBody(t, URLRequest{URL: "https://youtu.be/dQw4w9WgXcQ"}))
	rec := httptest.NewRecorder()
	h.Fetch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp CacheEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.URL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" || resp.AssetType != "video" {
		t.Errorf("unexpected response: %+v", resp)
	}
}
