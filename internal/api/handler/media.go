package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
	"github.com/hszk-dev/mediacache/internal/infrastructure/storage"
	"github.com/hszk-dev/mediacache/internal/usecase"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// Request/Response types

type URLRequest struct {
	URL         string `json:"url"`
	RequestedBy string `json:"requested_by,omitempty"`
}

type DetectResponse struct {
	Valid        bool   `json:"valid"`
	Supported    bool   `json:"supported"`
	Platform     string `json:"platform,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
}

type PutCacheRequest struct {
	URL             string `json:"url"`
	RemoteAssetID   string `json:"remote_asset_id"`
	RemoteUniqueID  string `json:"remote_unique_id,omitempty"`
	AssetType       string `json:"asset_type"`
	Title           string `json:"title"`
	ThumbnailID     string `json:"thumbnail_id,omitempty"`
	SizeBytes       *int64 `json:"size_bytes,omitempty"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
}

type CacheEntryResponse struct {
	URL             string `json:"url"`
	Platform        string `json:"platform"`
	RemoteAssetID   string `json:"remote_asset_id"`
	RemoteUniqueID  string `json:"remote_unique_id,omitempty"`
	AssetType       string `json:"asset_type"`
	Title           string `json:"title"`
	ThumbnailID     string `json:"thumbnail_id,omitempty"`
	SizeBytes       *int64 `json:"size_bytes,omitempty"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
	AccessCount     int    `json:"access_count"`
	DownloadURL     string `json:"download_url,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type ResolveResponse struct {
	TaskID       string `json:"task_id"`
	CanonicalURL string `json:"canonical_url"`
}

// MediaHandler handles link detection, cache access and resolution requests.
type MediaHandler struct {
	media   usecase.MediaService
	cache   usecase.CacheService
	publish usecase.PublishService
	storage repository.ObjectStorage
	linkTTL time.Duration
}

// NewMediaHandler creates a new MediaHandler. Download links for cached
// objects are presigned for linkTTL.
func NewMediaHandler(
	media usecase.MediaService,
	cacheSvc usecase.CacheService,
	publish usecase.PublishService,
	store repository.ObjectStorage,
	linkTTL time.Duration,
) *MediaHandler {
	return &MediaHandler{
		media:   media,
		cache:   cacheSvc,
		publish: publish,
		storage: store,
		linkTTL: linkTTL,
	}
}

// Detect handles POST /v1/detect
func (h *MediaHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	d := h.media.Detect(req.URL)
	resp := DetectResponse{
		Valid:        d.Valid,
		Supported:    d.Supported,
		CanonicalURL: d.CanonicalURL,
	}
	if d.Supported {
		resp.Platform = d.Platform.String()
	}

	JSON(w, http.StatusOK, resp)
}

// GetCache handles GET /v1/cache?url=
func (h *MediaHandler) GetCache(w http.ResponseWriter, r *http.Request) {
	key, ok := h.cacheKey(w, r.URL.Query().Get("url"))
	if !ok {
		return
	}

	entry, found := h.publish.Cached(r.Context(), key)
	if !found {
		Error(w, http.StatusNotFound, "not_found", "No cached media for this URL")
		return
	}

	resp := toCacheEntryResponse(entry)
	if h.storage != nil && storage.IsObjectKey(entry.RemoteAssetID) {
		link, err := h.storage.GeneratePresignedDownloadURL(r.Context(), entry.RemoteAssetID, h.linkTTL)
		if err != nil {
			slog.Warn("failed to presign download url", "key", entry.RemoteAssetID, "error", err)
		} else {
			resp.DownloadURL = link
		}
	}

	JSON(w, http.StatusOK, resp)
}

// PutCache handles PUT /v1/cache
func (h *MediaHandler) PutCache(w http.ResponseWriter, r *http.Request) {
	var req PutCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.RemoteAssetID == "" {
		Error(w, http.StatusBadRequest, "invalid_remote_asset_id", "Remote asset ID is required")
		return
	}

	assetType := model.AssetType(req.AssetType)
	if !assetType.IsValid() {
		Error(w, http.StatusBadRequest, "invalid_asset_type", "Asset type must be video, audio, photo or document")
		return
	}

	d := h.media.Detect(req.URL)
	if !d.Valid {
		serviceError(w, usecase.ErrInvalidURL)
		return
	}
	if !d.Supported {
		serviceError(w, usecase.ErrUnsupportedURL)
		return
	}

	stored, err := h.cache.Store(r.Context(), &model.CacheEntry{
		Key:             d.CanonicalURL,
		Platform:        d.Platform,
		RemoteAssetID:   req.RemoteAssetID,
		RemoteUniqueID:  req.RemoteUniqueID,
		AssetType:       assetType,
		Title:           req.Title,
		ThumbnailID:     req.ThumbnailID,
		SizeBytes:       req.SizeBytes,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toCacheEntryResponse(stored))
}

// DeleteCache handles DELETE /v1/cache?url=
func (h *MediaHandler) DeleteCache(w http.ResponseWriter, r *http.Request) {
	key, ok := h.cacheKey(w, r.URL.Query().Get("url"))
	if !ok {
		return
	}

	if err := h.publish.Evict(r.Context(), key); err != nil {
		serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetContent handles GET /v1/cache/content?url= by streaming the stored object.
func (h *MediaHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	key, ok := h.cacheKey(w, r.URL.Query().Get("url"))
	if !ok {
		return
	}

	entry, found := h.publish.Cached(r.Context(), key)
	if !found || !storage.IsObjectKey(entry.RemoteAssetID) {
		Error(w, http.StatusNotFound, "not_found", "No stored media for this URL")
		return
	}

	body, err := h.storage.Download(r.Context(), entry.RemoteAssetID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			// Removed between the existence check and the read.
			if err := h.cache.Invalidate(r.Context(), key); err != nil {
				slog.Warn("failed to invalidate stale handle", "key", key, "error", err)
			}
			Error(w, http.StatusNotFound, "not_found", "No stored media for this URL")
			return
		}
		serviceError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", storage.ContentType(entry.RemoteAssetID))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": path.Base(entry.RemoteAssetID),
	}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("failed to stream stored object", "key", key, "remote_asset_id", entry.RemoteAssetID, "error", err)
	}
}

// Resolve handles POST /v1/resolve. The download runs on a worker.
func (h *MediaHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	taskID, err := h.media.EnqueueResolve(r.Context(), req.URL, req.RequestedBy)
	if err != nil {
		serviceError(w, err)
		return
	}

	JSON(w, http.StatusAccepted, ResolveResponse{
		TaskID:       taskID.String(),
		CanonicalURL: h.media.Detect(req.URL).CanonicalURL,
	})
}

// Fetch handles POST /v1/fetch. It resolves in the request and returns the cached entry.
func (h *MediaHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	entry, err := h.publish.Fetch(r.Context(), req.URL)
	if err != nil {
		serviceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toCacheEntryResponse(entry))
}

// cacheKey maps a URL query parameter to its cache key, writing a 400 when it is unusable.
func (h *MediaHandler) cacheKey(w http.ResponseWriter, rawURL string) (string, bool) {
	if strings.TrimSpace(rawURL) == "" {
		Error(w, http.StatusBadRequest, "invalid_url", "url query parameter is required")
		return "", false
	}
	d := h.media.Detect(rawURL)
	if !d.Valid {
		serviceError(w, usecase.ErrInvalidURL)
		return "", false
	}
	return d.CanonicalURL, true
}

func toCacheEntryResponse(e *model.CacheEntry) CacheEntryResponse {
	return CacheEntryResponse{
		URL:             e.Key,
		Platform:        e.Platform.String(),
		RemoteAssetID:   e.RemoteAssetID,
		RemoteUniqueID:  e.RemoteUniqueID,
		AssetType:       e.AssetType.String(),
		Title:           e.Title,
		ThumbnailID:     e.ThumbnailID,
		SizeBytes:       e.SizeBytes,
		DurationSeconds: e.DurationSeconds,
		AccessCount:     e.AccessCount,
		CreatedAt:       e.CreatedAt.Format(timeFormat),
		UpdatedAt:       e.UpdatedAt.Format(timeFormat),
	}
}
