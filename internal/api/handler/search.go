package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/usecase"
)

type SearchRequest struct {
	SessionKey string `json:"session_key"`
	Query      string `json:"query"`
}

type VideoResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	ViewCount       int64  `json:"view_count,omitempty"`
	Uploader        string `json:"uploader,omitempty"`
}

type SearchPageResponse struct {
	Query      string          `json:"query"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	TotalCount int             `json:"total_count"`
	Videos     []VideoResponse `json:"videos"`
}

// SearchHandler handles video search and result paging.
type SearchHandler struct {
	svc usecase.SearchService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc usecase.SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search handles POST /v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.SessionKey == "" {
		Error(w, http.StatusBadRequest, "invalid_session", "Session key is required")
		return
	}

	page, err := h.svc.SearchVideos(r.Context(), req.SessionKey, req.Query)
	if err != nil {
		serviceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toSearchPageResponse(page))
}

// GetPage handles GET /v1/search/{session}/pages/{page}. Pages are zero-based.
func (h *SearchHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_page", "Page must be an integer")
		return
	}

	page, err := h.svc.GetSearchPage(chi.URLParam(r, "session"), index)
	if err != nil {
		serviceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toSearchPageResponse(page))
}

// SelectVideo handles GET /v1/search/{session}/videos/{id}
func (h *SearchHandler) SelectVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.svc.SelectVideo(chi.URLParam(r, "session"), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(video))
}

func toSearchPageResponse(p *usecase.SearchPage) SearchPageResponse {
	videos := make([]VideoResponse, 0, len(p.Videos))
	for _, v := range p.Videos {
		videos = append(videos, toVideoResponse(v))
	}
	return SearchPageResponse{
		Query:      p.Query,
		Page:       p.Index,
		TotalPages: p.TotalPages,
		TotalCount: p.TotalCount,
		Videos:     videos,
	}
}

func toVideoResponse(v model.VideoSummary) VideoResponse {
	return VideoResponse{
		ID:              v.ID,
		Title:           v.Title,
		URL:             v.URL,
		DurationSeconds: v.DurationSeconds,
		ViewCount:       v.ViewCount,
		Uploader:        v.Uploader,
	}
}
