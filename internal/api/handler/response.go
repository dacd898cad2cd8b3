package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
	"github.com/hszk-dev/mediacache/internal/usecase"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

type kindResponse struct {
	status  int
	message string
}

// kindResponses gives every resolution failure kind its own status and user-facing hint.
var kindResponses = map[model.ErrorKind]kindResponse{
	model.ErrorKindIPBlocked: {
		status:  http.StatusServiceUnavailable,
		message: "The platform blocked this server's IP address. Wait a while or use a different network",
	},
	model.ErrorKindAuthRequired: {
		status:  http.StatusBadGateway,
		message: "The platform requires a logged-in session. Refresh the cookie credentials",
	},
	model.ErrorKindStoryUnavailable: {
		status:  http.StatusGone,
		message: "The story has expired or was removed",
	},
	model.ErrorKindUnsupported: {
		status:  http.StatusUnprocessableEntity,
		message: "The platform does not support this link",
	},
	model.ErrorKindTimeout: {
		status:  http.StatusGatewayTimeout,
		message: "Downloading the media took too long",
	},
	model.ErrorKindUnknown: {
		status:  http.StatusBadGateway,
		message: "The media could not be downloaded",
	},
}

// serviceError writes the response for an error returned by a usecase.
func serviceError(w http.ResponseWriter, err error) {
	if kind, ok := model.KindOf(err); ok {
		resp, known := kindResponses[kind]
		if !known {
			resp = kindResponses[model.ErrorKindUnknown]
		}
		Error(w, resp.status, kind.String(), resp.message)
		return
	}

	switch {
	case model.IsCacheIOError(err):
		Error(w, http.StatusServiceUnavailable, "cache_unavailable", "The media cache is temporarily unavailable")
	case errors.Is(err, usecase.ErrInvalidURL):
		Error(w, http.StatusBadRequest, "invalid_url", "URL must be an http or https link")
	case errors.Is(err, usecase.ErrUnsupportedURL):
		Error(w, http.StatusUnprocessableEntity, "unsupported_url", "No supported platform matches this URL")
	case errors.Is(err, repository.ErrMediaLinkNotFound):
		Error(w, http.StatusNotFound, "not_found", "No cached media for this URL")
	case errors.Is(err, model.ErrEmptyQuery):
		Error(w, http.StatusBadRequest, "invalid_query", "Query is required")
	case errors.Is(err, usecase.ErrQueryTooShort):
		Error(w, http.StatusBadRequest, "invalid_query", "Query must be at least 3 characters")
	case errors.Is(err, usecase.ErrSearchNotFound):
		Error(w, http.StatusNotFound, "search_not_found", "Search results not found or expired")
	case errors.Is(err, usecase.ErrVideoNotInResults):
		Error(w, http.StatusNotFound, "video_not_found", "Video is not part of the current results")
	case errors.Is(err, model.ErrPageOutOfRange):
		Error(w, http.StatusBadRequest, "page_out_of_range", "Page index is out of range")
	default:
		slog.Error("unhandled service error", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
