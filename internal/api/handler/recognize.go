package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hszk-dev/mediacache/internal/usecase"
)

const (
	clipFormField       = "clip"
	defaultMaxClipBytes = 50 << 20
)

type MusicMatchResponse struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	YouTubeURL  string `json:"youtube_url,omitempty"`
	SearchQuery string `json:"search_query"`
}

// RecognizeHandler identifies music in uploaded clips.
type RecognizeHandler struct {
	recognizer usecase.MusicRecognizer
	tempDir    string
	maxBytes   int64
}

// NewRecognizeHandler creates a new RecognizeHandler. Uploads are spooled to tempDir
// and rejected above maxBytes; a non-positive maxBytes uses a 50 MiB limit.
func NewRecognizeHandler(recognizer usecase.MusicRecognizer, tempDir string, maxBytes int64) *RecognizeHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxClipBytes
	}
	return &RecognizeHandler{
		recognizer: recognizer,
		tempDir:    tempDir,
		maxBytes:   maxBytes,
	}
}

// Recognize handles POST /v1/recognize (multipart, field "clip").
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile(clipFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "clip_too_large", "Clip exceeds the upload limit")
			return
		}
		Error(w, http.StatusBadRequest, "invalid_clip", "Multipart field \"clip\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	clipPath, err := h.spool(file, filepath.Ext(header.Filename))
	if err != nil {
		slog.Error("failed to store uploaded clip", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error", "Failed to store clip")
		return
	}
	defer func() { _ = os.Remove(clipPath) }()

	match := h.recognizer.Recognize(r.Context(), clipPath)
	if match == nil {
		Error(w, http.StatusNotFound, "no_match", "No song was recognised in this clip")
		return
	}

	JSON(w, http.StatusOK, MusicMatchResponse{
		Title:       match.Title,
		Artist:      match.Artist,
		Album:       match.Album,
		ReleaseDate: match.ReleaseDate,
		YouTubeURL:  match.YouTubeURL,
		SearchQuery: match.SearchQuery,
	})
}

func (h *RecognizeHandler) spool(src io.Reader, ext string) (string, error) {
	dst, err := os.CreateTemp(h.tempDir, "clip-*"+ext)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
