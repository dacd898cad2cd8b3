package recognizer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/transcoder"
)

type mockSearcher struct {
	searchFn func(ctx context.Context, query string, maxResults int) ([]model.VideoSummary, error)
	queries  []string
}

func (m *mockSearcher) Search(ctx context.Context, query string, maxResults int) ([]model.VideoSummary, error) {
	m.queries = append(m.queries, query)
	if m.searchFn != nil {
		return m.searchFn(ctx, query, maxResults)
	}
	return nil, nil
}

type mockProvider struct {
	identifyFn func(ctx context.Context, clipPath string) ([]byte, error)
	paths      []string
}

func (m *mockProvider) Identify(ctx context.Context, clipPath string) ([]byte, error) {
	m.paths = append(m.paths, clipPath)
	if m.identifyFn != nil {
		return m.identifyFn(ctx, clipPath)
	}
	return nil, nil
}

type mockTranscoder struct {
	extractFn func(ctx context.Context, inputPath, outputDir string) (*transcoder.ClipOutput, error)
}

func (m *mockTranscoder) ExtractAudioClip(ctx context.Context, inputPath, outputDir string) (*transcoder.ClipOutput, error) {
	return m.extractFn(ctx, inputPath, outputDir)
}

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0644); err != nil {
		t.Fatalf("failed to write clip: %v", err)
	}
	return path
}

func TestRecognizer_Recognize_FlatShapeOverHTTP(t *testing.T) {
	var gotAuth, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		f, _, err := r.FormFile("file")
		if err == nil {
			data, _ := io.ReadAll(f)
			gotFile = string(data)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"title":"Song","subtitle":"Artist"}`)
	}))
	defer srv.Close()

	searcher := &mockSearcher{
		searchFn: func(ctx context.Context, query string, maxResults int) ([]model.VideoSummary, error) {
			return []model.VideoSummary{{ID: "abc", URL: "https://www.youtube.com/watch?v=abcdefghijk"}}, nil
		},
	}
	r := NewRecognizer(NewHTTPProvider(srv.URL, "secret", srv.Client()), searcher, nil, Config{})

	match := r.Recognize(context.Background(), writeClip(t))
	if match == nil {
		t.Fatal("expected a match")
	}

	if match.Title != "Song" || match.Artist != "Artist" {
		t.Errorf("got %+v", match)
	}
	if match.SearchQuery != "Artist Song" {
		t.Errorf("SearchQuery = %q", match.SearchQuery)
	}
	if match.YouTubeURL != "https://www.youtube.com/watch?v=abcdefghijk" {
		t.Errorf("YouTubeURL = %q", match.YouTubeURL)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotFile != "OggS" {
		t.Errorf("uploaded file = %q", gotFile)
	}
	if len(searcher.queries) != 1 {
		t.Errorf("expected a single search, got %d", len(searcher.queries))
	}
}

func TestRecognizer_Recognize_SearchFailureKeepsMatch(t *testing.T) {
	provider := &mockProvider{
		identifyFn: func(ctx context.Context, clipPath string) ([]byte, error) {
			return []byte(`{"track":{"title":"T","subtitle":"A"}}`), nil
		},
	}
	searcher := &mockSearcher{
		searchFn: func(ctx context.Context, query string, maxResults int) ([]model.VideoSummary, error) {
			return nil, errors.New("search down")
		},
	}
	r := NewRecognizer(provider, searcher, nil, Config{})

	match := r.Recognize(context.Background(), writeClip(t))
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.HasURL() {
		t.Errorf("expected no URL, got %s", match.YouTubeURL)
	}
	if match.SearchQuery != "A T" {
		t.Errorf("SearchQuery = %q", match.SearchQuery)
	}
}

func TestRecognizer_Recognize_NoMatch(t *testing.T) {
	tests := []struct {
		name       string
		clipExists bool
		identifyFn func(ctx context.Context, clipPath string) ([]byte, error)
	}{
		{
			name:       "provider error",
			clipExists: true,
			identifyFn: func(ctx context.Context, clipPath string) ([]byte, error) {
				return nil, errors.New("provider down")
			},
		},
		{
			name:       "empty response",
			clipExists: true,
		},
		{
			name:       "malformed response",
			clipExists: true,
			identifyFn: func(ctx context.Context, clipPath string) ([]byte, error) {
				return []byte(`<html>`), nil
			},
		},
		{
			name:       "missing clip",
			clipExists: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{identifyFn: tt.identifyFn}
			searcher := &mockSearcher{}
			r := NewRecognizer(provider, searcher, nil, Config{})

			path := filepath.Join(t.TempDir(), "missing.ogg")
			if tt.clipExists {
				path = writeClip(t)
			}

			if match := r.Recognize(context.Background(), path); match != nil {
				t.Errorf("expected nil, got %+v", match)
			}
			if len(searcher.queries) != 0 {
				t.Error("search must not run without a match")
			}
		})
	}
}

func TestRecognizer_Recognize_UsesNormalizedClip(t *testing.T) {
	tmp := t.TempDir()
	var clipDir string
	tc := &mockTranscoder{
		extractFn: func(ctx context.Context, inputPath, outputDir string) (*transcoder.ClipOutput, error) {
			clipDir = outputDir
			out := filepath.Join(outputDir, "clip.wav")
			if err := os.WriteFile(out, []byte("RIFF"), 0644); err != nil {
				return nil, err
			}
			return &transcoder.ClipOutput{Path: out, Size: 4}, nil
		},
	}
	provider := &mockProvider{
		identifyFn: func(ctx context.Context, clipPath string) ([]byte, error) {
			return []byte(`{"matches":[{"track":{"title":"T","subtitle":"A"}}]}`), nil
		},
	}
	r := NewRecognizer(provider, &mockSearcher{}, tc, Config{TempDir: tmp})

	if match := r.Recognize(context.Background(), writeClip(t)); match == nil {
		t.Fatal("expected a match")
	}
	if len(provider.paths) != 1 || filepath.Base(provider.paths[0]) != "clip.wav" {
		t.Errorf("provider received %v, want the normalized clip", provider.paths)
	}
	if _, err := os.Stat(clipDir); !os.IsNotExist(err) {
		t.Error("expected clip directory to be removed")
	}
}

func TestRecognizer_Recognize_TranscodeFailureSendsOriginal(t *testing.T) {
	tc := &mockTranscoder{
		extractFn: func(ctx context.Context, inputPath, outputDir string) (*transcoder.ClipOutput, error) {
			return nil, errors.New("ffmpeg missing")
		},
	}
	provider := &mockProvider{
		identifyFn: func(ctx context.Context, clipPath string) ([]byte, error) {
			return []byte(`{"title":"T","subtitle":"A"}`), nil
		},
	}
	r := NewRecognizer(provider, &mockSearcher{}, tc, Config{TempDir: t.TempDir()})

	clip := writeClip(t)
	if match := r.Recognize(context.Background(), clip); match == nil {
		t.Fatal("expected a match")
	}
	if len(provider.paths) != 1 || provider.paths[0] != clip {
		t.Errorf("provider received %v, want original clip", provider.paths)
	}
}

func TestHTTPProvider_Identify_Status(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
		wantNil bool
	}{
		{"not found means no match", http.StatusNotFound, false, true},
		{"no content means no match", http.StatusNoContent, false, true},
		{"server error", http.StatusInternalServerError, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewHTTPProvider(srv.URL, "", srv.Client())
			body, err := p.Identify(context.Background(), writeClip(t))
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantNil && body != nil {
				t.Errorf("expected nil body, got %q", body)
			}
		})
	}
}
