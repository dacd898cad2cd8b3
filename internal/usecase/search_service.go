package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/infrastructure/cache"
)

const (
	// MinQueryLength is the shortest accepted search query, in characters.
	MinQueryLength = 3
	// SearchResultLimit caps the number of videos stored per search.
	SearchResultLimit = 10

	searchKeyPrefix = "search:"
)

var (
	// ErrQueryTooShort is returned for queries under MinQueryLength characters.
	ErrQueryTooShort = errors.New("search query is too short")
	// ErrSearchNotFound is returned when the session has no live result set.
	ErrSearchNotFound = errors.New("search results not found or expired")
	// ErrVideoNotInResults is returned when a selected video is not part of the session's results.
	ErrVideoNotInResults = errors.New("video not found in search results")
)

// VideoSearcher runs text queries against the video platform.
// *extractor.Searcher satisfies this interface.
type VideoSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.VideoSummary, error)
}

// SearchPage is one page of a stored result set.
type SearchPage struct {
	Query      string
	Index      int
	TotalPages int
	TotalCount int
	Videos     []model.VideoSummary
}

// SearchService runs searches and pages through the results of each session.
type SearchService interface {
	// SearchVideos runs query, stores the result set for sessionKey and returns its first page.
	// A failed search yields an empty page, not an error.
	SearchVideos(ctx context.Context, sessionKey, query string) (*SearchPage, error)

	// GetSearchPage returns the zero-based page of the session's current result set.
	GetSearchPage(sessionKey string, index int) (*SearchPage, error)

	// SelectVideo returns a video of the session's current result set by ID.
	SelectVideo(sessionKey, videoID string) (model.VideoSummary, error)
}

type searchService struct {
	searcher VideoSearcher
	results  *cache.MemoryCache[*model.SearchResultSet]
}

// NewSearchService creates a new SearchService instance.
func NewSearchService(searcher VideoSearcher, results *cache.MemoryCache[*model.SearchResultSet]) SearchService {
	return &searchService{
		searcher: searcher,
		results:  results,
	}
}

// SearchVideos replaces the session's previous result set.
func (s *searchService) SearchVideos(ctx context.Context, sessionKey, query string) (*SearchPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.ErrEmptyQuery
	}
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, ErrQueryTooShort
	}

	videos, err := s.searcher.Search(ctx, query, SearchResultLimit)
	if err != nil {
		slog.Warn("video search failed", "query", query, "error", err)
		videos = nil
	}

	set := model.NewSearchResultSet(sessionKey, query, videos)
	if len(videos) == 0 {
		s.results.Delete(searchKey(sessionKey))
		return &SearchPage{Query: query}, nil
	}

	s.results.Set(searchKey(sessionKey), set)
	return pageOf(set, 0)
}

// GetSearchPage slices the stored result set.
func (s *searchService) GetSearchPage(sessionKey string, index int) (*SearchPage, error) {
	set, ok := s.results.Get(searchKey(sessionKey))
	if !ok {
		return nil, ErrSearchNotFound
	}
	return pageOf(set, index)
}

// SelectVideo looks a video up in the stored result set.
func (s *searchService) SelectVideo(sessionKey, videoID string) (model.VideoSummary, error) {
	set, ok := s.results.Get(searchKey(sessionKey))
	if !ok {
		return model.VideoSummary{}, ErrSearchNotFound
	}
	v, ok := set.FindVideo(videoID)
	if !ok {
		return model.VideoSummary{}, ErrVideoNotInResults
	}
	return v, nil
}

func pageOf(set *model.SearchResultSet, index int) (*SearchPage, error) {
	videos, err := set.Page(index)
	if err != nil {
		return nil, err
	}
	return &SearchPage{
		Query:      set.Query,
		Index:      index,
		TotalPages: set.TotalPages(),
		TotalCount: len(set.Videos),
		Videos:     videos,
	}, nil
}

func searchKey(sessionKey string) string {
	return searchKeyPrefix + sessionKey
}
