package model

import (
	"errors"
	"time"
)

// PageSize is the number of videos shown per search page.
const PageSize = 5

var (
	ErrPageOutOfRange = errors.New("page index out of range")
	ErrEmptyQuery     = errors.New("search query cannot be empty")
)

// VideoSummary is one entry of a search result.
type VideoSummary struct {
	ID              string
	Title           string
	URL             string
	DurationSeconds int
	ViewCount       int64
	Uploader        string
}

// SearchResultSet is the result of one search, scoped to a session.
// It is never mutated after creation; a new search replaces it.
type SearchResultSet struct {
	SessionKey string
	Query      string
	Videos     []VideoSummary
	CreatedAt  time.Time
}

// NewSearchResultSet copies videos so the set cannot be changed through the caller's slice.
func NewSearchResultSet(sessionKey, query string, videos []VideoSummary) *SearchResultSet {
	cp := make([]VideoSummary, len(videos))
	copy(cp, videos)
	return &SearchResultSet{
		SessionKey: sessionKey,
		Query:      query,
		Videos:     cp,
		CreatedAt:  time.Now(),
	}
}

// TotalPages returns ceil(len(Videos)/PageSize).
func (s *SearchResultSet) TotalPages() int {
	return (len(s.Videos) + PageSize - 1) / PageSize
}

// Page returns the videos on the zero-based page index.
func (s *SearchResultSet) Page(index int) ([]VideoSummary, error) {
	if index < 0 || index >= s.TotalPages() {
		return nil, ErrPageOutOfRange
	}
	start := index * PageSize
	end := min(start+PageSize, len(s.Videos))

	page := make([]VideoSummary, end-start)
	copy(page, s.Videos[start:end])
	return page, nil
}

// FindVideo looks up a video of the set by its platform ID.
func (s *SearchResultSet) FindVideo(id string) (VideoSummary, bool) {
	for _, v := range s.Videos {
		if v.ID == id {
			return v, true
		}
	}
	return VideoSummary{}, false
}
