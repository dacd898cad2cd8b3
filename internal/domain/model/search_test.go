package model

import (
	"errors"
	"fmt"
	"testing"
)

func makeVideos(n int) []VideoSummary {
	videos := make([]VideoSummary, n)
	for i := range videos {
		videos[i] = VideoSummary{
			ID:    fmt.Sprintf("vid%02d", i),
			Title: fmt.Sprintf("Video %d", i),
			URL:   fmt.Sprintf("https://www.youtube.com/watch?v=vid%02d", i),
		}
	}
	return videos
}

func TestSearchResultSet_Pagination(t *testing.T) {
	set := NewSearchResultSet("search:42", "lofi", makeVideos(23))

	if got := set.TotalPages(); got != 5 {
		t.Fatalf("TotalPages() = %d, want 5", got)
	}

	tests := []struct {
		page    int
		wantLen int
		wantErr error
	}{
		{0, 5, nil},
		{3, 5, nil},
		{4, 3, nil},
		{5, 0, ErrPageOutOfRange},
		{-1, 0, ErrPageOutOfRange},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			page, err := set.Page(tt.page)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Page(%d) error = %v, want %v", tt.page, err, tt.wantErr)
			}
			if len(page) != tt.wantLen {
				t.Errorf("Page(%d) len = %d, want %d", tt.page, len(page), tt.wantLen)
			}
		})
	}

	last, _ := set.Page(4)
	if last[0].ID != "vid20" || last[2].ID != "vid22" {
		t.Errorf("last page = %v..%v, want vid20..vid22", last[0].ID, last[2].ID)
	}
}

func TestSearchResultSet_EmptyHasNoPages(t *testing.T) {
	set := NewSearchResultSet("s", "q", nil)
	if set.TotalPages() != 0 {
		t.Errorf("TotalPages() = %d, want 0", set.TotalPages())
	}
	if _, err := set.Page(0); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("Page(0) error = %v, want ErrPageOutOfRange", err)
	}
}

func TestSearchResultSet_Immutable(t *testing.T) {
	videos := makeVideos(6)
	set := NewSearchResultSet("s", "q", videos)

	videos[0].Title = "mutated"
	if set.Videos[0].Title == "mutated" {
		t.Error("set shares backing array with caller slice")
	}

	page, _ := set.Page(0)
	page[1].Title = "mutated"
	if set.Videos[1].Title == "mutated" {
		t.Error("page shares backing array with set")
	}
}

func TestSearchResultSet_FindVideo(t *testing.T) {
	set := NewSearchResultSet("s", "q", makeVideos(3))

	v, ok := set.FindVideo("vid01")
	if !ok || v.Title != "Video 1" {
		t.Errorf("FindVideo(vid01) = %+v, %v", v, ok)
	}
	if _, ok := set.FindVideo("missing"); ok {
		t.Error("FindVideo(missing) should not be found")
	}
}
