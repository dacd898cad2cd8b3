package model

// MusicMatch is a recognised track. YouTubeURL is empty when the follow-up
// search found nothing; SearchQuery is always set so callers can show it.
type MusicMatch struct {
	Title       string
	Artist      string
	Album       string
	ReleaseDate string
	YouTubeURL  string
	SearchQuery string
}

// HasURL reports whether a playable video was found for the match.
func (m *MusicMatch) HasURL() bool {
	return m.YouTubeURL != ""
}
