package recognizer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Shape identifies which historical response layout a provider used.
type Shape int

const (
	ShapeNone Shape = iota
	// ShapeNestedTrack is {"track": {...}}.
	ShapeNestedTrack
	// ShapeFlatTrack is the track object itself: {"title": ..., "subtitle": ...}.
	ShapeFlatTrack
	// ShapeMatchList is {"matches": [{"track": {...}}, ...]}; the first match is used.
	ShapeMatchList
)

func (s Shape) String() string {
	switch s {
	case ShapeNestedTrack:
		return "nested_track"
	case ShapeFlatTrack:
		return "flat_track"
	case ShapeMatchList:
		return "match_list"
	default:
		return "none"
	}
}

type heading struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

type sectionMetadata struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type section struct {
	Metadata []sectionMetadata `json:"metadata"`
}

type trackPayload struct {
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	Heading     *heading  `json:"heading"`
	Sections    []section `json:"sections"`
	ReleaseDate string    `json:"release_date"`
	Release     string    `json:"release"`
}

type matchPayload struct {
	Track *trackPayload `json:"track"`
}

// envelope accepts every known layout at once; Shape is decided afterwards.
type envelope struct {
	Result  json.RawMessage `json:"result"`
	Track   *trackPayload   `json:"track"`
	Matches []matchPayload  `json:"matches"`
	trackPayload
}

// Track is the normalized provider answer.
type Track struct {
	Shape       Shape
	Title       string
	Artist      string
	Album       string
	ReleaseDate string
}

// Normalize decodes a provider response of any supported shape.
// It returns ShapeNone when the response carries no track.
func Normalize(body []byte) (Track, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return Track{}, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Track{}, fmt.Errorf("failed to decode provider response: %w", err)
	}

	// Some providers wrap the payload in {"result": ...}.
	if len(env.Result) > 0 && !bytes.Equal(env.Result, []byte("null")) {
		return Normalize(env.Result)
	}

	switch {
	case env.Track != nil:
		return env.Track.normalize(ShapeNestedTrack), nil
	case env.Title != "" || env.Subtitle != "":
		return env.trackPayload.normalize(ShapeFlatTrack), nil
	case len(env.Matches) > 0 && env.Matches[0].Track != nil:
		return env.Matches[0].Track.normalize(ShapeMatchList), nil
	default:
		return Track{}, nil
	}
}

func (p *trackPayload) normalize(shape Shape) Track {
	t := Track{
		Shape:       shape,
		Title:       p.Title,
		Artist:      p.Subtitle,
		ReleaseDate: p.ReleaseDate,
	}
	if p.Heading != nil {
		if t.Title == "" {
			t.Title = p.Heading.Title
		}
		if t.Artist == "" {
			t.Artist = p.Heading.Subtitle
		}
	}
	if t.ReleaseDate == "" {
		t.ReleaseDate = p.Release
	}

	for _, s := range p.Sections {
		for _, m := range s.Metadata {
			if m.Title == "Album" && m.Text != "" {
				t.Album = m.Text
				return t
			}
		}
	}
	return t
}

// IsEmpty reports whether no track was recognised.
func (t Track) IsEmpty() bool {
	return t.Shape == ShapeNone || (t.Title == "" && t.Artist == "")
}
