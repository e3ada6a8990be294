package metadata

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
)

var (
	// Raw frame names holding the track number, per tag flavour
	trackFrames = []string{"TRCK", "TRK", "tracknumber"}

	// Recording time is preferred over release year
	yearFrames = []string{"TDRC", "TYER", "TYE", "date", "year"}
)

// TagReader reads ID3, MP4 and Vorbis comments using dhowden/tag
type TagReader struct{}

// NewTagReader creates a new tag-based reader
func NewTagReader() *TagReader {
	return &TagReader{}
}

// Read opens path and extracts its tags. Unreadable files, files without
// tags and formats the tag library doesn't know all yield the zero Metadata.
func (r *TagReader) Read(path string) Metadata {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Metadata{}
	}
	return fromTags(m)
}

func fromTags(m tag.Metadata) Metadata {
	md := Metadata{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
	}

	raw := m.Raw()

	if s, ok := firstRaw(raw, trackFrames); ok {
		md.TrackNumber, md.HasTrack = ParseTrackNumber(s)
	} else if n, _ := m.Track(); n > 0 {
		md.TrackNumber, md.HasTrack = n, true
	}

	if s, ok := firstRaw(raw, yearFrames); ok {
		md.Year = s
	} else if y := m.Year(); y > 0 {
		md.Year = fmt.Sprintf("%d", y)
	}

	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		md.Artwork = pic.Data
		md.ArtworkMIME = pic.MIMEType
	}

	return md
}

// firstRaw returns the first non-empty string value among keys
func firstRaw(raw map[string]interface{}, keys []string) (string, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case []string:
			if len(val) > 0 {
				s = val[0]
			}
		case fmt.Stringer:
			s = val.String()
		}
		s = strings.TrimSpace(strings.Trim(s, "\x00"))
		if s != "" {
			return s, true
		}
	}
	return "", false
}
