// Package metadata reads embedded tags from audio files.
package metadata

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Metadata contains the tag fields ampd cares about. The zero value means
// nothing could be read.
type Metadata struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Year   string `json:"year,omitempty"`

	// Artwork holds the raw bytes of the first embedded picture
	Artwork     []byte `json:"-"`
	ArtworkMIME string `json:"-"`

	TrackNumber int  `json:"trackNumber,omitempty"`
	HasTrack    bool `json:"hasTrack"`
}

// Reader extracts metadata from a file. Implementations never fail: any
// problem yields the zero Metadata.
type Reader interface {
	Read(path string) Metadata
}

// ReaderFunc adapts a function to the Reader interface
type ReaderFunc func(path string) Metadata

func (f ReaderFunc) Read(path string) Metadata {
	return f(path)
}

// DisplayTitle returns the title, falling back to the file name with its
// extension
func (m Metadata) DisplayTitle(path string) string {
	if m.Title != "" {
		return m.Title
	}
	return filepath.Base(path)
}

// DisplayArtist returns the artist or "Unknown Artist"
func (m Metadata) DisplayArtist() string {
	if m.Artist != "" {
		return m.Artist
	}
	return "Unknown Artist"
}

// DisplayAlbum returns the album or "Unknown Album"
func (m Metadata) DisplayAlbum() string {
	if m.Album != "" {
		return m.Album
	}
	return "Unknown Album"
}

// HasArtwork reports whether an embedded picture was found
func (m Metadata) HasArtwork() bool {
	return len(m.Artwork) > 0
}

// ParseTrackNumber parses the numeric prefix of a track tag such as "3/12".
func ParseTrackNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
