package metadata

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseTrackNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"3", 3, true},
		{"3/12", 3, true},
		{" 07 / 10 ", 7, true},
		{"0", 0, true},
		{"", 0, false},
		{"/12", 0, false},
		{"A1", 0, false},
		{"two", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseTrackNumber(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseTrackNumber(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDisplayFallbacks(t *testing.T) {
	var m Metadata

	if got := m.DisplayTitle("/music/01 - Intro.mp3"); got != "01 - Intro.mp3" {
		t.Errorf("Expected file name fallback, got %q", got)
	}
	if got := m.DisplayArtist(); got != "Unknown Artist" {
		t.Errorf("Expected Unknown Artist, got %q", got)
	}
	if got := m.DisplayAlbum(); got != "Unknown Album" {
		t.Errorf("Expected Unknown Album, got %q", got)
	}

	m = Metadata{Title: "Intro", Artist: "Band", Album: "Record"}
	if m.DisplayTitle("/x.mp3") != "Intro" || m.DisplayArtist() != "Band" || m.DisplayAlbum() != "Record" {
		t.Errorf("Expected tag values to win, got %+v", m)
	}
}

func TestTagReaderNeverFails(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "noise.mp3")
	if err := os.WriteFile(garbage, bytes.Repeat([]byte{0x42}, 512), 0644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.flac")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}

	r := NewTagReader()
	for _, path := range []string{garbage, empty, filepath.Join(dir, "missing.ogg"), dir} {
		m := r.Read(path)
		if m.HasTrack || m.Title != "" || m.HasArtwork() {
			t.Errorf("Expected zero metadata for %s, got %+v", path, m)
		}
	}
}

func TestFirstRaw(t *testing.T) {
	raw := map[string]interface{}{
		"TYER":        "1999",
		"TDRC":        "2004-05-01",
		"tracknumber": "",
	}

	year, ok := firstRaw(raw, yearFrames)
	if !ok || year != "2004-05-01" {
		t.Errorf("Expected recording time to win, got %q", year)
	}

	if _, ok := firstRaw(raw, trackFrames); ok {
		t.Error("Expected empty track frame to be ignored")
	}
}

func TestFindAlbumArt(t *testing.T) {
	root := t.TempDir()
	album := filepath.Join(root, "Artist", "Album")
	if err := os.MkdirAll(album, 0755); err != nil {
		t.Fatal(err)
	}
	track := filepath.Join(album, "01.mp3")

	if got := FindAlbumArt(track); got != "" {
		t.Errorf("Expected no art, got %s", got)
	}

	parentArt := filepath.Join(root, "Artist", "folder.jpg")
	os.WriteFile(parentArt, []byte("jpg"), 0644)
	if got := FindAlbumArt(track); got != parentArt {
		t.Errorf("Expected parent art %s, got %s", parentArt, got)
	}

	cover := filepath.Join(album, "cover.png")
	os.WriteFile(cover, []byte("png"), 0644)
	if got := FindAlbumArt(track); got != cover {
		t.Errorf("Expected album art %s, got %s", cover, got)
	}

	if FindAlbumArt("") != "" {
		t.Error("Expected empty path to return empty string")
	}
}

func TestArtworkPathWritesEmbeddedArt(t *testing.T) {
	cache := t.TempDir()
	md := Metadata{Artwork: []byte{0x89, 'P', 'N', 'G'}, ArtworkMIME: "image/png"}

	path, err := ArtworkPath(cache, "/music/a.mp3", md)
	if err != nil {
		t.Fatalf("ArtworkPath failed: %v", err)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Errorf("Expected .png extension, got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected artwork file: %v", err)
	}
	if !bytes.Equal(data, md.Artwork) {
		t.Error("Artwork content mismatch")
	}

	again, err := ArtworkPath(cache, "/music/b.mp3", md)
	if err != nil || again != path {
		t.Errorf("Expected cached path %s, got %s (%v)", path, again, err)
	}
}
