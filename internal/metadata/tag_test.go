package metadata

import (
	"bytes"
	"testing"

	"github.com/dhowden/tag"
)

// fakeTags is a tag.Metadata with canned values
type fakeTags struct {
	title, artist, album string
	year                 int
	track                int
	picture              *tag.Picture
	raw                  map[string]interface{}
}

func (f fakeTags) Format() tag.Format          { return tag.ID3v2_4 }
func (f fakeTags) FileType() tag.FileType      { return tag.MP3 }
func (f fakeTags) Title() string               { return f.title }
func (f fakeTags) Album() string               { return f.album }
func (f fakeTags) Artist() string              { return f.artist }
func (f fakeTags) AlbumArtist() string         { return "" }
func (f fakeTags) Composer() string            { return "" }
func (f fakeTags) Year() int                   { return f.year }
func (f fakeTags) Genre() string               { return "" }
func (f fakeTags) Track() (int, int)           { return f.track, 0 }
func (f fakeTags) Disc() (int, int)            { return 0, 0 }
func (f fakeTags) Picture() *tag.Picture       { return f.picture }
func (f fakeTags) Lyrics() string              { return "" }
func (f fakeTags) Comment() string             { return "" }
func (f fakeTags) Raw() map[string]interface{} { return f.raw }

func TestFromTags(t *testing.T) {
	tests := []struct {
		name      string
		in        fakeTags
		wantTrack int
		wantHas   bool
		wantYear  string
	}{
		{
			name:      "id3 track with total",
			in:        fakeTags{raw: map[string]interface{}{"TRCK": "3/12"}, track: 3},
			wantTrack: 3, wantHas: true,
		},
		{
			name: "unparsable track frame",
			in:   fakeTags{raw: map[string]interface{}{"TRCK": "x"}, track: 7},
		},
		{
			name:      "vorbis tracknumber",
			in:        fakeTags{raw: map[string]interface{}{"tracknumber": "07"}},
			wantTrack: 7, wantHas: true,
		},
		{
			name:      "library track when no raw frame",
			in:        fakeTags{raw: map[string]interface{}{}, track: 4},
			wantTrack: 4, wantHas: true,
		},
		{
			name:     "recording time over release year",
			in:       fakeTags{raw: map[string]interface{}{"TDRC": "2004", "TYER": "1999"}, year: 1999},
			wantYear: "2004",
		},
		{
			name:     "release year only",
			in:       fakeTags{raw: map[string]interface{}{"TYER": "1999"}},
			wantYear: "1999",
		},
		{
			name:     "vorbis date",
			in:       fakeTags{raw: map[string]interface{}{"date": "2011-03-02"}},
			wantYear: "2011-03-02",
		},
		{
			name:     "library year fallback",
			in:       fakeTags{raw: nil, year: 1987},
			wantYear: "1987",
		},
	}

	for _, tt := range tests {
		md := fromTags(tt.in)
		if md.TrackNumber != tt.wantTrack || md.HasTrack != tt.wantHas {
			t.Errorf("%s: track = %d/%v, want %d/%v", tt.name, md.TrackNumber, md.HasTrack, tt.wantTrack, tt.wantHas)
		}
		if md.Year != tt.wantYear {
			t.Errorf("%s: year = %q, want %q", tt.name, md.Year, tt.wantYear)
		}
	}
}

func TestFromTagsTextAndPicture(t *testing.T) {
	art := []byte{0xff, 0xd8, 0xff}
	md := fromTags(fakeTags{
		title:   " Song ",
		artist:  "Band",
		album:   "Record",
		picture: &tag.Picture{MIMEType: "image/jpeg", Data: art},
	})

	if md.Title != "Song" || md.Artist != "Band" || md.Album != "Record" {
		t.Errorf("Unexpected text fields %+v", md)
	}
	if !md.HasArtwork() || !bytes.Equal(md.Artwork, art) || md.ArtworkMIME != "image/jpeg" {
		t.Errorf("Expected embedded picture, got %q %v", md.ArtworkMIME, md.Artwork)
	}

	if empty := fromTags(fakeTags{picture: &tag.Picture{MIMEType: "image/png"}}); empty.HasArtwork() {
		t.Error("An empty picture should not count as artwork")
	}
}
