package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for files no decoder handles
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder opens audio files as seekable sample streams
type Decoder interface {
	Open(path string) (beep.StreamSeekCloser, beep.Format, error)
}

// BeepDecoder decodes mp3, wav, ogg vorbis and flac natively
type BeepDecoder struct{}

// NewBeepDecoder creates a new decoder
func NewBeepDecoder() *BeepDecoder {
	return &BeepDecoder{}
}

// Open decodes path by extension. The returned stream owns the file.
func (d *BeepDecoder) Open(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".wav", ".ogg", ".flac":
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open audio file: %w", err)
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	switch ext {
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	case ".wav":
		stream, format, err = wav.Decode(f)
	case ".ogg":
		stream, format, err = vorbis.Decode(f)
	case ".flac":
		stream, format, err = flac.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	return stream, format, nil
}

// encodeS16LE converts stereo float samples to 16-bit little-endian PCM.
// dst must hold 4 bytes per sample.
func encodeS16LE(samples [][2]float64, dst []byte) {
	for i, s := range samples {
		for c := 0; c < 2; c++ {
			v := s[c]
			if v > 1 {
				v = 1
			}
			if v < -1 {
				v = -1
			}
			x := int16(v * 32767)
			dst[i*4+c*2] = byte(x)
			dst[i*4+c*2+1] = byte(x >> 8)
		}
	}
}
