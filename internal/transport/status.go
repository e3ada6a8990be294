package transport

import (
	"fmt"

	"github.com/austinkregel/local-media/ampd/internal/queue"
)

// PlaybackState is the transport's view of the engine
type PlaybackState string

const (
	StateIdle    PlaybackState = "idle"
	StateStopped PlaybackState = "stopped"
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
)

// Status is a snapshot of the transport
type Status struct {
	State      PlaybackState  `json:"state"`
	Playing    bool           `json:"playing"`
	Index      int            `json:"index"`
	Size       int            `json:"size"`
	Track      *TrackInfo     `json:"track,omitempty"`
	Loop       queue.LoopMode `json:"loop"`
	Shuffle    bool           `json:"shuffle"`
	PositionMs int64          `json:"position"`
	DurationMs int64          `json:"duration"`
	Volume     int            `json:"volume"`
	Folder     string         `json:"folder,omitempty"`
}

// FormatClock renders milliseconds as m:ss
func FormatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// Line renders the one-line status bar text
func (s Status) Line() string {
	if s.Size == 0 || s.Track == nil {
		return "Select a song to begin"
	}

	duration := "0:00"
	if s.DurationMs > 0 {
		duration = FormatClock(s.DurationMs)
	}
	shuffle := "Off"
	if s.Shuffle {
		shuffle = "On"
	}

	return fmt.Sprintf("Now Playing: %s - %s | Album: %s | Duration: %s | Position: %s | Loop: %s | Shuffle: %s",
		s.Track.Title, s.Track.Artist, s.Track.Album,
		duration, FormatClock(s.PositionMs), s.Loop, shuffle)
}
