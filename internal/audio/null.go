package audio

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"
)

// NullEngine keeps time like a real player but produces no sound. It is
// used on machines without an audio device.
type NullEngine struct {
	mu      sync.Mutex
	decoder Decoder
	now     func() time.Time

	sessionID uint64
	loaded    bool
	duration  time.Duration
	offset    time.Duration // Position when the clock last started or stopped
	started   time.Time     // Zero unless playing
	volume    int
	timer     *time.Timer
	ended     chan uint64
}

// NewNullEngine creates a silent engine. decoder is used to learn durations.
func NewNullEngine(decoder Decoder) *NullEngine {
	if decoder == nil {
		decoder = NewBeepDecoder()
	}
	return &NullEngine{
		decoder: decoder,
		now:     time.Now,
		volume:  100,
		ended:   make(chan uint64, endedBuffer),
	}
}

func (e *NullEngine) LoadMedia(path string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltLocked()
	e.sessionID++
	e.loaded = false
	e.offset = 0

	stream, format, err := e.decoder.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load media: %w", err)
	}
	e.duration = format.SampleRate.D(stream.Len())
	stream.Close()
	e.loaded = true

	log.Printf("[PLAYER] Loaded silently (session %d): %s", e.sessionID, filepath.Base(path))
	return e.sessionID, nil
}

func (e *NullEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return ErrNoMedia
	}
	if !e.started.IsZero() {
		return nil
	}
	if e.offset >= e.duration {
		e.offset = 0
	}
	e.started = e.now()

	session := e.sessionID
	e.timer = time.AfterFunc(e.duration-e.offset, func() { e.finish(session) })
	return nil
}

func (e *NullEngine) finish(session uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sessionID != session || e.started.IsZero() {
		return
	}
	e.started = time.Time{}
	e.offset = e.duration
	e.timer = nil

	select {
	case e.ended <- session:
	default:
	}
}

func (e *NullEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.haltLocked()
	return nil
}

func (e *NullEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.haltLocked()
	e.offset = 0
	return nil
}

// haltLocked freezes the clock at the current position
func (e *NullEngine) haltLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if !e.started.IsZero() {
		e.offset = e.positionLocked()
		e.started = time.Time{}
	}
}

func (e *NullEngine) Seek(positionMs int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return ErrNoMedia
	}
	playing := !e.started.IsZero()
	e.haltLocked()

	pos := time.Duration(positionMs) * time.Millisecond
	if pos < 0 {
		pos = 0
	}
	if pos > e.duration {
		pos = e.duration
	}
	e.offset = pos

	if playing {
		e.started = e.now()
		session := e.sessionID
		e.timer = time.AfterFunc(e.duration-e.offset, func() { e.finish(session) })
	}
	return nil
}

func (e *NullEngine) positionLocked() time.Duration {
	pos := e.offset
	if !e.started.IsZero() {
		pos += e.now().Sub(e.started)
	}
	if pos > e.duration {
		pos = e.duration
	}
	return pos
}

func (e *NullEngine) PositionMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked().Milliseconds()
}

func (e *NullEngine) DurationMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration.Milliseconds()
}

func (e *NullEngine) SetVolume(level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", level)
	}
	e.mu.Lock()
	e.volume = level
	e.mu.Unlock()
	return nil
}

func (e *NullEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.started.IsZero()
}

func (e *NullEngine) Ended() <-chan uint64 {
	return e.ended
}

func (e *NullEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.haltLocked()
	return nil
}
