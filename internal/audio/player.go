package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// ErrNoMedia is returned when a playback command needs loaded media
var ErrNoMedia = errors.New("no media loaded")

// PlaybackState represents the current state of the player
type PlaybackState string

const (
	StateStopped PlaybackState = "stopped"
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
)

const (
	pumpFrames   = 1024
	resampleQual = 4
	endedBuffer  = 4
)

// Output defines the interface for audio output
type Output interface {
	io.WriteCloser
	SampleRate() int
	Pause()
	Resume()
	Stop()
	Flush()
	Buffered() int
	SetVolume(v float64)
}

// Player plays one piece of media at a time through an Output. Each load
// starts a new session; the session ID tags the end-of-media notification
// so that stale notifications can be told apart from current ones.
type Player struct {
	mu         sync.Mutex
	playbackMu sync.Mutex // Serializes load/play/stop so pump shutdown can release mu
	streamMu   sync.Mutex // Guards the decoder stream between the pump and Seek/Position

	output  Output
	decoder Decoder

	state       PlaybackState
	currentPath string
	sessionID   uint64 // Incremented on each load
	stream      beep.StreamSeekCloser
	format      beep.Format

	cancel   context.CancelFunc
	pumpDone chan struct{}
	ended    chan uint64
}

// NewPlayer creates a player writing to output
func NewPlayer(output Output, decoder Decoder) *Player {
	if decoder == nil {
		decoder = NewBeepDecoder()
	}
	return &Player{
		output:  output,
		decoder: decoder,
		state:   StateStopped,
		ended:   make(chan uint64, endedBuffer),
	}
}

// LoadMedia decodes path and makes it current without playing it
func (p *Player) LoadMedia(path string) (uint64, error) {
	p.playbackMu.Lock()
	defer p.playbackMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopPumpLocked()
	p.closeStreamLocked()

	// Bump the session even on failure so nothing from the old media survives
	p.sessionID++
	p.state = StateStopped

	stream, format, err := p.decoder.Open(path)
	if err != nil {
		log.Printf("[PLAYER] Failed to load %s: %v", filepath.Base(path), err)
		return 0, fmt.Errorf("failed to load media: %w", err)
	}

	p.streamMu.Lock()
	p.stream = stream
	p.format = format
	p.streamMu.Unlock()
	p.currentPath = path

	log.Printf("[PLAYER] Loaded (session %d): %s", p.sessionID, filepath.Base(path))
	return p.sessionID, nil
}

// Play starts or resumes the current media
func (p *Player) Play() error {
	p.playbackMu.Lock()
	defer p.playbackMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNoMedia
	}

	switch p.state {
	case StatePlaying:
		return nil
	case StatePaused:
		p.state = StatePlaying
		p.output.Resume()
		log.Printf("[PLAYER] Resumed (session %d)", p.sessionID)
		return nil
	}

	// Replay from the start once the media has run out
	p.streamMu.Lock()
	if p.stream.Position() >= p.stream.Len() {
		if err := p.stream.Seek(0); err != nil {
			p.streamMu.Unlock()
			return fmt.Errorf("failed to rewind: %w", err)
		}
	}
	p.streamMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.pumpDone = done
	p.state = StatePlaying
	p.output.Resume()

	session := p.sessionID
	stream := p.stream
	format := p.format
	go func() {
		defer close(done)
		p.pump(ctx, session, stream, format)
	}()

	log.Printf("[PLAYER] Playing (session %d): %s", session, filepath.Base(p.currentPath))
	return nil
}

// pump decodes stream into the output until it runs out or ctx is cancelled
func (p *Player) pump(ctx context.Context, session uint64, stream beep.StreamSeekCloser, format beep.Format) {
	var src beep.Streamer = stream
	outRate := beep.SampleRate(p.output.SampleRate())
	if format.SampleRate != outRate {
		src = beep.Resample(resampleQual, format.SampleRate, outRate, stream)
	}

	samples := make([][2]float64, pumpFrames)
	pcm := make([]byte, pumpFrames*4)

	for {
		if ctx.Err() != nil {
			return
		}

		p.streamMu.Lock()
		n, ok := src.Stream(samples)
		p.streamMu.Unlock()

		if n > 0 {
			encodeS16LE(samples[:n], pcm)
			if _, err := p.output.Write(pcm[:n*4]); err != nil {
				log.Printf("[PLAYER] Output write failed (session %d): %v", session, err)
				return
			}
		}
		if !ok || n == 0 {
			break
		}
	}

	if err := stream.Err(); err != nil {
		log.Printf("[PLAYER] Decode error (session %d): %v", session, err)
	}

	// Let the device drain what is already buffered
	for p.output.Buffered() > 0 {
		if ctx.Err() != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Only the active, uncancelled session may report its end
	if ctx.Err() != nil || p.sessionID != session {
		return
	}
	p.state = StateStopped
	p.cancel()
	p.cancel = nil
	p.pumpDone = nil

	log.Printf("[PLAYER] Playback finished (session %d)", session)
	select {
	case p.ended <- session:
	default:
		log.Printf("[PLAYER] Dropping end notification for session %d", session)
	}
}

// Pause pauses playback
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return nil
	}
	p.state = StatePaused
	p.output.Pause()
	log.Printf("[PLAYER] Paused (session %d)", p.sessionID)
	return nil
}

// Stop halts playback and rewinds. It never produces an end notification.
func (p *Player) Stop() error {
	p.playbackMu.Lock()
	defer p.playbackMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopPumpLocked()
	p.state = StateStopped

	if p.stream != nil {
		p.streamMu.Lock()
		err := p.stream.Seek(0)
		p.streamMu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to rewind: %w", err)
		}
	}
	return nil
}

// stopPumpLocked cancels the running pump and waits for it. Called with
// p.mu held; the lock is released while waiting.
func (p *Player) stopPumpLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	done := p.pumpDone
	p.pumpDone = nil

	// Unblocks a pump stuck on a full buffer
	p.output.Stop()

	p.mu.Unlock()
	<-done
	p.mu.Lock()
}

func (p *Player) closeStreamLocked() {
	p.streamMu.Lock()
	defer p.streamMu.Unlock()

	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			log.Printf("[PLAYER] Failed to close stream: %v", err)
		}
		p.stream = nil
	}
	p.currentPath = ""
}

// Seek moves to positionMs in the current media
func (p *Player) Seek(positionMs int64) error {
	p.playbackMu.Lock()
	defer p.playbackMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNoMedia
	}

	p.streamMu.Lock()
	defer p.streamMu.Unlock()

	sample := p.format.SampleRate.N(time.Duration(positionMs) * time.Millisecond)
	if sample < 0 {
		sample = 0
	}
	if max := p.stream.Len(); sample > max {
		sample = max
	}
	if err := p.stream.Seek(sample); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	p.output.Flush()

	log.Printf("[PLAYER] Seeked to %dms (session %d)", positionMs, p.sessionID)
	return nil
}

// PositionMs returns the audible position, accounting for buffered audio
func (p *Player) PositionMs() int64 {
	p.streamMu.Lock()
	defer p.streamMu.Unlock()

	if p.stream == nil {
		return 0
	}
	decoded := p.format.SampleRate.D(p.stream.Position())

	frame := 4 * p.output.SampleRate()
	if frame > 0 {
		buffered := time.Duration(p.output.Buffered()) * time.Second / time.Duration(frame)
		decoded -= buffered
	}
	if decoded < 0 {
		return 0
	}
	return decoded.Milliseconds()
}

// DurationMs returns the length of the current media
func (p *Player) DurationMs() int64 {
	p.streamMu.Lock()
	defer p.streamMu.Unlock()

	if p.stream == nil {
		return 0
	}
	return p.format.SampleRate.D(p.stream.Len()).Milliseconds()
}

// SetVolume sets the volume from 0 to 100
func (p *Player) SetVolume(level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", level)
	}
	p.output.SetVolume(float64(level) / 100)
	return nil
}

// IsPlaying reports whether media is currently playing
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StatePlaying
}

// State returns the playback state
func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Ended delivers the session ID of media that played to its end
func (p *Player) Ended() <-chan uint64 {
	return p.ended
}

// Close stops playback and releases the output
func (p *Player) Close() error {
	p.playbackMu.Lock()
	defer p.playbackMu.Unlock()

	p.mu.Lock()
	p.stopPumpLocked()
	p.closeStreamLocked()
	p.state = StateStopped
	p.mu.Unlock()

	return p.output.Close()
}
