// Package transport implements the playback state machine: which track is
// current, what plays when a track ends, and how loop and shuffle interact.
package transport

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/austinkregel/local-media/ampd/internal/metadata"
	"github.com/austinkregel/local-media/ampd/internal/queue"
)

var (
	// ErrEmptyQueue is returned by operations that need a current track
	ErrEmptyQueue = errors.New("queue is empty")

	// ErrNoPlayableMedia is returned when every track in the queue failed to load
	ErrNoPlayableMedia = errors.New("no playable media in queue")
)

// Transport owns the queue and drives the engine. It is not safe for
// concurrent use; Controller runs it on a single goroutine.
type Transport struct {
	engine Engine
	reader metadata.Reader
	queue  *queue.Queue
	emit   func(Event)
	rng    *rand.Rand

	loop    queue.LoopMode
	shuffle bool

	// session of the media currently loaded in the engine; 0 when none
	session uint64

	state      PlaybackState
	positionMs int64
	durationMs int64
	volume     int
	folder     string
}

// New creates a transport in the Idle state. emit receives every event.
func New(engine Engine, reader metadata.Reader, emit func(Event)) *Transport {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Transport{
		engine: engine,
		reader: reader,
		queue:  queue.New(),
		emit:   emit,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		state:  StateIdle,
		volume: 100,
	}
}

// SetRand replaces the random source used by shuffle
func (t *Transport) SetRand(r *rand.Rand) {
	t.rng = r
}

// LoadQueue replaces the queue and loads its first track without playing.
// An empty list leaves the transport Idle and raises QueueExhausted{Empty}.
func (t *Transport) LoadQueue(paths []string) error {
	return t.LoadQueueAt(paths, 0)
}

// LoadQueueAt is LoadQueue with a starting index, used to restore a saved queue
func (t *Transport) LoadQueueAt(paths []string, index int) error {
	t.queue.Replace(paths)
	t.positionMs, t.durationMs = 0, 0

	if t.queue.Empty() {
		t.session = 0
		if err := t.engine.Stop(); err != nil {
			log.Printf("[TRANSPORT] Engine stop failed: %v", err)
		}
		t.setState(StateIdle)
		log.Printf("[TRANSPORT] No audio found, transport idle")
		t.emit(QueueExhausted{Empty: true})
		return nil
	}

	if index < 0 || index >= t.queue.Len() {
		index = 0
	}
	log.Printf("[TRANSPORT] Loaded queue of %d tracks", t.queue.Len())
	return t.loadAt(index, false)
}

// LoadSingle makes path the only track in the queue
func (t *Transport) LoadSingle(path string) error {
	return t.LoadQueue([]string{path})
}

// SetFolder records the folder the queue was built from
func (t *Transport) SetFolder(dir string) {
	t.folder = dir
}

// Folder returns the folder the queue was built from
func (t *Transport) Folder() string {
	return t.folder
}

// Play starts or resumes the current track
func (t *Transport) Play() error {
	if t.queue.Empty() {
		return ErrEmptyQueue
	}
	if t.session == 0 {
		return t.loadAt(t.queue.Index(), true)
	}
	if err := t.engine.Play(); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}
	t.setState(StatePlaying)
	return nil
}

// Pause pauses the current track
func (t *Transport) Pause() error {
	if t.queue.Empty() {
		return ErrEmptyQueue
	}
	if err := t.engine.Pause(); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}
	if t.state == StatePlaying {
		t.setState(StatePaused)
	}
	return nil
}

// PlayPause toggles based on whether the engine is currently playing
func (t *Transport) PlayPause() error {
	if t.engine.IsPlaying() {
		return t.Pause()
	}
	return t.Play()
}

// Stop stops playback without moving the cursor
func (t *Transport) Stop() error {
	if t.queue.Empty() {
		return ErrEmptyQueue
	}
	if err := t.engine.Stop(); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	t.setState(StateStopped)
	return nil
}

// Next plays the following track, wrapping to the first after the last
func (t *Transport) Next() error {
	if t.queue.Empty() {
		return ErrEmptyQueue
	}
	return t.loadAt(t.queue.Wrap(t.queue.Index(), 1), true)
}

// Previous plays the preceding track, wrapping to the last before the first
func (t *Transport) Previous() error {
	if t.queue.Empty() {
		return ErrEmptyQueue
	}
	return t.loadAt(t.queue.Wrap(t.queue.Index(), -1), true)
}

// JumpTo plays path, appending it to the queue if it isn't queued yet
func (t *Transport) JumpTo(path string) error {
	idx := t.queue.IndexOf(path)
	if idx < 0 {
		idx = t.queue.Append(path)
		log.Printf("[TRANSPORT] Appended %s at %d", path, idx)
	}
	return t.loadAt(idx, true)
}

// OnMediaEnded picks what plays after the media tagged session finished.
// Notifications for superseded loads are ignored.
func (t *Transport) OnMediaEnded(session uint64) {
	if session == 0 || session != t.session || t.queue.Empty() {
		log.Printf("[TRANSPORT] Ignoring end of stale session %d (current %d)", session, t.session)
		return
	}

	i := t.queue.Index()
	n := t.queue.Len()

	var err error
	switch {
	case t.loop == queue.LoopOne:
		err = t.loadAt(i, true)
	case t.shuffle:
		// Uniform over the whole queue; the same track may come up again
		err = t.loadAt(t.rng.Intn(n), true)
	case i+1 < n:
		err = t.loadAt(i+1, true)
	case t.loop == queue.LoopAll:
		err = t.loadAt(0, true)
	default:
		if err := t.engine.Stop(); err != nil {
			log.Printf("[TRANSPORT] Engine stop failed: %v", err)
		}
		t.setState(StateStopped)
		log.Printf("[TRANSPORT] Reached end of queue")
		t.emit(QueueExhausted{})
		return
	}

	if err != nil {
		log.Printf("[TRANSPORT] Could not continue after track end: %v", err)
	}
}

// Seek moves within the current track. Positions are clamped to the known
// duration.
func (t *Transport) Seek(positionMs int64) error {
	if t.queue.Empty() {
		return ErrEmptyQueue
	}
	if positionMs < 0 {
		positionMs = 0
	}
	if t.durationMs > 0 && positionMs > t.durationMs {
		positionMs = t.durationMs
	}
	if err := t.engine.Seek(positionMs); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	t.positionMs = positionMs
	t.emit(PositionChanged{PositionMs: positionMs})
	return nil
}

// SetVolume sets the engine volume, clamped to 0..100
func (t *Transport) SetVolume(level int) error {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	if err := t.engine.SetVolume(level); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	t.volume = level
	return nil
}

// SetShuffle enables or disables shuffle. It takes effect at the next end of media.
func (t *Transport) SetShuffle(enabled bool) {
	if t.shuffle == enabled {
		return
	}
	t.shuffle = enabled
	t.emitMode()
}

// ToggleShuffle flips shuffle
func (t *Transport) ToggleShuffle() {
	t.SetShuffle(!t.shuffle)
}

// SetLoopMode sets the loop mode
func (t *Transport) SetLoopMode(m queue.LoopMode) {
	if t.loop == m {
		return
	}
	t.loop = m
	t.emitMode()
}

// CycleLoopMode advances Off -> All -> One -> Off
func (t *Transport) CycleLoopMode() {
	t.SetLoopMode(t.loop.Next())
}

// LoopMode returns the current loop mode
func (t *Transport) LoopMode() queue.LoopMode {
	return t.loop
}

// Shuffle returns whether shuffle is on
func (t *Transport) Shuffle() bool {
	return t.shuffle
}

// Poll samples the engine clock. Duration is reported only when it
// changes; position is reported on every poll.
func (t *Transport) Poll() {
	if t.queue.Empty() || t.session == 0 {
		return
	}
	if d := t.engine.DurationMs(); d != t.durationMs {
		t.durationMs = d
		t.emit(DurationChanged{DurationMs: d})
	}
	t.positionMs = t.engine.PositionMs()
	t.emit(PositionChanged{PositionMs: t.positionMs})
}

// Status returns a snapshot of the transport
func (t *Transport) Status() Status {
	st := Status{
		State:      t.state,
		Playing:    t.engine.IsPlaying(),
		Index:      t.queue.Index(),
		Size:       t.queue.Len(),
		Loop:       t.loop,
		Shuffle:    t.shuffle,
		PositionMs: t.positionMs,
		DurationMs: t.durationMs,
		Volume:     t.volume,
		Folder:     t.folder,
	}
	if !t.queue.Empty() {
		info := t.trackInfo(t.queue.Index())
		st.Track = &info
	}
	return st
}

// Queue returns display info for every queued track
func (t *Transport) Queue() []TrackInfo {
	out := make([]TrackInfo, t.queue.Len())
	for i := range out {
		out[i] = t.trackInfo(i)
	}
	return out
}

// Snapshot returns the persistable queue state
func (t *Transport) Snapshot() queue.PersistentState {
	return t.queue.Snapshot(t.folder)
}

// loadAt loads index i into the engine. A track the engine rejects is
// reported and skipped as if Next was pressed; after a full lap of
// failures playback stops.
func (t *Transport) loadAt(i int, play bool) error {
	n := t.queue.Len()
	for attempt := 0; attempt < n; attempt++ {
		idx := t.queue.Wrap(i, attempt)
		t.queue.SetIndex(idx)
		path := t.queue.Path(idx)

		session, err := t.engine.LoadMedia(path)
		if err != nil {
			log.Printf("[TRANSPORT] Could not play %s, skipping: %v", path, err)
			t.emit(TrackFailed{Index: idx, Path: path, Error: err.Error()})
			continue
		}

		t.session = session
		t.positionMs, t.durationMs = 0, 0
		t.emit(TrackChanged{Index: idx, Track: t.trackInfo(idx)})

		if !play {
			t.setState(StateStopped)
			return nil
		}
		if err := t.engine.Play(); err != nil {
			t.setState(StateStopped)
			return fmt.Errorf("failed to play: %w", err)
		}
		t.setState(StatePlaying)
		return nil
	}

	t.session = 0
	if err := t.engine.Stop(); err != nil {
		log.Printf("[TRANSPORT] Engine stop failed: %v", err)
	}
	t.setState(StateStopped)
	t.emit(QueueExhausted{})
	return ErrNoPlayableMedia
}

func (t *Transport) trackInfo(i int) TrackInfo {
	return NewTrackInfo(t.queue.Path(i), t.queue.Metadata(i, t.reader))
}

func (t *Transport) setState(s PlaybackState) {
	if t.state == s {
		return
	}
	t.state = s
	t.emit(StateChanged{State: s})
}

func (t *Transport) emitMode() {
	t.emit(ModeChanged{Loop: t.loop, Shuffle: t.shuffle})
}
