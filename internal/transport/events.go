package transport

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/austinkregel/local-media/ampd/internal/metadata"
	"github.com/austinkregel/local-media/ampd/internal/queue"
)

// EventKind names an event on the wire
type EventKind string

const (
	KindTrackChanged    EventKind = "trackChanged"
	KindModeChanged     EventKind = "modeChanged"
	KindPositionChanged EventKind = "positionChanged"
	KindDurationChanged EventKind = "durationChanged"
	KindQueueExhausted  EventKind = "queueExhausted"
	KindStateChanged    EventKind = "stateChanged"
	KindTrackFailed     EventKind = "trackFailed"
	KindStatusTick      EventKind = "statusTick"
	KindFolderChanged   EventKind = "folderChanged"
)

// Event is anything the core reports to shells
type Event interface {
	Kind() EventKind
}

// TrackInfo is the display form of a queued track
type TrackInfo struct {
	Path        string `json:"path"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	Year        string `json:"year,omitempty"`
	TrackNumber int    `json:"trackNumber,omitempty"`
	HasArtwork  bool   `json:"hasArtwork"`

	Artwork     []byte `json:"-"`
	ArtworkMIME string `json:"-"`
}

// NewTrackInfo applies the display fallbacks to md
func NewTrackInfo(path string, md metadata.Metadata) TrackInfo {
	return TrackInfo{
		Path:        path,
		Title:       md.DisplayTitle(path),
		Artist:      md.DisplayArtist(),
		Album:       md.DisplayAlbum(),
		Year:        md.Year,
		TrackNumber: md.TrackNumber,
		HasArtwork:  md.HasArtwork(),
		Artwork:     md.Artwork,
		ArtworkMIME: md.ArtworkMIME,
	}
}

// Metadata returns the artwork-bearing metadata of the track
func (t TrackInfo) Metadata() metadata.Metadata {
	return metadata.Metadata{
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		Year:        t.Year,
		Artwork:     t.Artwork,
		ArtworkMIME: t.ArtworkMIME,
		TrackNumber: t.TrackNumber,
		HasTrack:    t.TrackNumber > 0,
	}
}

type TrackChanged struct {
	Index int       `json:"index"`
	Track TrackInfo `json:"track"`
}

type ModeChanged struct {
	Loop    queue.LoopMode `json:"loop"`
	Shuffle bool           `json:"shuffle"`
}

type PositionChanged struct {
	PositionMs int64 `json:"position"`
}

type DurationChanged struct {
	DurationMs int64 `json:"duration"`
}

// QueueExhausted is raised when playback stops at the end of the queue,
// or with Empty set when an opened folder had nothing to play.
type QueueExhausted struct {
	Empty bool `json:"empty"`
}

type StateChanged struct {
	State PlaybackState `json:"state"`
}

// TrackFailed reports a track the engine could not load. Playback moves on.
type TrackFailed struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// StatusTick carries the periodic status bar refresh
type StatusTick struct {
	Status Status `json:"status"`
}

// FolderChanged reports that audio files were added to or removed from the
// open folder. The queue is left untouched.
type FolderChanged struct {
	Dir string `json:"dir"`
}

func (TrackChanged) Kind() EventKind    { return KindTrackChanged }
func (ModeChanged) Kind() EventKind     { return KindModeChanged }
func (PositionChanged) Kind() EventKind { return KindPositionChanged }
func (DurationChanged) Kind() EventKind { return KindDurationChanged }
func (QueueExhausted) Kind() EventKind  { return KindQueueExhausted }
func (StateChanged) Kind() EventKind    { return KindStateChanged }
func (TrackFailed) Kind() EventKind     { return KindTrackFailed }
func (StatusTick) Kind() EventKind      { return KindStatusTick }
func (FolderChanged) Kind() EventKind   { return KindFolderChanged }

const defaultSubscriptionBuffer = 64

// Subscription receives events in publish order
type Subscription struct {
	ID uuid.UUID
	C  <-chan Event

	ch   chan Event
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription from its hub
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.ID)
	})
}

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]*Subscription)}
}

// Subscribe registers a new subscriber
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan Event, defaultSubscriptionBuffer)
	sub := &Subscription{
		ID:  uuid.New(),
		C:   ch,
		ch:  ch,
		hub: h,
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	return sub
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Publish delivers ev to every subscriber
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			if ev.Kind() != KindPositionChanged && ev.Kind() != KindStatusTick {
				log.Printf("[TRANSPORT] Subscriber %s is slow, dropped %s", id, ev.Kind())
			}
		}
	}
}

// Len returns the number of subscribers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
