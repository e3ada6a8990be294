package transport

// Engine is the playback engine the transport drives. Implementations
// decode and output audio; the transport only tells them what to load
// and when to play.
type Engine interface {
	// LoadMedia replaces the current media. It returns a session token that
	// tags the end-of-media notification for this load.
	LoadMedia(path string) (uint64, error)

	Play() error
	Pause() error
	Stop() error

	// Seek moves to positionMs within the current media
	Seek(positionMs int64) error

	// PositionMs and DurationMs return 0 when unknown
	PositionMs() int64
	DurationMs() int64

	// SetVolume takes a level between 0 and 100
	SetVolume(level int) error

	IsPlaying() bool

	// Ended delivers the session token of media that finished naturally.
	// It never fires for media that was stopped or replaced.
	Ended() <-chan uint64
}
