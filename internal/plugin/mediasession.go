package plugin

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/austinkregel/local-media/ampd/internal/media"
	"github.com/austinkregel/local-media/ampd/internal/metadata"
	"github.com/austinkregel/local-media/ampd/internal/queue"
	"github.com/austinkregel/local-media/ampd/internal/transport"
)

const MediaSessionName = "mediasession"

// seekJumpMs is how far a poll may move from the last position before it is
// reported as a seek rather than normal progress
const seekJumpMs = 1500

const statusTimeout = 2 * time.Second

// MediaSession bridges the transport and the desktop media controls
type MediaSession struct {
	newSession func() (media.Session, error)

	session  media.Session
	controls Controls
	cacheDir string
	logger   *log.Logger

	current  media.Metadata
	state    transport.PlaybackState
	position int64
	volume   int
}

// NewMediaSession creates the plugin backed by the platform session
func NewMediaSession() *MediaSession {
	return &MediaSession{newSession: media.NewSession, volume: -1}
}

func (m *MediaSession) Name() string { return MediaSessionName }

func (m *MediaSession) Register(c *Context) error {
	session, err := m.newSession()
	if err != nil {
		return fmt.Errorf("failed to open media session: %w", err)
	}

	m.session = session
	m.controls = c.Controls
	m.cacheDir = c.CacheDir
	m.logger = c.Logger
	session.SetCommandHandler(media.CommandHandlerFunc(m.onCommand))

	sub := c.Subscribe()
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()
	if st, err := c.Controls.Status(ctx); err == nil {
		m.sync(st)
	}
	go m.run(sub)
	return nil
}

func (m *MediaSession) run(sub *transport.Subscription) {
	for ev := range sub.C {
		if err := m.apply(ev); err != nil {
			m.logger.Printf("Failed to update session: %v", err)
		}
	}
}

// sync brings the session in line with a full status snapshot
func (m *MediaSession) sync(st transport.Status) {
	if st.Track != nil {
		m.apply(transport.TrackChanged{Index: st.Index, Track: *st.Track})
		m.apply(transport.DurationChanged{DurationMs: st.DurationMs})
	}
	m.apply(transport.ModeChanged{Loop: st.Loop, Shuffle: st.Shuffle})
	m.apply(transport.StateChanged{State: st.State})
	m.apply(transport.StatusTick{Status: st})
}

func (m *MediaSession) apply(ev transport.Event) error {
	switch ev := ev.(type) {
	case transport.TrackChanged:
		artPath, err := metadata.ArtworkPath(m.cacheDir, ev.Track.Path, ev.Track.Metadata())
		if err != nil {
			m.logger.Printf("Artwork unavailable: %v", err)
		}
		m.current = media.Metadata{
			TrackIndex:  ev.Index,
			Title:       ev.Track.Title,
			Artist:      ev.Track.Artist,
			Album:       ev.Track.Album,
			Year:        ev.Track.Year,
			TrackNumber: ev.Track.TrackNumber,
			ArtPath:     artPath,
		}
		m.position = 0
		return m.session.UpdateMetadata(m.current)

	case transport.DurationChanged:
		m.current.Duration = time.Duration(ev.DurationMs) * time.Millisecond
		return m.session.UpdateMetadata(m.current)

	case transport.ModeChanged:
		if err := m.session.UpdateLoopStatus(loopStatusFor(ev.Loop)); err != nil {
			return err
		}
		return m.session.UpdateShuffle(ev.Shuffle)

	case transport.StateChanged:
		m.state = ev.State
		return m.session.UpdatePlaybackState(sessionState(ev.State), m.positionDuration())

	case transport.PositionChanged:
		jumped := ev.PositionMs < m.position || ev.PositionMs-m.position > seekJumpMs
		m.position = ev.PositionMs
		if jumped && m.state == transport.StatePlaying {
			return m.session.Seeked(m.positionDuration())
		}
		m.session.UpdatePosition(m.positionDuration())

	case transport.StatusTick:
		if ev.Status.Volume != m.volume {
			m.volume = ev.Status.Volume
			return m.session.UpdateVolume(float64(m.volume) / 100)
		}
	}
	return nil
}

func (m *MediaSession) positionDuration() time.Duration {
	return time.Duration(m.position) * time.Millisecond
}

func (m *MediaSession) onCommand(cmd media.Command, data interface{}) error {
	ctx := context.Background()

	switch cmd {
	case media.CmdPlay:
		return m.controls.Play(ctx)
	case media.CmdPause:
		return m.controls.Pause(ctx)
	case media.CmdPlayPause:
		return m.controls.PlayPause(ctx)
	case media.CmdStop:
		return m.controls.Stop(ctx)
	case media.CmdNext:
		return m.controls.Next(ctx)
	case media.CmdPrevious:
		return m.controls.Previous(ctx)
	case media.CmdSeek:
		pos, ok := data.(time.Duration)
		if !ok {
			return fmt.Errorf("invalid seek position %v", data)
		}
		return m.controls.Seek(ctx, pos.Milliseconds())
	case media.CmdSetShuffle:
		enabled, ok := data.(bool)
		if !ok {
			return fmt.Errorf("invalid shuffle value %v", data)
		}
		return m.controls.SetShuffle(ctx, enabled)
	case media.CmdSetLoopStatus:
		status, ok := data.(media.LoopStatus)
		if !ok {
			return fmt.Errorf("invalid loop status %v", data)
		}
		return m.controls.SetLoopMode(ctx, loopModeFor(status))
	case media.CmdSetVolume:
		vol, ok := data.(float64)
		if !ok {
			return fmt.Errorf("invalid volume %v", data)
		}
		level := int(math.Round(math.Max(0, math.Min(1, vol)) * 100))
		return m.controls.SetVolume(ctx, level)
	}
	return fmt.Errorf("unhandled media command %s", cmd)
}

// Close releases the platform session
func (m *MediaSession) Close() error {
	if m.session == nil {
		return nil
	}
	return m.session.Close()
}

func loopStatusFor(mode queue.LoopMode) media.LoopStatus {
	switch mode {
	case queue.LoopAll:
		return media.LoopPlaylist
	case queue.LoopOne:
		return media.LoopTrack
	default:
		return media.LoopNone
	}
}

func loopModeFor(status media.LoopStatus) queue.LoopMode {
	switch status {
	case media.LoopPlaylist:
		return queue.LoopAll
	case media.LoopTrack:
		return queue.LoopOne
	default:
		return queue.LoopOff
	}
}

func sessionState(s transport.PlaybackState) media.PlaybackState {
	switch s {
	case transport.StatePlaying:
		return media.StatePlaying
	case transport.StatePaused:
		return media.StatePaused
	default:
		return media.StateStopped
	}
}
