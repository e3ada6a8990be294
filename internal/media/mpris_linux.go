//go:build linux

package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisInterface       = "org.mpris.MediaPlayer2"
	mprisPlayerInterface = "org.mpris.MediaPlayer2.Player"
	mprisBusName         = "org.mpris.MediaPlayer2.ampd"
	mprisObjectPath      = "/org/mpris/MediaPlayer2"
	propertiesInterface  = "org.freedesktop.DBus.Properties"

	identity = "ampd"
)

var supportedMimeTypes = []string{"audio/mpeg", "audio/wav", "audio/ogg", "audio/flac"}

// MPRISSession implements MPRIS media session for Linux. D-Bus calls
// arrive on the connection's goroutines, so all state is behind mu.
type MPRISSession struct {
	conn *dbus.Conn

	mu         sync.Mutex
	handler    CommandHandler
	metadata   Metadata
	state      PlaybackState
	position   time.Duration
	shuffle    bool
	loopStatus LoopStatus
	volume     float64
}

// NewSession creates a new MPRIS media session
func NewSession() (Session, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	// Request the MPRIS bus name
	reply, err := conn.RequestName(mprisBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already taken", mprisBusName)
	}

	session := newMPRISSession()
	session.conn = conn

	if err := session.exportInterfaces(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export interfaces: %w", err)
	}

	return session, nil
}

func newMPRISSession() *MPRISSession {
	return &MPRISSession{
		state:      StateStopped,
		loopStatus: LoopNone,
		volume:     1.0,
	}
}

func (s *MPRISSession) exportInterfaces() error {
	path := dbus.ObjectPath(mprisObjectPath)
	for _, iface := range []string{mprisInterface, mprisPlayerInterface, propertiesInterface} {
		if err := s.conn.Export(s, path, iface); err != nil {
			return fmt.Errorf("failed to export %s: %w", iface, err)
		}
	}
	return nil
}

// UpdateMetadata updates the track metadata
func (s *MPRISSession) UpdateMetadata(metadata Metadata) error {
	s.mu.Lock()
	s.metadata = metadata
	props := map[string]dbus.Variant{
		"Metadata": dbus.MakeVariant(s.metadataMapLocked()),
	}
	s.mu.Unlock()

	return s.emitPropertiesChanged(props)
}

// UpdatePlaybackState updates the playback state
func (s *MPRISSession) UpdatePlaybackState(state PlaybackState, position time.Duration) error {
	s.mu.Lock()
	oldState := s.state
	s.state = state
	s.position = position
	props := map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(s.playbackStatusLocked()),
	}
	s.mu.Unlock()

	// Clients extrapolate position from rate, so anchor it when playback starts
	if oldState != state && state == StatePlaying {
		if err := s.emitSeeked(position); err != nil {
			return err
		}
	}

	return s.emitPropertiesChanged(props)
}

// UpdatePosition records the current position. MPRIS does not signal
// ordinary position changes.
func (s *MPRISSession) UpdatePosition(position time.Duration) {
	s.mu.Lock()
	s.position = position
	s.mu.Unlock()
}

// Seeked records a jump in position and emits the Seeked signal
func (s *MPRISSession) Seeked(position time.Duration) error {
	s.UpdatePosition(position)
	return s.emitSeeked(position)
}

func (s *MPRISSession) emitSeeked(position time.Duration) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Emit(
		dbus.ObjectPath(mprisObjectPath),
		mprisPlayerInterface+".Seeked",
		position.Microseconds(),
	)
}

// UpdateShuffle updates the shuffle state
func (s *MPRISSession) UpdateShuffle(enabled bool) error {
	s.mu.Lock()
	s.shuffle = enabled
	s.mu.Unlock()

	return s.emitPropertiesChanged(map[string]dbus.Variant{
		"Shuffle": dbus.MakeVariant(enabled),
	})
}

// UpdateLoopStatus updates the loop/repeat mode
func (s *MPRISSession) UpdateLoopStatus(status LoopStatus) error {
	s.mu.Lock()
	s.loopStatus = status
	s.mu.Unlock()

	return s.emitPropertiesChanged(map[string]dbus.Variant{
		"LoopStatus": dbus.MakeVariant(string(status)),
	})
}

// UpdateVolume updates the volume
func (s *MPRISSession) UpdateVolume(volume float64) error {
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()

	return s.emitPropertiesChanged(map[string]dbus.Variant{
		"Volume": dbus.MakeVariant(volume),
	})
}

// SetCommandHandler sets the handler for media commands
func (s *MPRISSession) SetCommandHandler(handler CommandHandler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

// Close releases resources
func (s *MPRISSession) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// dispatch forwards cmd to the handler outside the lock
func (s *MPRISSession) dispatch(cmd Command, data interface{}) *dbus.Error {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	if h == nil {
		return nil
	}
	if err := h.OnCommand(cmd, data); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// org.mpris.MediaPlayer2 methods

func (s *MPRISSession) Raise() *dbus.Error {
	return nil
}

func (s *MPRISSession) Quit() *dbus.Error {
	return nil
}

// org.mpris.MediaPlayer2.Player methods

func (s *MPRISSession) Play() *dbus.Error {
	return s.dispatch(CmdPlay, nil)
}

func (s *MPRISSession) Pause() *dbus.Error {
	return s.dispatch(CmdPause, nil)
}

func (s *MPRISSession) PlayPause() *dbus.Error {
	return s.dispatch(CmdPlayPause, nil)
}

func (s *MPRISSession) Stop() *dbus.Error {
	return s.dispatch(CmdStop, nil)
}

func (s *MPRISSession) Next() *dbus.Error {
	return s.dispatch(CmdNext, nil)
}

func (s *MPRISSession) Previous() *dbus.Error {
	return s.dispatch(CmdPrevious, nil)
}

// Seek moves by offset microseconds relative to the current position
func (s *MPRISSession) Seek(offset int64) *dbus.Error {
	s.mu.Lock()
	newPos := s.position + time.Duration(offset)*time.Microsecond
	s.mu.Unlock()

	if newPos < 0 {
		newPos = 0
	}
	return s.dispatch(CmdSeek, newPos)
}

// SetPosition seeks to an absolute position if trackID is still current
func (s *MPRISSession) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	s.mu.Lock()
	current := s.trackIDLocked()
	s.mu.Unlock()

	if trackID != current || position < 0 {
		return nil
	}
	return s.dispatch(CmdSeek, time.Duration(position)*time.Microsecond)
}

// org.freedesktop.DBus.Properties methods

func (s *MPRISSession) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	var props map[string]dbus.Variant
	switch iface {
	case mprisInterface:
		props = s.mediaPlayer2Properties()
	case mprisPlayerInterface:
		props = s.playerProperties()
	default:
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
	}

	v, ok := props[prop]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown property: %s", prop))
	}
	return v, nil
}

func (s *MPRISSession) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	switch iface {
	case mprisInterface:
		return s.mediaPlayer2Properties(), nil
	case mprisPlayerInterface:
		return s.playerProperties(), nil
	}
	return nil, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
}

// Set handles writable player properties. The new value is applied once
// the player reports it back through the Update methods.
func (s *MPRISSession) Set(iface, prop string, value dbus.Variant) *dbus.Error {
	if iface != mprisPlayerInterface {
		return nil
	}

	switch prop {
	case "Shuffle":
		enabled, ok := value.Value().(bool)
		if !ok {
			return dbus.MakeFailedError(fmt.Errorf("invalid type for Shuffle"))
		}
		return s.dispatch(CmdSetShuffle, enabled)
	case "LoopStatus":
		raw, ok := value.Value().(string)
		if !ok || !LoopStatus(raw).Valid() {
			return dbus.MakeFailedError(fmt.Errorf("invalid LoopStatus %v", value.Value()))
		}
		return s.dispatch(CmdSetLoopStatus, LoopStatus(raw))
	case "Volume":
		vol, ok := value.Value().(float64)
		if !ok {
			return dbus.MakeFailedError(fmt.Errorf("invalid type for Volume"))
		}
		return s.dispatch(CmdSetVolume, vol)
	}

	return nil
}

func (s *MPRISSession) mediaPlayer2Properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"CanQuit":             dbus.MakeVariant(false),
		"CanRaise":            dbus.MakeVariant(false),
		"HasTrackList":        dbus.MakeVariant(false),
		"Identity":            dbus.MakeVariant(identity),
		"DesktopEntry":        dbus.MakeVariant(identity),
		"SupportedUriSchemes": dbus.MakeVariant([]string{"file"}),
		"SupportedMimeTypes":  dbus.MakeVariant(supportedMimeTypes),
	}
}

func (s *MPRISSession) playerProperties() map[string]dbus.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(s.playbackStatusLocked()),
		"Metadata":       dbus.MakeVariant(s.metadataMapLocked()),
		"Position":       dbus.MakeVariant(s.position.Microseconds()),
		"Rate":           dbus.MakeVariant(1.0),
		"MinimumRate":    dbus.MakeVariant(1.0),
		"MaximumRate":    dbus.MakeVariant(1.0),
		"CanGoNext":      dbus.MakeVariant(true),
		"CanGoPrevious":  dbus.MakeVariant(true),
		"CanPlay":        dbus.MakeVariant(true),
		"CanPause":       dbus.MakeVariant(true),
		"CanSeek":        dbus.MakeVariant(true),
		"CanControl":     dbus.MakeVariant(true),
		"Volume":         dbus.MakeVariant(s.volume),
		"Shuffle":        dbus.MakeVariant(s.shuffle),
		"LoopStatus":     dbus.MakeVariant(string(s.loopStatus)),
	}
}

func (s *MPRISSession) playbackStatusLocked() string {
	switch s.state {
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

func (s *MPRISSession) trackIDLocked() dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("/org/ampd/track/%d", s.metadata.TrackIndex))
}

func (s *MPRISSession) metadataMapLocked() map[string]dbus.Variant {
	m := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(s.trackIDLocked()),
	}

	md := s.metadata
	if md.Title != "" {
		m["xesam:title"] = dbus.MakeVariant(md.Title)
	}
	if md.Artist != "" {
		m["xesam:artist"] = dbus.MakeVariant([]string{md.Artist})
	}
	if md.Album != "" {
		m["xesam:album"] = dbus.MakeVariant(md.Album)
	}
	if md.Year != "" {
		m["xesam:contentCreated"] = dbus.MakeVariant(md.Year)
	}
	if md.TrackNumber > 0 {
		m["xesam:trackNumber"] = dbus.MakeVariant(int32(md.TrackNumber))
	}
	if md.Duration > 0 {
		m["mpris:length"] = dbus.MakeVariant(md.Duration.Microseconds())
	}
	if md.ArtPath != "" {
		m["mpris:artUrl"] = dbus.MakeVariant("file://" + md.ArtPath)
	}

	return m
}

func (s *MPRISSession) emitPropertiesChanged(props map[string]dbus.Variant) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Emit(
		dbus.ObjectPath(mprisObjectPath),
		propertiesInterface+".PropertiesChanged",
		mprisPlayerInterface,
		props,
		[]string{},
	)
}
