package plugin

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/austinkregel/local-media/ampd/internal/media"
	"github.com/austinkregel/local-media/ampd/internal/queue"
	"github.com/austinkregel/local-media/ampd/internal/transport"
)

// fakeControls records calls and serves a fixed status
type fakeControls struct {
	mu     sync.Mutex
	calls  []string
	seek   int64
	loop   queue.LoopMode
	volume int
	status transport.Status
}

func (f *fakeControls) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeControls) Play(context.Context) error      { return f.record("play") }
func (f *fakeControls) Pause(context.Context) error     { return f.record("pause") }
func (f *fakeControls) PlayPause(context.Context) error { return f.record("playPause") }
func (f *fakeControls) Stop(context.Context) error      { return f.record("stop") }
func (f *fakeControls) Next(context.Context) error      { return f.record("next") }
func (f *fakeControls) Previous(context.Context) error  { return f.record("prev") }

func (f *fakeControls) Seek(_ context.Context, ms int64) error {
	f.seek = ms
	return f.record("seek")
}

func (f *fakeControls) SetShuffle(context.Context, bool) error { return f.record("shuffle") }

func (f *fakeControls) SetLoopMode(_ context.Context, m queue.LoopMode) error {
	f.loop = m
	return f.record("loop")
}

func (f *fakeControls) SetVolume(_ context.Context, level int) error {
	f.volume = level
	return f.record("volume")
}

func (f *fakeControls) Status(context.Context) (transport.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, nil
}

// fakeSession records what the plugin mirrors into it
type fakeSession struct {
	mu       sync.Mutex
	handler  media.CommandHandler
	metadata media.Metadata
	state    media.PlaybackState
	loop     media.LoopStatus
	shuffle  bool
	volume   float64
	seeks    int
	closed   bool
}

func (s *fakeSession) UpdateMetadata(md media.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = md
	return nil
}

func (s *fakeSession) UpdatePlaybackState(state media.PlaybackState, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

func (s *fakeSession) UpdatePosition(time.Duration) {}

func (s *fakeSession) Seeked(time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks++
	return nil
}

func (s *fakeSession) UpdateShuffle(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle = enabled
	return nil
}

func (s *fakeSession) UpdateLoopStatus(status media.LoopStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = status
	return nil
}

func (s *fakeSession) UpdateVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	return nil
}

func (s *fakeSession) SetCommandHandler(h media.CommandHandler) { s.handler = h }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func testContext(controls Controls, hub *transport.Hub, cacheDir string) *Context {
	return &Context{
		Controls:  controls,
		Subscribe: hub.Subscribe,
		Logger:    log.New(io.Discard, "", 0),
		CacheDir:  cacheDir,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

type stubPlugin struct {
	name string
	err  error
}

func (p stubPlugin) Name() string            { return p.name }
func (p stubPlugin) Register(*Context) error { return p.err }

func TestRegistryStart(t *testing.T) {
	r := &Registry{factories: map[string]Factory{}}
	r.Add("good", func() Plugin { return stubPlugin{name: "good"} })
	r.Add("bad", func() Plugin { return stubPlugin{name: "bad", err: errors.New("nope")} })

	started := r.Start([]string{"good", "bad", "missing", "good"}, &fakeControls{}, transport.NewHub(), t.TempDir())
	if len(started) != 1 || started[0] != "good" {
		t.Errorf("Expected only good to start, got %v", started)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestRegistryBuiltins(t *testing.T) {
	names := NewRegistry().Names()
	want := []string{MediaSessionName, NotifyName, NowPlayingName}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, names)
	}
}

func TestRegistryCloseEndsSubscriptions(t *testing.T) {
	hub := transport.NewHub()
	r := &Registry{factories: map[string]Factory{}}
	r.Add(NowPlayingName, func() Plugin { return NewNowPlaying() })

	r.Start([]string{NowPlayingName}, &fakeControls{}, hub, t.TempDir())
	if hub.Len() != 1 {
		t.Fatalf("Expected one subscriber, got %d", hub.Len())
	}
	r.Close()
	if hub.Len() != 0 {
		t.Errorf("Expected subscribers to be removed, got %d", hub.Len())
	}
}

// lateSubscriber keeps its context and subscribes after Register returns
type lateSubscriber struct {
	ctx *Context
}

func (p *lateSubscriber) Name() string { return "late" }
func (p *lateSubscriber) Register(c *Context) error {
	p.ctx = c
	return nil
}

func TestRegistrySubscribeAfterRegister(t *testing.T) {
	hub := transport.NewHub()
	late := &lateSubscriber{}
	r := &Registry{factories: map[string]Factory{}}
	r.Add("late", func() Plugin { return late })

	r.Start([]string{"late"}, &fakeControls{}, hub, t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			late.ctx.Subscribe()
		}()
	}
	r.Close()
	wg.Wait()

	if hub.Len() != 0 {
		t.Errorf("Expected every subscription closed, got %d", hub.Len())
	}

	sub := late.ctx.Subscribe()
	if _, ok := <-sub.C; ok {
		t.Error("Expected a closed subscription after Close")
	}
	if hub.Len() != 0 {
		t.Errorf("Expected no subscribers after Close, got %d", hub.Len())
	}
}

func TestMediaSessionCommands(t *testing.T) {
	sess := &fakeSession{}
	controls := &fakeControls{}
	m := &MediaSession{newSession: func() (media.Session, error) { return sess, nil }, volume: -1}

	if err := m.Register(testContext(controls, transport.NewHub(), "")); err != nil {
		t.Fatal(err)
	}

	h := sess.handler
	h.OnCommand(media.CmdPlayPause, nil)
	h.OnCommand(media.CmdSeek, 90*time.Second)
	h.OnCommand(media.CmdSetLoopStatus, media.LoopTrack)
	h.OnCommand(media.CmdSetVolume, 0.25)

	if controls.seek != 90_000 {
		t.Errorf("Expected seek to 90000ms, got %d", controls.seek)
	}
	if controls.loop != queue.LoopOne {
		t.Errorf("Expected LoopOne, got %v", controls.loop)
	}
	if controls.volume != 25 {
		t.Errorf("Expected volume 25, got %d", controls.volume)
	}
	if err := h.OnCommand(media.CmdSeek, "soon"); err == nil {
		t.Error("Expected error for bad seek payload")
	}
}

func TestMediaSessionMirrorsEvents(t *testing.T) {
	sess := &fakeSession{}
	hub := transport.NewHub()
	m := &MediaSession{newSession: func() (media.Session, error) { return sess, nil }, volume: -1}

	if err := m.Register(testContext(&fakeControls{}, hub, t.TempDir())); err != nil {
		t.Fatal(err)
	}

	hub.Publish(transport.TrackChanged{Index: 2, Track: transport.TrackInfo{Path: "/music/a.mp3", Title: "A", Artist: "B"}})
	hub.Publish(transport.DurationChanged{DurationMs: 3000})
	hub.Publish(transport.ModeChanged{Loop: queue.LoopAll, Shuffle: true})
	hub.Publish(transport.StateChanged{State: transport.StatePlaying})
	hub.Publish(transport.PositionChanged{PositionMs: 60_000})

	waitFor(t, func() bool {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return sess.seeks == 1
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.metadata.TrackIndex != 2 || sess.metadata.Title != "A" || sess.metadata.Duration != 3*time.Second {
		t.Errorf("Unexpected metadata %+v", sess.metadata)
	}
	if sess.loop != media.LoopPlaylist || !sess.shuffle {
		t.Errorf("Expected Playlist/shuffle, got %s/%v", sess.loop, sess.shuffle)
	}
	if sess.state != media.StatePlaying {
		t.Errorf("Expected playing, got %v", sess.state)
	}
}

func TestMediaSessionRegisterFails(t *testing.T) {
	m := &MediaSession{newSession: func() (media.Session, error) { return nil, errors.New("no bus") }}
	if err := m.Register(testContext(&fakeControls{}, transport.NewHub(), "")); err == nil {
		t.Error("Expected register error")
	}
}

func TestLoopConversionRoundTrip(t *testing.T) {
	for _, mode := range []queue.LoopMode{queue.LoopOff, queue.LoopAll, queue.LoopOne} {
		if got := loopModeFor(loopStatusFor(mode)); got != mode {
			t.Errorf("Round trip of %v gave %v", mode, got)
		}
	}
}

func TestNotifyRender(t *testing.T) {
	n := &Notify{cacheDir: t.TempDir()}

	title, msg, _, ok := n.render(transport.TrackChanged{Track: transport.TrackInfo{
		Path: "/music/a.mp3", Title: "Song", Artist: "Band", Album: "Record",
	}})
	if !ok || title != "Song" || msg != "Band\nRecord" {
		t.Errorf("Unexpected notification %q %q", title, msg)
	}

	_, msg, _, ok = n.render(transport.TrackFailed{Path: "/music/b.mp3", Error: "bad header"})
	if !ok || msg != "b.mp3: bad header" {
		t.Errorf("Unexpected failure message %q", msg)
	}

	if _, _, _, ok := n.render(transport.PositionChanged{}); ok {
		t.Error("Position changes should not notify")
	}
}

func TestNotifyDelivers(t *testing.T) {
	var mu sync.Mutex
	var titles []string
	n := &Notify{notify: func(title, message string, icon any) error {
		mu.Lock()
		titles = append(titles, title)
		mu.Unlock()
		return nil
	}}

	hub := transport.NewHub()
	n.Register(testContext(&fakeControls{}, hub, t.TempDir()))
	hub.Publish(transport.TrackChanged{Track: transport.TrackInfo{Path: "/music/a.mp3", Title: "Song"}})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(titles) == 1 && titles[0] == "Song"
	})
}

func TestNowPlayingWritesStatusLine(t *testing.T) {
	dir := t.TempDir()
	hub := transport.NewHub()
	controls := &fakeControls{}

	n := NewNowPlaying()
	if err := n.Register(testContext(controls, hub, dir)); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "nowplaying.txt")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "Select a song to begin" {
		t.Errorf("Expected idle line, got %q", data)
	}

	controls.mu.Lock()
	controls.status = transport.Status{
		Size:  1,
		Track: &transport.TrackInfo{Title: "Song", Artist: "Band", Album: "Record"},
	}
	controls.mu.Unlock()
	hub.Publish(transport.TrackChanged{})

	waitFor(t, func() bool {
		data, _ := os.ReadFile(path)
		return strings.HasPrefix(string(data), "Now Playing: Song - Band")
	})
}

func TestNowPlayingNeedsCacheDir(t *testing.T) {
	if err := NewNowPlaying().Register(testContext(&fakeControls{}, transport.NewHub(), "")); err == nil {
		t.Error("Expected error without cache dir")
	}
}
