//go:build linux

package media

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

func TestMPRISMetadataMap(t *testing.T) {
	s := newMPRISSession()
	if err := s.UpdateMetadata(Metadata{
		TrackIndex:  3,
		Title:       "Song",
		Artist:      "Band",
		Album:       "Record",
		Year:        "1999",
		TrackNumber: 4,
		Duration:    90 * time.Second,
		ArtPath:     "/tmp/art.jpg",
	}); err != nil {
		t.Fatal(err)
	}

	v, derr := s.Get(mprisPlayerInterface, "Metadata")
	if derr != nil {
		t.Fatal(derr)
	}
	m := v.Value().(map[string]dbus.Variant)

	if id := m["mpris:trackid"].Value().(dbus.ObjectPath); id != "/org/ampd/track/3" {
		t.Errorf("Unexpected track id %s", id)
	}
	if m["xesam:title"].Value().(string) != "Song" {
		t.Error("Missing title")
	}
	if m["mpris:length"].Value().(int64) != 90_000_000 {
		t.Error("Length should be in microseconds")
	}
	if m["mpris:artUrl"].Value().(string) != "file:///tmp/art.jpg" {
		t.Error("Art URL should be a file URI")
	}
}

func TestMPRISDispatch(t *testing.T) {
	s := newMPRISSession()

	var cmds []Command
	var last interface{}
	s.SetCommandHandler(CommandHandlerFunc(func(cmd Command, data interface{}) error {
		cmds = append(cmds, cmd)
		last = data
		return nil
	}))

	s.Play()
	s.PlayPause()
	s.Next()

	if derr := s.Set(mprisPlayerInterface, "LoopStatus", dbus.MakeVariant("Playlist")); derr != nil {
		t.Fatal(derr)
	}
	if last != LoopPlaylist {
		t.Errorf("Expected LoopPlaylist, got %v", last)
	}
	if derr := s.Set(mprisPlayerInterface, "LoopStatus", dbus.MakeVariant("Forever")); derr == nil {
		t.Error("Expected error for invalid loop status")
	}

	s.UpdatePosition(10 * time.Second)
	s.Seek(-15_000_000)
	if last != time.Duration(0) {
		t.Errorf("Relative seek should clamp at zero, got %v", last)
	}

	want := []Command{CmdPlay, CmdPlayPause, CmdNext, CmdSetLoopStatus, CmdSeek}
	if len(cmds) != len(want) {
		t.Fatalf("Expected %v, got %v", want, cmds)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("Command %d: expected %v, got %v", i, want[i], cmds[i])
		}
	}
}

func TestMPRISSetPositionIgnoresStaleTrack(t *testing.T) {
	s := newMPRISSession()
	s.UpdateMetadata(Metadata{TrackIndex: 1})

	called := false
	s.SetCommandHandler(CommandHandlerFunc(func(cmd Command, data interface{}) error {
		called = true
		return nil
	}))

	s.SetPosition("/org/ampd/track/0", 1000)
	if called {
		t.Error("SetPosition for an old track should be ignored")
	}
	s.SetPosition("/org/ampd/track/1", 1000)
	if !called {
		t.Error("SetPosition for the current track should seek")
	}
}
