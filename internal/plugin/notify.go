package plugin

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/gen2brain/beeep"

	"github.com/austinkregel/local-media/ampd/internal/metadata"
	"github.com/austinkregel/local-media/ampd/internal/transport"
)

const NotifyName = "notify"

// Notify shows a desktop notification when the track changes or fails
type Notify struct {
	notify   func(title, message string, icon any) error
	cacheDir string
	logger   *log.Logger
}

// NewNotify creates the plugin backed by beeep
func NewNotify() *Notify {
	beeep.AppName = "ampd"
	return &Notify{notify: beeep.Notify}
}

func (n *Notify) Name() string { return NotifyName }

func (n *Notify) Register(c *Context) error {
	n.cacheDir = c.CacheDir
	n.logger = c.Logger
	go n.run(c.Subscribe())
	return nil
}

func (n *Notify) run(sub *transport.Subscription) {
	for ev := range sub.C {
		title, message, icon, ok := n.render(ev)
		if !ok {
			continue
		}
		if err := n.notify(title, message, icon); err != nil {
			n.logger.Printf("Notification failed: %v", err)
		}
	}
}

// render builds the notification for ev, if it warrants one
func (n *Notify) render(ev transport.Event) (title, message, icon string, ok bool) {
	switch ev := ev.(type) {
	case transport.TrackChanged:
		var parts []string
		if ev.Track.Artist != "" {
			parts = append(parts, ev.Track.Artist)
		}
		if ev.Track.Album != "" {
			parts = append(parts, ev.Track.Album)
		}
		icon, err := metadata.ArtworkPath(n.cacheDir, ev.Track.Path, ev.Track.Metadata())
		if err != nil {
			icon = ""
		}
		return ev.Track.Title, strings.Join(parts, "\n"), icon, true

	case transport.TrackFailed:
		return "Cannot play track", fmt.Sprintf("%s: %s", filepath.Base(ev.Path), ev.Error), "", true
	}
	return "", "", "", false
}
