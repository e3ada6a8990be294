package plugin

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/austinkregel/local-media/ampd/internal/transport"
)

const NowPlayingName = "nowplaying"

// NowPlaying keeps a text file with the current status line, for status
// bars and stream overlays
type NowPlaying struct {
	path     string
	controls Controls
	logger   *log.Logger
}

// NewNowPlaying creates the plugin
func NewNowPlaying() *NowPlaying {
	return &NowPlaying{}
}

func (n *NowPlaying) Name() string { return NowPlayingName }

// Path returns the file being written
func (n *NowPlaying) Path() string { return n.path }

func (n *NowPlaying) Register(c *Context) error {
	if c.CacheDir == "" {
		return fmt.Errorf("nowplaying needs a cache directory")
	}
	if err := os.MkdirAll(c.CacheDir, 0700); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	n.path = filepath.Join(c.CacheDir, "nowplaying.txt")
	n.controls = c.Controls
	n.logger = c.Logger

	sub := c.Subscribe()
	if err := n.refresh(); err != nil {
		return err
	}
	go n.run(sub)
	return nil
}

func (n *NowPlaying) run(sub *transport.Subscription) {
	for ev := range sub.C {
		switch ev.Kind() {
		case transport.KindTrackChanged, transport.KindStateChanged:
			if err := n.refresh(); err != nil {
				n.logger.Printf("%v", err)
			}
		}
	}
}

func (n *NowPlaying) refresh() error {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	st, err := n.controls.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}
	return n.write(st.Line())
}

// write replaces the file atomically so readers never see a partial line
func (n *NowPlaying) write(line string) error {
	tmp := n.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(line+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write now playing: %w", err)
	}
	if err := os.Rename(tmp, n.path); err != nil {
		return fmt.Errorf("failed to write now playing: %w", err)
	}
	return nil
}
