package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/austinkregel/local-media/ampd/internal/library"
	"github.com/austinkregel/local-media/ampd/internal/metadata"
	"github.com/austinkregel/local-media/ampd/internal/queue"
)

var (
	// ErrSuperseded is returned when a newer open request replaced this one
	ErrSuperseded = errors.New("superseded by a newer request")

	// ErrUnsupportedFile is returned for files without a playable extension
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrStopped is returned when the controller loop is not running
	ErrStopped = errors.New("controller stopped")
)

const (
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultRefreshInterval = 1000 * time.Millisecond
)

// QueueBuilder orders a folder into a queue
type QueueBuilder interface {
	Build(ctx context.Context, dir string) ([]string, error)
}

// FolderWatcher follows the open folder for changes
type FolderWatcher interface {
	Watch(dir string) error
}

// Options configures a Controller
type Options struct {
	PollInterval    time.Duration
	RefreshInterval time.Duration

	// Persist, if set, receives the queue state whenever the current track changes
	Persist func(queue.PersistentState)
}

// Controller serializes every command, engine notification and timer tick
// onto one goroutine that owns the Transport.
type Controller struct {
	transport *Transport
	engine    Engine
	builder   QueueBuilder
	watcher   FolderWatcher
	hub       *Hub
	persist   func(queue.PersistentState)

	cmds    chan func()
	stopped chan struct{}
	openSeq atomic.Uint64

	pollEvery    time.Duration
	refreshEvery time.Duration
}

// NewController creates a controller. Call Run to start processing.
func NewController(engine Engine, reader metadata.Reader, builder QueueBuilder, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}

	c := &Controller{
		engine:       engine,
		builder:      builder,
		hub:          NewHub(),
		persist:      opts.Persist,
		cmds:         make(chan func()),
		stopped:      make(chan struct{}),
		pollEvery:    opts.PollInterval,
		refreshEvery: opts.RefreshInterval,
	}
	c.transport = New(engine, reader, c.publish)
	return c
}

// SetWatcher attaches a folder watcher. Call it before the first open request.
func (c *Controller) SetWatcher(w FolderWatcher) {
	c.watcher = w
}

// Subscribe returns a new event subscription
func (c *Controller) Subscribe() *Subscription {
	return c.hub.Subscribe()
}

// Hub returns the event hub
func (c *Controller) Hub() *Hub {
	return c.hub
}

func (c *Controller) publish(ev Event) {
	if _, ok := ev.(TrackChanged); ok && c.persist != nil {
		c.persist(c.transport.Snapshot())
	}
	c.hub.Publish(ev)
}

// Run processes commands until ctx is cancelled
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)

	poll := time.NewTicker(c.pollEvery)
	defer poll.Stop()
	refresh := time.NewTicker(c.refreshEvery)
	defer refresh.Stop()

	ended := c.engine.Ended()

	log.Printf("[TRANSPORT] Loop started (poll %v, refresh %v)", c.pollEvery, c.refreshEvery)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[TRANSPORT] Loop stopped")
			return nil
		case fn := <-c.cmds:
			fn()
		case session, ok := <-ended:
			if !ok {
				ended = nil
				continue
			}
			c.transport.OnMediaEnded(session)
		case <-poll.C:
			c.transport.Poll()
		case <-refresh.C:
			c.hub.Publish(StatusTick{Status: c.transport.Status()})
		}
	}
}

// do runs fn on the loop goroutine and waits for its result
func (c *Controller) do(ctx context.Context, fn func(t *Transport) error) error {
	done := make(chan error, 1)
	select {
	case c.cmds <- func() { done <- fn(c.transport) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OpenFolder builds a queue from dir and loads its first track without
// playing. The folder is scanned on the caller's goroutine; if another open
// request arrives meanwhile, this one is dropped.
func (c *Controller) OpenFolder(ctx context.Context, dir string) error {
	seq := c.openSeq.Add(1)

	paths, err := c.builder.Build(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to open folder: %w", err)
	}

	return c.do(ctx, func(t *Transport) error {
		if c.openSeq.Load() != seq {
			log.Printf("[TRANSPORT] Dropping stale open of %s", dir)
			return ErrSuperseded
		}
		t.SetFolder(dir)
		if err := t.LoadQueue(paths); err != nil {
			return err
		}
		if c.persist != nil && len(paths) == 0 {
			c.persist(t.Snapshot())
		}
		if c.watcher != nil {
			if err := c.watcher.Watch(dir); err != nil {
				log.Printf("[TRANSPORT] Folder watch failed: %v", err)
			}
		}
		return nil
	})
}

// OpenFile replaces the queue with a single file and plays it
func (c *Controller) OpenFile(ctx context.Context, path string) error {
	if err := checkPlayable(path); err != nil {
		return err
	}
	seq := c.openSeq.Add(1)

	return c.do(ctx, func(t *Transport) error {
		if c.openSeq.Load() != seq {
			return ErrSuperseded
		}
		t.SetFolder("")
		if err := t.LoadSingle(path); err != nil {
			return err
		}
		return t.Play()
	})
}

// DoubleClickFile plays path, appending it to the queue if needed
func (c *Controller) DoubleClickFile(ctx context.Context, path string) error {
	if err := checkPlayable(path); err != nil {
		return err
	}
	return c.do(ctx, func(t *Transport) error {
		return t.JumpTo(path)
	})
}

// Restore reloads a saved queue without playing
func (c *Controller) Restore(ctx context.Context, state queue.PersistentState) error {
	return c.do(ctx, func(t *Transport) error {
		t.SetFolder(state.Folder)
		if len(state.Paths) == 0 {
			return nil
		}
		if err := t.LoadQueueAt(state.Paths, state.Index); err != nil {
			return err
		}
		if c.watcher != nil && state.Folder != "" {
			if err := c.watcher.Watch(state.Folder); err != nil {
				log.Printf("[TRANSPORT] Folder watch failed: %v", err)
			}
		}
		return nil
	})
}

func (c *Controller) Play(ctx context.Context) error {
	return c.do(ctx, (*Transport).Play)
}

func (c *Controller) Pause(ctx context.Context) error {
	return c.do(ctx, (*Transport).Pause)
}

func (c *Controller) PlayPause(ctx context.Context) error {
	return c.do(ctx, (*Transport).PlayPause)
}

func (c *Controller) Stop(ctx context.Context) error {
	return c.do(ctx, (*Transport).Stop)
}

func (c *Controller) Next(ctx context.Context) error {
	return c.do(ctx, (*Transport).Next)
}

func (c *Controller) Previous(ctx context.Context) error {
	return c.do(ctx, (*Transport).Previous)
}

func (c *Controller) ToggleShuffle(ctx context.Context) error {
	return c.do(ctx, func(t *Transport) error {
		t.ToggleShuffle()
		return nil
	})
}

func (c *Controller) SetShuffle(ctx context.Context, enabled bool) error {
	return c.do(ctx, func(t *Transport) error {
		t.SetShuffle(enabled)
		return nil
	})
}

func (c *Controller) CycleLoopMode(ctx context.Context) error {
	return c.do(ctx, func(t *Transport) error {
		t.CycleLoopMode()
		return nil
	})
}

func (c *Controller) SetLoopMode(ctx context.Context, m queue.LoopMode) error {
	return c.do(ctx, func(t *Transport) error {
		t.SetLoopMode(m)
		return nil
	})
}

func (c *Controller) Seek(ctx context.Context, positionMs int64) error {
	return c.do(ctx, func(t *Transport) error {
		return t.Seek(positionMs)
	})
}

func (c *Controller) SetVolume(ctx context.Context, level int) error {
	return c.do(ctx, func(t *Transport) error {
		return t.SetVolume(level)
	})
}

// Status returns a snapshot taken on the loop goroutine
func (c *Controller) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, func(t *Transport) error {
		st = t.Status()
		return nil
	})
	return st, err
}

// Queue returns the queued tracks
func (c *Controller) Queue(ctx context.Context) ([]TrackInfo, error) {
	var items []TrackInfo
	err := c.do(ctx, func(t *Transport) error {
		items = t.Queue()
		return nil
	})
	return items, err
}

// Snapshot returns the persistable queue state
func (c *Controller) Snapshot(ctx context.Context) (queue.PersistentState, error) {
	var state queue.PersistentState
	err := c.do(ctx, func(t *Transport) error {
		state = t.Snapshot()
		return nil
	})
	return state, err
}

// NotifyFolderChanged tells subscribers the open folder's audio content changed
func (c *Controller) NotifyFolderChanged(dir string) {
	log.Printf("[TRANSPORT] Folder changed: %s", dir)
	c.hub.Publish(FolderChanged{Dir: dir})
}

func checkPlayable(path string) error {
	if !library.IsSupported(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrUnsupportedFile, path)
	}
	return nil
}
