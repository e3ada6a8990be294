// Package plugin hosts optional integrations that react to playback
// events and drive the transport through a narrow set of controls.
package plugin

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/samber/lo"

	"github.com/austinkregel/local-media/ampd/internal/queue"
	"github.com/austinkregel/local-media/ampd/internal/transport"
)

// Controls is the part of the transport a plugin may drive
type Controls interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayPause(ctx context.Context) error
	Stop(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	SetShuffle(ctx context.Context, enabled bool) error
	SetLoopMode(ctx context.Context, m queue.LoopMode) error
	SetVolume(ctx context.Context, level int) error
	Status(ctx context.Context) (transport.Status, error)
}

// Context is what a plugin is granted at registration
type Context struct {
	Controls  Controls
	Subscribe func() *transport.Subscription
	Logger    *log.Logger
	CacheDir  string
}

// Plugin is an optional integration
type Plugin interface {
	Name() string
	Register(c *Context) error
}

// Factory creates a fresh plugin instance
type Factory func() Plugin

// Registry knows the available plugins and tracks the running ones
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	order     []string
	running   []Plugin

	// Plugins may subscribe at any time, including after Register
	subMu  sync.Mutex
	subs   []*transport.Subscription
	closed bool
}

// NewRegistry creates a registry holding the built-in plugins
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Add(MediaSessionName, func() Plugin { return NewMediaSession() })
	r.Add(NotifyName, func() Plugin { return NewNotify() })
	r.Add(NowPlayingName, func() Plugin { return NewNowPlaying() })
	return r
}

// Add makes a plugin available under name
func (r *Registry) Add(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; !ok {
		r.order = append(r.order, name)
	}
	r.factories[name] = f
}

// Names lists the available plugins in registration order
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Start registers each enabled plugin. Unknown names and failed
// registrations are logged and skipped. Returns the started names.
func (r *Registry) Start(enabled []string, controls Controls, hub *transport.Hub, cacheDir string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var started []string
	for _, name := range lo.Uniq(enabled) {
		factory, ok := r.factories[name]
		if !ok {
			log.Printf("[PLUGIN] Unknown plugin %q, skipping", name)
			continue
		}

		p := factory()
		c := &Context{
			Controls: controls,
			Subscribe: func() *transport.Subscription {
				return r.subscribe(hub)
			},
			Logger:   log.New(os.Stderr, fmt.Sprintf("[PLUGIN:%s] ", name), log.LstdFlags),
			CacheDir: cacheDir,
		}

		if err := p.Register(c); err != nil {
			log.Printf("[PLUGIN] Failed to register %s: %v", name, err)
			continue
		}
		r.running = append(r.running, p)
		started = append(started, name)
		log.Printf("[PLUGIN] Started %s", name)
	}
	return started
}

// subscribe tracks a plugin subscription. Once the registry is closed new
// subscriptions come back already closed.
func (r *Registry) subscribe(hub *transport.Hub) *transport.Subscription {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	sub := hub.Subscribe()
	if r.closed {
		sub.Close()
		return sub
	}
	r.subs = append(r.subs, sub)
	return sub
}

// Close detaches the running plugins from the event stream and releases
// those holding resources
func (r *Registry) Close() error {
	r.subMu.Lock()
	for _, sub := range r.subs {
		sub.Close()
	}
	r.subs = nil
	r.closed = true
	r.subMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, p := range r.running {
		closer, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			log.Printf("[PLUGIN] Failed to close %s: %v", p.Name(), err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	r.running = nil
	return firstErr
}
