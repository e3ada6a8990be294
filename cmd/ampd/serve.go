package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"

	"github.com/austinkregel/local-media/ampd/internal/audio"
	"github.com/austinkregel/local-media/ampd/internal/config"
	"github.com/austinkregel/local-media/ampd/internal/ipc"
	"github.com/austinkregel/local-media/ampd/internal/library"
	"github.com/austinkregel/local-media/ampd/internal/metadata"
	"github.com/austinkregel/local-media/ampd/internal/plugin"
	"github.com/austinkregel/local-media/ampd/internal/queue"
	"github.com/austinkregel/local-media/ampd/internal/transport"
)

type ServeParams struct {
	Socket    string `optional:"true" help:"IPC socket path (default: $AMPD_SOCKET or /tmp/ampd-<uid>.sock)"`
	ConfigDir string `optional:"true" help:"Configuration directory (default: $AMPD_CONFIG_DIR or ~/.config/ampd)"`
	MusicDir  string `short:"d" optional:"true" help:"Folder to open on start"`
	NullAudio bool   `optional:"true" help:"Play through a silent clock instead of the audio device"`
	Verbose   bool   `short:"v" optional:"true" help:"Enable verbose logging"`
}

func serveCmd() *cobra.Command {
	return boa.CmdT[ServeParams]{
		Use:         "serve",
		Short:       "Run the player daemon",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *ServeParams, cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := runServe(ctx, params); err != nil {
				log.Printf("Fatal error: %v", err)
				stop()
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// engine is a transport engine that holds resources
type engine interface {
	transport.Engine
	Close() error
}

func newEngine(cfg *config.Config, decoder audio.Decoder, null bool) (engine, error) {
	if null {
		log.Printf("[PLAYER] Using silent engine")
		return audio.NewNullEngine(decoder), nil
	}

	output, err := audio.NewOtoOutputWithConfig(cfg.Audio.SampleRate, 2, cfg.Audio.BufferSizeMs)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio output: %w", err)
	}
	log.Printf("[PLAYER] Audio output ready (%d Hz, %d ms buffer)", cfg.Audio.SampleRate, cfg.Audio.BufferSizeMs)
	return audio.NewPlayer(output, decoder), nil
}

func runServe(ctx context.Context, params *ServeParams) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	env := config.LoadEnv()
	if params.Socket != "" {
		env.SocketPath = params.Socket
	}
	if params.ConfigDir != "" {
		env.ConfigDir = params.ConfigDir
	}

	if params.Verbose {
		log.Printf("ampd version %s starting...", appVersion())
		log.Printf("[CONFIG] config=%s cache=%s socket=%s", env.ConfigDir, env.CacheDir, env.SocketPath)
	}

	if err := os.MkdirAll(env.ConfigDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configMgr := config.NewManager(env.ConfigDir)
	if err := configMgr.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := configMgr.Get()
	config.ApplyEnv(cfg)
	if params.MusicDir != "" {
		cfg.MusicDir = params.MusicDir
	}

	decoder := audio.NewBeepDecoder()
	eng, err := newEngine(cfg, decoder, params.NullAudio)
	if err != nil {
		log.Printf("[PLAYER] Warning: %v", err)
		log.Printf("[PLAYER] Continuing with the silent engine")
		eng, _ = newEngine(cfg, decoder, true)
	}
	defer eng.Close()

	reader := metadata.NewTagReader()
	builder := library.NewBuilder(reader)

	opts := transport.Options{
		PollInterval:    cfg.PollInterval(),
		RefreshInterval: cfg.RefreshInterval(),
	}

	var store *queue.Store
	if cfg.Behavior.RememberQueue {
		store = queue.NewStore(env.ConfigDir)
		if params.Verbose {
			log.Printf("[QUEUE] Persisting queue to %s", store.GetFilePath())
		}
		opts.Persist = func(state queue.PersistentState) {
			if err := store.Save(state); err != nil {
				log.Printf("[QUEUE] Warning: failed to save queue: %v", err)
			}
		}
	}

	controller := transport.NewController(eng, reader, builder, opts)

	if cfg.Behavior.WatchFolder {
		watcher, err := library.NewWatcher(controller.NotifyFolderChanged)
		if err != nil {
			log.Printf("[WATCH] Warning: %v", err)
		} else {
			defer watcher.Close()
			controller.SetWatcher(watcher)
			go watcher.Run(ctx)
		}
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		controller.Run(ctx)
	}()

	if err := controller.SetVolume(ctx, cfg.Audio.DefaultVolume); err != nil {
		log.Printf("[PLAYER] Warning: failed to set volume: %v", err)
	}

	restoreQueue(ctx, controller, store, cfg)

	registry := plugin.NewRegistry()
	started := registry.Start(cfg.Plugins.Enabled, controller, controller.Hub(), env.CacheDir)
	defer registry.Close()
	if len(started) > 0 {
		log.Printf("[PLUGIN] Running: %v", started)
	}

	server := ipc.NewServer(env.SocketPath, controller)
	if err := server.Start(ctx); err != nil {
		cancel()
		<-loopDone
		return fmt.Errorf("failed to start IPC server: %w", err)
	}

	<-loopDone
	log.Printf("Shutdown complete")
	return nil
}

// restoreQueue reloads the saved queue, or opens the configured music
// folder when there is nothing to restore
func restoreQueue(ctx context.Context, c *transport.Controller, store *queue.Store, cfg *config.Config) {
	restored := false
	if store != nil {
		state, err := store.Load()
		if err != nil {
			log.Printf("[QUEUE] Warning: failed to load saved queue: %v", err)
		} else if len(state.Paths) > 0 {
			if err := c.Restore(ctx, state); err != nil {
				log.Printf("[QUEUE] Warning: failed to restore queue: %v", err)
			} else {
				log.Printf("[QUEUE] Loaded saved queue: %d items, position %d", len(state.Paths), state.Index)
				restored = true
			}
		}
	}

	if !restored && cfg.MusicDir != "" {
		if err := c.OpenFolder(ctx, cfg.MusicDir); err != nil {
			log.Printf("[LIBRARY] Warning: failed to open %s: %v", cfg.MusicDir, err)
			return
		}
		restored = true
	}

	if restored && cfg.Behavior.AutoPlay {
		if err := c.Play(ctx); err != nil && !errors.Is(err, transport.ErrEmptyQueue) {
			log.Printf("[PLAYER] Warning: autoplay failed: %v", err)
		}
	}
}
