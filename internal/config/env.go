package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Environment variables read by the daemon and the client
const (
	EnvSocket       = "AMPD_SOCKET"
	EnvConfigDir    = "AMPD_CONFIG_DIR"
	EnvMusicDir     = "AMPD_MUSIC_DIR"
	EnvVolume       = "AMPD_VOLUME"
	EnvPollInterval = "AMPD_POLL_INTERVAL"
	EnvPlugins      = "AMPD_PLUGINS"
)

// Env holds the locations that can be set from the environment
type Env struct {
	SocketPath string
	ConfigDir  string
	CacheDir   string
}

// LoadEnv loads an optional .env file and resolves paths, falling back to
// the per-user defaults
func LoadEnv() Env {
	// A missing .env is fine
	_ = godotenv.Load()

	env := Env{
		SocketPath: os.Getenv(EnvSocket),
		ConfigDir:  os.Getenv(EnvConfigDir),
		CacheDir:   DefaultCacheDir(),
	}
	if env.SocketPath == "" {
		env.SocketPath = DefaultSocketPath()
	}
	if env.ConfigDir == "" {
		env.ConfigDir = DefaultConfigDir()
	}
	return env
}

// ApplyEnv overlays environment overrides onto cfg. Bad values are logged
// and ignored.
func ApplyEnv(cfg *Config) {
	if dir := os.Getenv(EnvMusicDir); dir != "" {
		cfg.MusicDir = dir
	}

	if raw := os.Getenv(EnvVolume); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 100 {
			log.Printf("[CONFIG] Warning: ignoring %s=%q, want 0-100", EnvVolume, raw)
		} else {
			cfg.Audio.DefaultVolume = v
		}
	}

	if raw := os.Getenv(EnvPollInterval); raw != "" {
		d := parseDurationOrDefault(raw, cfg.PollInterval())
		if d > 0 {
			cfg.Timing.PollIntervalMs = int(d.Milliseconds())
		}
	}

	if raw, ok := os.LookupEnv(EnvPlugins); ok {
		names := lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		})
		cfg.Plugins.Enabled = lo.Compact(names)
	}
}

func parseDurationOrDefault(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("[CONFIG] Warning: could not parse duration %q, using %v: %v", s, defaultValue, err)
		return defaultValue
	}
	return d
}

// DefaultSocketPath returns the per-user socket path
func DefaultSocketPath() string {
	return fmt.Sprintf("/tmp/ampd-%d.sock", os.Getuid())
}

// DefaultConfigDir returns ~/.config/ampd
func DefaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ampd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ampd")
	}
	return filepath.Join(home, ".config", "ampd")
}

// DefaultCacheDir returns $XDG_CACHE_HOME/ampd
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ampd")
	}
	return filepath.Join(os.TempDir(), "ampd-cache")
}
