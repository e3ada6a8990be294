package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadCreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ampd")
	m := NewManager(dir)

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	info, err := os.Stat(m.GetPath())
	if err != nil {
		t.Fatalf("Expected config file to be written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	cfg := m.Get()
	if cfg.Audio.DefaultVolume != 50 || !cfg.Behavior.WatchFolder || cfg.Behavior.RememberQueue {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.PollInterval() != 500*time.Millisecond || cfg.RefreshInterval() != time.Second {
		t.Errorf("Unexpected intervals %v %v", cfg.PollInterval(), cfg.RefreshInterval())
	}
}

func TestLoadMergesWithDefaults(t *testing.T) {
	dir := t.TempDir()
	data := `{"musicDir": "/music", "audio": {"defaultVolume": 250}, "timing": {"pollIntervalMs": 250}}`
	os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0600)

	m := NewManager(dir)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	cfg := m.Get()
	if cfg.MusicDir != "/music" {
		t.Errorf("Expected musicDir /music, got %q", cfg.MusicDir)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Missing fields should keep defaults, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.DefaultVolume != 50 {
		t.Errorf("Out of range volume should fall back to 50, got %d", cfg.Audio.DefaultVolume)
	}
	if cfg.Timing.PollIntervalMs != 250 {
		t.Errorf("Expected poll 250, got %d", cfg.Timing.PollIntervalMs)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0600)

	if err := NewManager(dir).Load(); err == nil {
		t.Error("Expected parse error")
	}
}

func TestUpdateSaves(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	m.Load()

	cfg := m.Get()
	cfg.Behavior.RememberQueue = true
	if err := m.Update(cfg); err != nil {
		t.Fatal(err)
	}

	reloaded := NewManager(dir)
	reloaded.Load()
	if !reloaded.Get().Behavior.RememberQueue {
		t.Error("Expected rememberQueue to persist")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvMusicDir, "/srv/music")
	t.Setenv(EnvVolume, "80")
	t.Setenv(EnvPollInterval, "250ms")
	t.Setenv(EnvPlugins, "notify, nowplaying,,")

	cfg := DefaultConfig()
	ApplyEnv(cfg)

	if cfg.MusicDir != "/srv/music" {
		t.Errorf("Expected music dir override, got %q", cfg.MusicDir)
	}
	if cfg.Audio.DefaultVolume != 80 {
		t.Errorf("Expected volume 80, got %d", cfg.Audio.DefaultVolume)
	}
	if cfg.Timing.PollIntervalMs != 250 {
		t.Errorf("Expected poll 250ms, got %d", cfg.Timing.PollIntervalMs)
	}
	if strings.Join(cfg.Plugins.Enabled, ",") != "notify,nowplaying" {
		t.Errorf("Unexpected plugins %v", cfg.Plugins.Enabled)
	}
}

func TestApplyEnvIgnoresBadValues(t *testing.T) {
	t.Setenv(EnvVolume, "loud")
	t.Setenv(EnvPollInterval, "often")

	cfg := DefaultConfig()
	ApplyEnv(cfg)

	if cfg.Audio.DefaultVolume != 50 {
		t.Errorf("Bad volume should be ignored, got %d", cfg.Audio.DefaultVolume)
	}
	if cfg.Timing.PollIntervalMs != 500 {
		t.Errorf("Bad interval should be ignored, got %d", cfg.Timing.PollIntervalMs)
	}
}

func TestApplyEnvEmptyPluginsDisablesAll(t *testing.T) {
	t.Setenv(EnvPlugins, "")

	cfg := DefaultConfig()
	ApplyEnv(cfg)
	if len(cfg.Plugins.Enabled) != 0 {
		t.Errorf("Expected no plugins, got %v", cfg.Plugins.Enabled)
	}
}

func TestLoadEnvPaths(t *testing.T) {
	t.Setenv(EnvSocket, "/run/ampd.sock")
	t.Setenv(EnvConfigDir, "")

	env := LoadEnv()
	if env.SocketPath != "/run/ampd.sock" {
		t.Errorf("Expected socket override, got %q", env.SocketPath)
	}
	if env.ConfigDir != DefaultConfigDir() {
		t.Errorf("Expected default config dir, got %q", env.ConfigDir)
	}
	if !strings.HasSuffix(env.CacheDir, "ampd") && !strings.HasSuffix(env.CacheDir, "ampd-cache") {
		t.Errorf("Unexpected cache dir %q", env.CacheDir)
	}
}
