package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/austinkregel/local-media/ampd/internal/config"
)

func TestRunServeReturnsWhenSocketUnavailable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvPlugins, "")
	t.Setenv(config.EnvMusicDir, "")
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	params := &ServeParams{
		Socket:    filepath.Join(dir, "missing", "sub", "ampd.sock"),
		ConfigDir: filepath.Join(dir, "config"),
		NullAudio: true,
	}

	done := make(chan error, 1)
	go func() {
		done <- runServe(context.Background(), params)
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected an error for an unusable socket path")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServe kept running after the IPC server failed to start")
	}
}
