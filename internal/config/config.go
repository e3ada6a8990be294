// Package config handles daemon configuration file management.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Config represents the daemon configuration
type Config struct {
	// MusicDir is opened at startup when set
	MusicDir string `json:"musicDir"`

	// Audio settings
	Audio AudioConfig `json:"audio"`

	// Behavior settings
	Behavior BehaviorConfig `json:"behavior"`

	// Timing of the transport loop
	Timing TimingConfig `json:"timing"`

	// Plugins to start
	Plugins PluginsConfig `json:"plugins"`
}

// AudioConfig contains audio-related settings
type AudioConfig struct {
	// SampleRate for audio output (default: 44100)
	SampleRate int `json:"sampleRate"`

	// BufferSize in milliseconds (default: 100)
	BufferSizeMs int `json:"bufferSizeMs"`

	// Volume level 0 - 100 (default: 50)
	DefaultVolume int `json:"defaultVolume"`
}

// BehaviorConfig contains behavior-related settings
type BehaviorConfig struct {
	// RememberQueue - persist queue paths and position across restarts
	RememberQueue bool `json:"rememberQueue"`

	// WatchFolder - report audio files added to or removed from the open folder
	WatchFolder bool `json:"watchFolder"`

	// AutoPlay - start playing after restoring a queue or opening MusicDir
	AutoPlay bool `json:"autoPlay"`
}

// TimingConfig contains the transport loop intervals
type TimingConfig struct {
	PollIntervalMs    int `json:"pollIntervalMs"`
	RefreshIntervalMs int `json:"refreshIntervalMs"`
}

// PluginsConfig selects the plugins to run
type PluginsConfig struct {
	Enabled []string `json:"enabled"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:    44100,
			BufferSizeMs:  100,
			DefaultVolume: 50,
		},
		Behavior: BehaviorConfig{
			RememberQueue: false,
			WatchFolder:   true,
			AutoPlay:      false,
		},
		Timing: TimingConfig{
			PollIntervalMs:    500,
			RefreshIntervalMs: 1000,
		},
		Plugins: PluginsConfig{
			Enabled: []string{"mediasession"},
		},
	}
}

// PollInterval returns the position poll interval
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Timing.PollIntervalMs) * time.Millisecond
}

// RefreshInterval returns the status refresh interval
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Timing.RefreshIntervalMs) * time.Millisecond
}

// normalize replaces out of range values with defaults
func (c *Config) normalize() {
	def := DefaultConfig()

	if c.Audio.SampleRate <= 0 {
		log.Printf("[CONFIG] Invalid sample rate %d, using %d", c.Audio.SampleRate, def.Audio.SampleRate)
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if c.Audio.BufferSizeMs <= 0 {
		c.Audio.BufferSizeMs = def.Audio.BufferSizeMs
	}
	if c.Audio.DefaultVolume < 0 || c.Audio.DefaultVolume > 100 {
		log.Printf("[CONFIG] Invalid volume %d, using %d", c.Audio.DefaultVolume, def.Audio.DefaultVolume)
		c.Audio.DefaultVolume = def.Audio.DefaultVolume
	}
	if c.Timing.PollIntervalMs <= 0 {
		c.Timing.PollIntervalMs = def.Timing.PollIntervalMs
	}
	if c.Timing.RefreshIntervalMs <= 0 {
		c.Timing.RefreshIntervalMs = def.Timing.RefreshIntervalMs
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	configDir  string
	configPath string
	config     *Config
}

// NewManager creates a new configuration manager
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "config.json"),
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk
func (m *Manager) Load() error {
	// Ensure config directory exists
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Check if config file exists
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		// Create default config
		m.config = DefaultConfig()
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig() // Start with defaults
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	config.normalize()

	m.config = config
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// GetPath returns the config file path
func (m *Manager) GetPath() string {
	return m.configPath
}

// Update updates the configuration and saves it
func (m *Manager) Update(config *Config) error {
	config.normalize()
	m.config = config
	return m.Save()
}
