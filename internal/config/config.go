// Package config loads the TOML configuration file and fills in
// defaults for anything the user left unset.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DownloadNewEpisodes selects what happens with episodes discovered by
// a sync batch.
type DownloadNewEpisodes string

const (
	DownloadAlways        DownloadNewEpisodes = "always"
	DownloadAskSelected   DownloadNewEpisodes = "ask-selected"
	DownloadAskUnselected DownloadNewEpisodes = "ask-unselected"
	DownloadNever         DownloadNewEpisodes = "never"
)

// Config holds all user-tunable settings.
type Config struct {
	DownloadPath          string              `toml:"download_path"`
	SimultaneousDownloads int                 `toml:"simultaneous_downloads"`
	MaxRetries            int                 `toml:"max_retries"`
	PlayCommand           string              `toml:"play_command"`
	DownloadNewEpisodes   DownloadNewEpisodes `toml:"download_new_episodes"`
	NotificationTimeMs    int                 `toml:"notification_time_ms"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	downloadPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		downloadPath = filepath.Join(home, "Music", "Podcasts")
	}
	return &Config{
		DownloadPath:          downloadPath,
		SimultaneousDownloads: 3,
		MaxRetries:            3,
		PlayCommand:           "mpv %s",
		DownloadNewEpisodes:   DownloadAskUnselected,
		NotificationTimeMs:    5000,
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "podterm", "config.toml"), nil
}

// DefaultDataDir returns the directory holding the database and log.
func DefaultDataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "podterm"), nil
}

// Load reads the config at path, applying defaults for absent fields.
// A missing file is not an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DownloadNewEpisodes {
	case DownloadAlways, DownloadAskSelected, DownloadAskUnselected, DownloadNever:
	case "":
		c.DownloadNewEpisodes = DownloadAskUnselected
	default:
		return fmt.Errorf("invalid download_new_episodes value: %q", c.DownloadNewEpisodes)
	}
	if c.SimultaneousDownloads < 1 {
		c.SimultaneousDownloads = 1
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.NotificationTimeMs < 1 {
		c.NotificationTimeMs = 5000
	}
	if c.PlayCommand == "" {
		c.PlayCommand = "mpv %s"
	}
	return nil
}
