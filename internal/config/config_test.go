package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}
	if cfg.SimultaneousDownloads != 3 {
		t.Errorf("Expected 3 simultaneous downloads, got %d", cfg.SimultaneousDownloads)
	}
	if cfg.PlayCommand != "mpv %s" {
		t.Errorf("Expected default play command, got '%s'", cfg.PlayCommand)
	}
	if cfg.DownloadNewEpisodes != DownloadAskUnselected {
		t.Errorf("Expected ask-unselected, got '%s'", cfg.DownloadNewEpisodes)
	}
	if cfg.NotificationTimeMs != 5000 {
		t.Errorf("Expected 5000ms notification time, got %d", cfg.NotificationTimeMs)
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
download_path = "/data/podcasts"
simultaneous_downloads = 5
max_retries = 2
play_command = "vlc %s"
download_new_episodes = "always"
notification_time_ms = 3000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DownloadPath != "/data/podcasts" {
		t.Errorf("Expected download path '/data/podcasts', got '%s'", cfg.DownloadPath)
	}
	if cfg.SimultaneousDownloads != 5 {
		t.Errorf("Expected 5 simultaneous downloads, got %d", cfg.SimultaneousDownloads)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("Expected 2 retries, got %d", cfg.MaxRetries)
	}
	if cfg.PlayCommand != "vlc %s" {
		t.Errorf("Expected play command 'vlc %%s', got '%s'", cfg.PlayCommand)
	}
	if cfg.DownloadNewEpisodes != DownloadAlways {
		t.Errorf("Expected 'always', got '%s'", cfg.DownloadNewEpisodes)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`simultaneous_downloads = 8`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.SimultaneousDownloads != 8 {
		t.Errorf("Expected 8 simultaneous downloads, got %d", cfg.SimultaneousDownloads)
	}
	if cfg.PlayCommand != "mpv %s" {
		t.Errorf("Expected unset fields to keep defaults, got '%s'", cfg.PlayCommand)
	}
}

func TestLoad_InvalidPolicyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`download_new_episodes = "sometimes"`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Expected invalid download_new_episodes to be rejected")
	}
}

func TestValidate_ClampsBadValues(t *testing.T) {
	cfg := &Config{SimultaneousDownloads: 0, MaxRetries: -1, NotificationTimeMs: 0}
	if err := cfg.validate(); err != nil {
		t.Fatalf("Unexpected validation error: %v", err)
	}
	if cfg.SimultaneousDownloads != 1 {
		t.Errorf("Expected simultaneous downloads clamped to 1, got %d", cfg.SimultaneousDownloads)
	}
	if cfg.MaxRetries != 1 {
		t.Errorf("Expected retries clamped to 1, got %d", cfg.MaxRetries)
	}
	if cfg.NotificationTimeMs != 5000 {
		t.Errorf("Expected notification time reset to 5000, got %d", cfg.NotificationTimeMs)
	}
	if cfg.DownloadNewEpisodes != DownloadAskUnselected {
		t.Errorf("Expected empty policy to default, got '%s'", cfg.DownloadNewEpisodes)
	}
}
