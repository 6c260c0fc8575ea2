// Package config loads settings from defaults, an optional TOML file and
// VOICEAPP_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/skydreamer0/VOICEAPP/internal/db"
	"github.com/skydreamer0/VOICEAPP/internal/geo"
	"github.com/skydreamer0/VOICEAPP/internal/location"
)

type Config struct {
	DataDir       string
	DBPath        string
	SocketPath    string
	RecordingsDir string
	DownloadsDir  string
	LogFile       string

	Log      LogConfig
	Recorder RecorderConfig
	Location LocationConfig
	Metrics  MetricsConfig
}

type LogConfig struct {
	Level  string
	Format string // "console" or "json"
}

type RecorderConfig struct {
	Backend        string // "ffmpeg" or "stream"
	FFmpegPath     string
	InputFormat    string
	InputDevice    string
	StreamMimeType string
}

type LocationConfig struct {
	// Fixed overrides the settings' default coordinates when set.
	Fixed        *geo.Coords
	File         string
	PollInterval time.Duration
}

type MetricsConfig struct {
	Addr string
}

type fileConfig struct {
	DataDir    string `toml:"data_dir"`
	DBPath     string `toml:"db_path"`
	SocketPath string `toml:"socket_path"`
	Log        struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Recorder struct {
		Backend        string `toml:"backend"`
		FFmpegPath     string `toml:"ffmpeg_path"`
		InputFormat    string `toml:"input_format"`
		InputDevice    string `toml:"input_device"`
		StreamMimeType string `toml:"stream_mime_type"`
	} `toml:"recorder"`
	Location struct {
		Latitude     *float64 `toml:"latitude"`
		Longitude    *float64 `toml:"longitude"`
		File         string   `toml:"file"`
		PollInterval string   `toml:"poll_interval"`
	} `toml:"location"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		DataDir: db.DefaultDataDir(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Recorder: RecorderConfig{
			Backend:    "ffmpeg",
			FFmpegPath: "ffmpeg",
		},
		Location: LocationConfig{
			PollInterval: location.DefaultInterval,
		},
	}
}

// Load reads the user's config file, if any, applies environment
// overrides and creates the data directories.
func Load() (*Config, error) {
	return LoadFrom(configFilePath())
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := applyFile(cfg, fc); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.derivePaths()

	for _, dir := range []string{cfg.DataDir, cfg.RecordingsDir, cfg.DownloadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func applyFile(cfg *Config, fc fileConfig) error {
	if fc.DataDir != "" {
		cfg.DataDir = expandTilde(fc.DataDir)
	}
	if fc.DBPath != "" {
		cfg.DBPath = expandTilde(fc.DBPath)
	}
	if fc.SocketPath != "" {
		cfg.SocketPath = expandTilde(fc.SocketPath)
	}
	if fc.Log.Level != "" {
		cfg.Log.Level = fc.Log.Level
	}
	if fc.Log.Format != "" {
		cfg.Log.Format = fc.Log.Format
	}
	if fc.Recorder.Backend != "" {
		cfg.Recorder.Backend = fc.Recorder.Backend
	}
	if fc.Recorder.FFmpegPath != "" {
		cfg.Recorder.FFmpegPath = expandTilde(fc.Recorder.FFmpegPath)
	}
	cfg.Recorder.InputFormat = fc.Recorder.InputFormat
	cfg.Recorder.InputDevice = fc.Recorder.InputDevice
	cfg.Recorder.StreamMimeType = fc.Recorder.StreamMimeType

	if (fc.Location.Latitude == nil) != (fc.Location.Longitude == nil) {
		return fmt.Errorf("location needs both latitude and longitude")
	}
	if fc.Location.Latitude != nil {
		c := geo.Coords{Latitude: *fc.Location.Latitude, Longitude: *fc.Location.Longitude}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("location: %w", err)
		}
		cfg.Location.Fixed = &c
	}
	if fc.Location.File != "" {
		cfg.Location.File = expandTilde(fc.Location.File)
	}
	if fc.Location.PollInterval != "" {
		d, err := time.ParseDuration(fc.Location.PollInterval)
		if err != nil || d <= 0 {
			return fmt.Errorf("location.poll_interval: invalid duration %q", fc.Location.PollInterval)
		}
		cfg.Location.PollInterval = d
	}
	cfg.Metrics.Addr = fc.Metrics.Addr
	return nil
}

// applyEnvOverrides applies VOICEAPP_* variables. Unparseable values are
// ignored.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VOICEAPP_DATA_DIR"); v != "" {
		cfg.DataDir = expandTilde(v)
	}
	if v := os.Getenv("VOICEAPP_DB_PATH"); v != "" {
		cfg.DBPath = expandTilde(v)
	}
	if v := os.Getenv("VOICEAPP_SOCKET_PATH"); v != "" {
		cfg.SocketPath = expandTilde(v)
	}
	if v := os.Getenv("VOICEAPP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("VOICEAPP_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("VOICEAPP_RECORDER_BACKEND"); v != "" {
		cfg.Recorder.Backend = v
	}
	if v := os.Getenv("VOICEAPP_FFMPEG_PATH"); v != "" {
		cfg.Recorder.FFmpegPath = expandTilde(v)
	}
	if v := os.Getenv("VOICEAPP_LOCATION"); v != "" {
		if c, err := location.Parse(v); err == nil {
			cfg.Location.Fixed = &c
		}
	}
	if v := os.Getenv("VOICEAPP_LOCATION_FILE"); v != "" {
		cfg.Location.File = expandTilde(v)
	}
	if v := os.Getenv("VOICEAPP_LOCATION_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Location.PollInterval = d
		}
	}
	if v := os.Getenv("VOICEAPP_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

func (cfg *Config) derivePaths() {
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "voiceapp.sqlite")
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = filepath.Join(cfg.DataDir, "voiceapp.sock")
	}
	cfg.RecordingsDir = filepath.Join(cfg.DataDir, "recordings")
	cfg.DownloadsDir = filepath.Join(cfg.DataDir, "downloads")
	cfg.LogFile = filepath.Join(cfg.DataDir, "voiceapp.log")
}

// Path returns the config file Load would read, or "" when there is none.
func Path() string {
	return configFilePath()
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "voiceapp")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "voiceapp")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
