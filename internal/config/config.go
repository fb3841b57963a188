// Package config provides configuration management for AvatarCast
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Token    TokenConfig    `mapstructure:"token"`
	Identity IdentityConfig `mapstructure:"identity"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Anim     AnimConfig     `mapstructure:"anim"`
	Render   RenderConfig   `mapstructure:"render"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Log      LogConfig      `mapstructure:"log"`
}

// TokenConfig configures the token service and how the agent reaches it.
// Endpoint is used by the agent; the remaining fields drive the embedded
// serve-tokens command.
type TokenConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	ListenAddr string        `mapstructure:"listen_addr"`
	ServerURL  string        `mapstructure:"server_url"` // LiveKit ws URL handed to clients
	APIKey     string        `mapstructure:"api_key"`
	APISecret  string        `mapstructure:"api_secret"`
	RoomPrefix string        `mapstructure:"room_prefix"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// IdentityConfig names the two room participants this process controls
type IdentityConfig struct {
	UserName       string `mapstructure:"user_name"`
	UserPrefix     string `mapstructure:"user_prefix"` // reserved web-visitor prefix, never animated
	AvatarIdentity string `mapstructure:"avatar_identity"`
	AvatarName     string `mapstructure:"avatar_name"`
}

// AudioConfig configures microphone capture and inbound analysis
type AudioConfig struct {
	InputDevice     string `mapstructure:"input_device"`
	SampleRate      int    `mapstructure:"sample_rate"`
	Channels        int    `mapstructure:"channels"`
	FramesPerBuffer int    `mapstructure:"frames_per_buffer"`
	WindowSize      int    `mapstructure:"window_size"` // analysis window, must be a power of two
}

// AnimConfig tunes the loudness mapping and animation timing
type AnimConfig struct {
	NoiseFloor        float64       `mapstructure:"noise_floor"`
	DynamicRange      float64       `mapstructure:"dynamic_range"`
	Smoothing         float64       `mapstructure:"smoothing"` // weight kept from the previous level
	SpeakingThreshold float64       `mapstructure:"speaking_threshold"`
	BlinkMinInterval  time.Duration `mapstructure:"blink_min_interval"`
	BlinkMaxInterval  time.Duration `mapstructure:"blink_max_interval"`
	BlinkDuration     time.Duration `mapstructure:"blink_duration"`
	GazeMinInterval   time.Duration `mapstructure:"gaze_min_interval"`
	GazeMaxInterval   time.Duration `mapstructure:"gaze_max_interval"`
	GazeEase          float64       `mapstructure:"gaze_ease"` // fraction of remaining distance per tick
}

// RenderConfig configures the synthetic video track
type RenderConfig struct {
	Width       int `mapstructure:"width"`
	Height      int `mapstructure:"height"`
	FPS         int `mapstructure:"fps"`
	BitrateKbps int `mapstructure:"bitrate_kbps"`
}

// MonitorConfig configures the local debug feed
type MonitorConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LogConfig configures logging
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Token: TokenConfig{
			Endpoint:   "http://localhost:8787/api/token",
			ListenAddr: ":8787",
			ServerURL:  "",
			RoomPrefix: "showroom",
			TokenTTL:   1 * time.Hour,
			Timeout:    10 * time.Second,
		},
		Identity: IdentityConfig{
			UserName:       "presenter",
			UserPrefix:     "customer-",
			AvatarIdentity: "avatar-presenter",
			AvatarName:     "Avatar",
		},
		Audio: AudioConfig{
			InputDevice:     "",
			SampleRate:      48000,
			Channels:        1,
			FramesPerBuffer: 960,
			WindowSize:      1024,
		},
		Anim: AnimConfig{
			NoiseFloor:        0.015,
			DynamicRange:      0.12,
			Smoothing:         0.8,
			SpeakingThreshold: 0.08,
			BlinkMinInterval:  3000 * time.Millisecond,
			BlinkMaxInterval:  5500 * time.Millisecond,
			BlinkDuration:     140 * time.Millisecond,
			GazeMinInterval:   1500 * time.Millisecond,
			GazeMaxInterval:   4000 * time.Millisecond,
			GazeEase:          0.05,
		},
		Render: RenderConfig{
			Width:       960,
			Height:      540,
			FPS:         30,
			BitrateKbps: 1200,
		},
		Monitor: MonitorConfig{
			Enabled:    false,
			ListenAddr: "localhost:8788",
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := GetConfigDir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("AVATARCAST")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Watch re-reads the config file on change and hands the result to onChange.
// Only the animation and render tuning is meant to move at runtime; transport
// settings are picked up on the next connect.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(fsnotify.Event) {
		cfg := DefaultConfig()
		if err := viper.Unmarshal(cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("token", cfg.Token)
	viper.Set("identity", cfg.Identity)
	viper.Set("audio", cfg.Audio)
	viper.Set("anim", cfg.Anim)
	viper.Set("render", cfg.Render)
	viper.Set("monitor", cfg.Monitor)
	viper.Set("log", cfg.Log)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".avatarcast"), nil
}
