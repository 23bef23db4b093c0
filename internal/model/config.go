package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ServerConfig holds connection settings for the helpdesk backend.
type ServerConfig struct {
	// BaseURL is the root URL of the helpdesk REST API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// WSURL is the websocket endpoint for the chat push channel.
	// Derived from BaseURL when empty.
	WSURL string `mapstructure:"ws_url" yaml:"ws_url"`
}

// PollConfig holds the fixed polling cadences, in seconds. The intervals
// are deliberate: failures are retried at the next tick with no backoff.
type PollConfig struct {
	IncidentsSec   int `mapstructure:"incidents_sec" yaml:"incidents_sec"`
	AlertsSec      int `mapstructure:"alerts_sec" yaml:"alerts_sec"`
	AlertBannerSec int `mapstructure:"alert_banner_sec" yaml:"alert_banner_sec"`
}

// NotifyConfig holds the notification channel toggles.
type NotifyConfig struct {
	// Desktop enables platform desktop notifications. When the platform
	// rejects the first attempt the channel is switched off for the session.
	Desktop bool `mapstructure:"desktop" yaml:"desktop"`

	// Sound enables audio cues (still subject to the gesture gate).
	Sound bool `mapstructure:"sound" yaml:"sound"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server  ServerConfig `mapstructure:"server" yaml:"server"`
	Poll    PollConfig   `mapstructure:"poll" yaml:"poll"`
	Notify  NotifyConfig `mapstructure:"notify" yaml:"notify"`
	DBPath  string       `mapstructure:"db_path" yaml:"db_path"`
	LogFile string       `mapstructure:"log_file" yaml:"log_file"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mesa/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mesa", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	return &AppConfig{
		Server: ServerConfig{
			BaseURL: "http://localhost:8080",
		},
		Poll: PollConfig{
			IncidentsSec:   30,
			AlertsSec:      10,
			AlertBannerSec: 15,
		},
		Notify: NotifyConfig{
			Desktop: true,
			Sound:   true,
		},
		DBPath:  filepath.Join(home, ".config", "mesa", "mesa.db"),
		LogFile: filepath.Join(home, ".config", "mesa", "mesa.log"),
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	def := defaultAppConfig()
	v.SetDefault("server.base_url", def.Server.BaseURL)
	v.SetDefault("poll.incidents_sec", def.Poll.IncidentsSec)
	v.SetDefault("poll.alerts_sec", def.Poll.AlertsSec)
	v.SetDefault("poll.alert_banner_sec", def.Poll.AlertBannerSec)
	v.SetDefault("notify.desktop", def.Notify.Desktop)
	v.SetDefault("notify.sound", def.Notify.Sound)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("log_file", def.LogFile)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("poll", cfg.Poll)
	v.Set("notify", cfg.Notify)
	v.Set("db_path", cfg.DBPath)
	v.Set("log_file", cfg.LogFile)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
