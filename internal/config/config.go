// Package config provides configuration management for mdview
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Window  WindowConfig  `mapstructure:"window"`
	Render  RenderConfig  `mapstructure:"render"`
	Shaders ShadersConfig `mapstructure:"shaders"`
}

// WindowConfig configures the window and GL context
type WindowConfig struct {
	Title     string `mapstructure:"title"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	VSync     bool   `mapstructure:"vsync"`
	MSAA      int    `mapstructure:"msaa"` // samples for the default framebuffer, 0 disables
	Resizable bool   `mapstructure:"resizable"`
}

// RenderConfig configures the post-process chain defaults. Every field maps
// onto the per-frame descriptor; the UI can override them at runtime.
type RenderConfig struct {
	BackgroundR float32 `mapstructure:"background_r"`
	BackgroundG float32 `mapstructure:"background_g"`
	BackgroundB float32 `mapstructure:"background_b"`

	AOEnabled   bool    `mapstructure:"ao_enabled"`
	AORadius    float32 `mapstructure:"ao_radius"`
	AOIntensity float32 `mapstructure:"ao_intensity"`
	AOBias      float32 `mapstructure:"ao_bias"`

	DOFEnabled    bool    `mapstructure:"dof_enabled"`
	DOFFocusDepth float32 `mapstructure:"dof_focus_depth"`
	DOFFocusScale float32 `mapstructure:"dof_focus_scale"`

	TemporalEnabled     bool    `mapstructure:"temporal_enabled"`
	TemporalFeedbackMin float32 `mapstructure:"temporal_feedback_min"`
	TemporalFeedbackMax float32 `mapstructure:"temporal_feedback_max"`
	MotionBlurScale     float32 `mapstructure:"motion_blur_scale"`

	Tonemap  string  `mapstructure:"tonemap"` // passthrough, exposure-gamma, filmic, aces
	Exposure float32 `mapstructure:"exposure"`
	Gamma    float32 `mapstructure:"gamma"`

	FXAAEnabled    bool    `mapstructure:"fxaa_enabled"`
	SharpenEnabled bool    `mapstructure:"sharpen_enabled"`
	SharpenWeight  float32 `mapstructure:"sharpen_weight"`
}

// ShadersConfig configures shader hot-reload for development
type ShadersConfig struct {
	WatchDir string `mapstructure:"watch_dir"` // empty disables watching
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Title:     "mdview",
			Width:     1280,
			Height:    800,
			VSync:     true,
			MSAA:      0,
			Resizable: true,
		},
		Render: RenderConfig{
			BackgroundR: 0.09,
			BackgroundG: 0.11,
			BackgroundB: 0.13,

			AOEnabled:   true,
			AORadius:    6.0,
			AOIntensity: 2.5,
			AOBias:      0.1,

			DOFEnabled:    false,
			DOFFocusDepth: 10.0,
			DOFFocusScale: 10.0,

			TemporalEnabled:     true,
			TemporalFeedbackMin: 0.88,
			TemporalFeedbackMax: 0.97,
			MotionBlurScale:     0.0,

			Tonemap:  "aces",
			Exposure: 1.0,
			Gamma:    2.2,

			FXAAEnabled:    true,
			SharpenEnabled: true,
			SharpenWeight:  0.25,
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
	viper.SetEnvPrefix("MDVIEW")
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

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("window", cfg.Window)
	viper.Set("render", cfg.Render)
	viper.Set("shaders", cfg.Shaders)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".mdview"), nil
}
