// Package config handles tool configuration loading and management.
package config

// Config holds all decode and playback settings.
type Config struct {
	Decode   DecodeConfig   `yaml:"decode"`
	Playback PlaybackConfig `yaml:"playback"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DecodeConfig holds asset decoding settings.
type DecodeConfig struct {
	// Revision is the level format revision to decode as (tr1..tr5).
	Revision string `yaml:"revision"`
	// MaxStackDepth caps the mesh tree reconstruction stack. Real
	// assets stay at 2-3; the cap only guards against corrupt data.
	MaxStackDepth int `yaml:"max_stack_depth"`
}

// PlaybackConfig holds run-time evaluation settings.
type PlaybackConfig struct {
	// DispatchHighExclusive treats a dispatch range's High bound as
	// exclusive instead of inclusive. Kept switchable because the
	// reference documentation is ambiguous on the bound.
	DispatchHighExclusive bool `yaml:"dispatch_high_exclusive"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			Revision:      "tr4",
			MaxStackDepth: 32,
		},
		Playback: PlaybackConfig{
			DispatchHighExclusive: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
