package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagRevision = flag.String("rev", "", "Level format revision (tr1..tr5)")
	flagDepth    = flag.Int("depth", 0, "Mesh tree stack depth cap")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagRevision != "" {
		cfg.Decode.Revision = *flagRevision
	}
	if *flagDepth > 0 {
		cfg.Decode.MaxStackDepth = *flagDepth
	}
}
