package config

import "flag"

// Flags holds the command-line overrides shared by every moosetool subcommand.
type Flags struct {
	Config  string
	Debug   bool
	LogFile string
	Padding int
}

// RegisterFlags binds the shared flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Write logs to this file as well")
	fs.IntVar(&f.Padding, "padding", 0, "Pad exported GLB files to a multiple of this many bytes")
	return f
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Padding > 0 {
		cfg.Export.PaddingUnit = f.Padding
	}
}
