// Package config handles moosetool configuration loading and management.
package config

import (
	"fmt"

	"github.com/go-playground/validator"

	moose "github.com/flywave/go-moose"
)

// Config holds all moosetool settings.
type Config struct {
	Logging   LoggingConfig        `yaml:"logging"`
	Export    ExportConfig         `yaml:"export"`
	Modifiers moose.ModifiersState `yaml:"modifiers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" validate:"oneof=debug info warn error"`
	LogFile string `yaml:"log_file"`
}

// ExportConfig holds GLB export settings.
type ExportConfig struct {
	PaddingUnit int                   `yaml:"padding_unit" validate:"oneof=1 4 8 16 32"`
	OutputDir   string                `yaml:"output_dir"`
	Primitive   moose.PrimitiveType   `yaml:"primitive"`
	Params      moose.PrimitiveParams `yaml:"params"`
}

var validate = validator.New()

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Export: ExportConfig{
			PaddingUnit: 4,
			OutputDir:   ".",
			Primitive:   moose.PRIMITIVE_BOX,
		},
	}
}

// Validate checks field ranges and the modifier axes.
func (c *Config) Validate() error {
	if err := c.Modifiers.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
