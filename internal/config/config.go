// Package config loads engine settings from the environment. Flags on
// individual CLI commands override these values.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds environment-driven defaults for the engine and CLI.
type Settings struct {
	// ConfigDir is the directory of job definition documents.
	ConfigDir string `envconfig:"MCG_CONFIG_DIR" default:"./configs"`

	// LedgerPath locates the provenance store. A .db suffix selects the
	// SQLite backend; anything else uses the JSON file store.
	LedgerPath string `envconfig:"MCG_LEDGER_PATH" default:"./ledger.json"`

	// DefaultTimeout bounds a run when neither the method nor the
	// definition declares a timeout.
	DefaultTimeout time.Duration `envconfig:"MCG_DEFAULT_TIMEOUT" default:"60s"`

	// LogLevel selects the zap level (debug, info, warn, error).
	LogLevel string `envconfig:"MCG_LOG_LEVEL" default:"info"`
}

// Load reads Settings from the environment.
func Load() (*Settings, error) {
	s := new(Settings)
	if err := envconfig.Process("", s); err != nil {
		return nil, err
	}
	return s, nil
}
