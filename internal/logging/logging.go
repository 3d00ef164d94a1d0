// Package logging builds the zap logger shared by every component.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects verbosity and destination.
type Options struct {
	Debug  bool
	Silent bool
	// File redirects log output; empty means stderr.
	File string
}

// New returns a development-style logger (capital color levels, info by
// default) or a no-op logger when silent.
func New(opts Options) (*zap.Logger, error) {
	if opts.Silent {
		return zap.NewNop(), nil
	}

	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.Level.SetLevel(zap.InfoLevel)
	if opts.Debug {
		config.Level.SetLevel(zap.DebugLevel)
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, err
		}
		// Color escapes only make sense on a terminal.
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.OutputPaths = []string{opts.File}
		config.ErrorOutputPaths = []string{opts.File}
	}
	return config.Build()
}

// DefaultFile is where the interactive workbench writes its log, since the
// terminal itself is taken by the UI.
func DefaultFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "coderun", "coderun.log")
}
