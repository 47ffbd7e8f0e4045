// Package logging sets up process-wide zerolog file logging, grounded on
// _examples/sacenox-symb/cmd/symb/main.go's setupFileLogging: a single
// append-only log file under the config data directory, unix-time
// timestamps, global level set once at startup. Generalized to take the
// process name so the editor and the broker daemon log to separate files
// under the same data directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tome.dev/tome/internal/config"
)

// Setup opens (creating if needed) ~/.config/tome/logs/<process>.log and
// redirects the global zerolog logger to it. level is parsed via
// zerolog.ParseLevel; an empty/invalid string defaults to info.
func Setup(process, level string) (io.Closer, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	dataDir, err := config.DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	logFile := filepath.Join(logDir, process+".log")
	//nolint:gosec // G304: path built from the fixed data dir, not user input
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	lvl, lvlErr := zerolog.ParseLevel(level)
	if lvlErr != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	log.Logger = log.Output(file).With().Str("process", process).Logger()
	zerolog.SetGlobalLevel(lvl)

	return file, nil
}
