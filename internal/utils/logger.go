package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global logger. Debug mode logs to stderr in
// console format; a log file receives JSON lines; with neither, logging is
// disabled so the live display owns the terminal.
func InitLogger(debug bool, logFile string) (io.Closer, error) {
	GlobalDebugFlag = debug
	switch {
	case debug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		output := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.DateTime,
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
		return nopCloser{}, nil
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
		return f, nil
	default:
		zerolog.SetGlobalLevel(zerolog.Disabled)
		return nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
