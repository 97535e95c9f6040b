// Package logging builds the process-wide zerolog logger from configuration.
package logging

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"go.elastic.co/ecszerolog"

	"github.com/hms/hms/internal/config"
)

// New returns a logger writing to out in the configured format. The console
// format is meant for humans, json for log shippers and ecs for Elasticsearch.
func New(cfg *config.Config, out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}

	var logger zerolog.Logger
	switch cfg.ResolvedLogFormat() {
	case config.LogFormatConsole:
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	case config.LogFormatJSON:
		logger = zerolog.New(out).With().Timestamp().Logger()
	case config.LogFormatECS:
		logger = ecszerolog.New(out)
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return logger.Level(level).With().Str("service", "hms-server").Logger(), nil
}
