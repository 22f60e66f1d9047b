package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the process root logger.
func New(level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()

	return logger.Level(level)
}
