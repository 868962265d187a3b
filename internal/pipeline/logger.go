package pipeline

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the structured logger threaded through the pipeline
// stages. Unknown level strings fall back to info.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).
		With().
		Timestamp().
		Logger().
		Level(lvl)
}
