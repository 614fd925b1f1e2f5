package shared

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds a timestamped JSON logger. Unknown or empty levels fall
// back to info.
func NewLogger(level string, writer io.Writer) zerolog.Logger {
	if writer == nil {
		writer = os.Stderr
	}

	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
}

// ShortKey abbreviates a hex key for log fields.
func ShortKey(key string) string {
	if len(key) <= 20 {
		return key
	}
	return key[:20] + "..."
}
