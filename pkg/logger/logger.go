package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	// Default to console output with color
	Setup(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	})
}

// Setup points both Log and the zerolog/log package logger at out, so
// packages logging through zerolog/log share the same sink and level.
func Setup(out io.Writer) {
	Log = zerolog.New(out).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Caller().
		Logger()
	zlog.Logger = Log
}

// SetLevel sets the log level. Gin modes are accepted as aliases: "debug"
// logs at debug, "release" and "test" at info.
func SetLevel(levelStr string) zerolog.Level {
	switch levelStr {
	case "release", "test":
		levelStr = "info"
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	zlog.Logger = Log
	return level
}
