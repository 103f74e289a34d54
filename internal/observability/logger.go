package observability

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger. Console output goes to
// stdout in human-readable form; when logFile is set the same stream is
// appended to the file as well. Unknown levels fall back to info.
func InitLogger(level string, logFile string) {
	out := io.Writer(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	})

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			// Logger is not up yet, so report directly and keep stdout only.
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v, using stdout only\n", logFile, err)
		} else {
			out = io.MultiWriter(out, f)
		}
	}
	log.Logger = log.Output(out)

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log.Info().
		Str("level", lvl.String()).
		Str("file", logFile).
		Msg("Logger initialized")
}
