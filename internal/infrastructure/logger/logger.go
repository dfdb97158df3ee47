package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

var (
	Info  *log.Logger
	Error *log.Logger
	Debug *log.Logger
	Warn  *log.Logger
)

const logFlags = log.Ldate | log.Ltime | log.LUTC | log.Lshortfile

func init() {
	Info = log.New(os.Stdout, "INFO: ", logFlags)
	Error = log.New(os.Stdout, "ERROR: ", logFlags)
	Debug = log.New(io.Discard, "DEBUG: ", logFlags)
	Warn = log.New(os.Stdout, "WARN: ", logFlags)
}

// Configure points every logger at out and silences levels below level.
// Accepted levels are debug, info, warn and error; anything else means info.
func Configure(level string, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	threshold := levelRank(level)
	set := func(l *log.Logger, rank int) {
		if rank < threshold {
			l.SetOutput(io.Discard)
			return
		}
		l.SetOutput(out)
	}
	set(Debug, 0)
	set(Info, 1)
	set(Warn, 2)
	set(Error, 3)
}

func levelRank(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return 0
	case "warn", "warning":
		return 2
	case "error":
		return 3
	default:
		return 1
	}
}
