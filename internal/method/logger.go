package method

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger func(string, ...interface{}) = DefaultLogger

func DefaultLogger(Type string, args ...interface{}) {
	log.StandardLogger().Log(parseLevel(Type, log.InfoLevel), fmt.Sprint(args...))
}

// ConfigureLogger points the standard logrus logger at stderr and, when file
// is set, a size-rotated copy on disk.
func ConfigureLogger(file, level string) {
	var out io.Writer = os.Stderr
	if file != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}

	log.SetOutput(out)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(parseLevel(level, log.InfoLevel))
}

func parseLevel(s string, fallback log.Level) log.Level {
	// FATAL is logged at error level; the caller decides whether to exit.
	if strings.EqualFold(s, "FATAL") {
		return log.ErrorLevel
	}
	lvl, err := log.ParseLevel(strings.ToLower(s))
	if err != nil {
		return fallback
	}
	return lvl
}
