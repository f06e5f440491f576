// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out at the given level and format
// ("text" or "json"). Empty values fall back to LOG_LEVEL / LOG_FORMAT and then
// to info/text; an unknown level is treated as info.
func New(out io.Writer, level, format string) *logrus.Logger {
	l := logrus.New()

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	lv, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lv = logrus.InfoLevel
	}
	l.SetLevel(lv)

	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if out == nil {
		out = os.Stdout
	}
	l.SetOutput(out)
	return l
}
