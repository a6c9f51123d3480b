package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It is usable before Init is called.
var Log *logrus.Logger

func init() {
	Log = newLogger(logrus.InfoLevel, os.Stdout)
}

// Init sets the level of the global logger. Unknown levels fall back to info.
// Entries obtained from Component before Init keep working since the logger
// is reconfigured in place.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

// SetOutput redirects the global logger, mostly for tests.
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

func newLogger(level logrus.Level, w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	l.SetOutput(w)
	return l
}

// Component returns an entry tagged with the subsystem name, e.g. "api" or "db".
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
