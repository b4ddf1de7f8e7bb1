// Package logging configures the process-wide logger. Every subsystem logs
// through a component-tagged entry so interleaved output stays attributable.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var root = logrus.New()

func init() {
	root.SetOutput(os.Stderr)
	root.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	root.SetLevel(levelFromEnv())
}

// Component returns a logger entry tagged with the subsystem name.
func Component(name string) *logrus.Entry {
	return root.WithField("component", name)
}

// SetLevel overrides the level picked up from the environment.
func SetLevel(level string) {
	if l, err := logrus.ParseLevel(level); err == nil {
		root.SetLevel(l)
	}
}

func levelFromEnv() logrus.Level {
	switch strings.ToLower(os.Getenv("BRIDGE_LOG_LEVEL")) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
