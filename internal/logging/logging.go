// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/chaz8081/autotyper/internal/config"
)

// Setup points the standard logrus logger at w (stderr when nil) and
// applies the level named by a config log_level string.
func Setup(level string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logrus.SetOutput(w)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		QuoteEmptyFields: true,
	})
	logrus.SetLevel(config.ParseLogLevel(level))
}

// Component returns an entry tagged with the given component name.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}
