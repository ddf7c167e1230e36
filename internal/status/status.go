// Package status carries advisory progress messages to whatever surface
// shows them. Reporters never block the caller.
package status

import (
	"github.com/sirupsen/logrus"

	"github.com/chaz8081/autotyper/internal/logging"
)

// Phase names a step of a typing cycle.
type Phase string

const (
	Idle      Phase = "idle"
	Armed     Phase = "armed"
	Resolving Phase = "resolving"
	Typing    Phase = "typing"
	Done      Phase = "done"
	Error     Phase = "error"
)

// Update is one status message.
type Update struct {
	Phase   Phase
	Message string
}

// Reporter receives status updates. Implementations must not block.
type Reporter interface {
	Report(u Update)
}

// Log writes updates to logrus.
type Log struct {
	entry *logrus.Entry
}

// NewLog creates a Log reporter.
func NewLog() *Log {
	return &Log{entry: logging.Component("status")}
}

// Report logs u, at warn level for errors.
func (l *Log) Report(u Update) {
	e := l.entry.WithField("phase", u.Phase)
	if u.Phase == Error {
		e.Warn(u.Message)
		return
	}
	e.Info(u.Message)
}

// Multi fans an update out to several reporters.
type Multi []Reporter

// Report forwards u to every non-nil reporter.
func (m Multi) Report(u Update) {
	for _, r := range m {
		if r != nil {
			r.Report(u)
		}
	}
}
