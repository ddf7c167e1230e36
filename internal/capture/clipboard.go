package capture

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/sirupsen/logrus"

	"github.com/chaz8081/autotyper/internal/logging"
)

// Reader reads the current clipboard text.
type Reader interface {
	ReadText() (string, error)
}

// SystemClipboard implements Reader using github.com/atotto/clipboard.
type SystemClipboard struct{}

var _ Reader = SystemClipboard{}

// ReadText returns the current system clipboard text.
func (SystemClipboard) ReadText() (string, error) {
	return clipboard.ReadAll()
}

// ClipboardAvailable reports whether a clipboard backend exists on this
// system (on Linux this needs xclip, xsel, or wl-clipboard).
func ClipboardAvailable() bool {
	return !clipboard.Unsupported
}

// ClipboardSource turns clipboard changes into payloads. It is edge
// triggered: unchanged content never yields a second payload.
type ClipboardSource struct {
	reader      Reader
	filterStack bool
	lastSeen    string
	log         *logrus.Entry
}

// NewClipboardSource creates a source over reader. When filterStack is
// set, content that looks like a stack trace is dropped.
func NewClipboardSource(reader Reader, filterStack bool) *ClipboardSource {
	return &ClipboardSource{
		reader:      reader,
		filterStack: filterStack,
		log:         logging.Component("capture"),
	}
}

// Poll reads the clipboard once. It returns a payload only when the content
// differs from the last content seen and is not blank. Read errors are
// logged and reported as "nothing new"; the next tick retries.
func (s *ClipboardSource) Poll() (Payload, bool) {
	text, err := s.reader.ReadText()
	if err != nil {
		s.log.WithError(err).Debug("clipboard read failed")
		return Payload{}, false
	}

	if text == s.lastSeen || strings.TrimSpace(text) == "" {
		return Payload{}, false
	}
	s.lastSeen = text

	if s.filterStack && LooksLikeStackTrace(text) {
		s.log.Warn("clipboard looks like a stack trace, ignoring")
		return Payload{}, false
	}

	return NewPayload(text), true
}

// Run polls every interval until ctx is done, sending each new payload on
// out. A pending send is abandoned when ctx is cancelled.
func (s *ClipboardSource) Run(ctx context.Context, interval time.Duration, out chan<- Payload) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p, ok := s.Poll()
			if !ok {
				continue
			}
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
		}
	}
}
