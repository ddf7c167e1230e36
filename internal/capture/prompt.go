package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNoInput is returned when the prompt produced no text.
	ErrNoInput = errors.New("capture: no text entered")
	// ErrExhausted is returned when a PromptSource is read a second time.
	ErrExhausted = errors.New("capture: prompt already read")
)

// Sentinel is the line that ends prompt input.
const Sentinel = "."

// PromptSource reads a single multi-line payload from a console.
type PromptSource struct {
	r    *bufio.Reader
	used bool
}

// NewPromptSource creates a PromptSource over r.
func NewPromptSource(r io.Reader) *PromptSource {
	return &PromptSource{r: bufio.NewReader(r)}
}

// Read collects lines until a line consisting of only "." or end of input.
// Lines are joined with "\n" and trailing newlines are dropped. It can be
// called once; later calls return ErrExhausted.
func (p *PromptSource) Read() (Payload, error) {
	if p.used {
		return Payload{}, ErrExhausted
	}
	p.used = true

	var lines []string
	for {
		line, err := p.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Payload{}, fmt.Errorf("capture: reading prompt: %w", err)
		}
		eof := err != nil

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == Sentinel {
			break
		}
		if !eof || line != "" {
			lines = append(lines, line)
		}
		if eof {
			break
		}
	}

	text := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if strings.TrimSpace(text) == "" {
		return Payload{}, ErrNoInput
	}
	return NewPayload(text), nil
}
