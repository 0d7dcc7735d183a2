// Package delivery hands recognized text to the host application.
package delivery

import (
	"fmt"
	"io"
	"sync"
)

// TextSink inserts text into the host's active input target.
type TextSink interface {
	SendText(text string) error
}

// Focuser brings the host's main window to the front.
type Focuser interface {
	FocusMain() error
}

// Router routes one OCR outcome. Failures propagate unchanged in meaning;
// no default text is ever substituted.
type Router struct {
	Sink  TextSink
	Focus Focuser
}

// Route delivers text on success. On failure it returns err without
// touching the sink or the focus.
func (r *Router) Route(text string, err error) error {
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}
	if r.Sink != nil {
		if err := r.Sink.SendText(text); err != nil {
			return fmt.Errorf("failed to deliver text: %w", err)
		}
	}
	if r.Focus != nil {
		if err := r.Focus.FocusMain(); err != nil {
			return fmt.Errorf("failed to focus main window: %w", err)
		}
	}
	return nil
}

// WriterSink writes text to W, serializing concurrent writers.
type WriterSink struct {
	mu sync.Mutex
	W  io.Writer
}

func (s *WriterSink) SendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.W, text)
	return err
}

type discard struct{}

func (discard) SendText(string) error { return nil }
func (discard) FocusMain() error      { return nil }

// Discard drops text and ignores focus requests.
var Discard interface {
	TextSink
	Focuser
} = discard{}

// SinkFunc adapts a function to TextSink.
type SinkFunc func(text string) error

func (f SinkFunc) SendText(text string) error { return f(text) }

// FocusFunc adapts a function to Focuser.
type FocusFunc func() error

func (f FocusFunc) FocusMain() error { return f() }
