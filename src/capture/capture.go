// Package capture acquires single frames from the primary display.
package capture

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"screen-capture-ocr/src/frame"
)

var (
	// ErrWouldBlock is returned by Device.Frame while no new frame is ready.
	ErrWouldBlock = errors.New("frame not ready")
	// ErrNoDisplay means no primary display or capturer could be opened.
	ErrNoDisplay = errors.New("no display available for capture")
	// ErrFrame wraps any non-transient Frame failure.
	ErrFrame = errors.New("frame capture failed")
	// ErrAttemptsExhausted is returned when the poll budget runs out.
	ErrAttemptsExhausted = errors.New("capture attempts exhausted")
)

// Device is a capturer bound to one display.
type Device interface {
	Width() int
	Height() int
	// Frame returns the next frame or ErrWouldBlock. The returned buffer
	// stays valid until the next call to Frame or Close.
	Frame() (frame.Buffer, error)
	Close() error
}

// Opener binds a capturer to the primary display.
type Opener func() (Device, error)

// DefaultBackend is the device used when no backend is configured.
const DefaultBackend = "screenshot"

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Opener)
)

// Register makes a capture backend available by name. It panics if called
// twice with the same name, like database/sql.Register.
func Register(name string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if open == nil {
		panic("capture: Register opener is nil")
	}
	if _, dup := backends[name]; dup {
		panic("capture: Register called twice for backend " + name)
	}
	backends[name] = open
}

// Backends lists registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns a device for the named backend ("" selects DefaultBackend).
func Open(name string) (Device, error) {
	if name == "" {
		name = DefaultBackend
	}
	backendsMu.RLock()
	open, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown capture backend %q (available: %v)", name, Backends())
	}
	return open()
}
