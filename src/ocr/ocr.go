// Package ocr runs the bundled OCR executable matching the CPU and returns
// the text it prints.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"
	"unicode/utf8"

	"screen-capture-ocr/src/cpuvendor"
)

// Relative resource paths of the two binary variants.
const (
	AppleBinary = "resources/bin/ocr_apple"
	IntelBinary = "resources/bin/ocr_intel"
)

const (
	DefaultLanguage = "zh"
	DefaultTimeout  = 20 * time.Second
	// killGrace bounds how long Run waits for pipes after the child is killed.
	killGrace = 2 * time.Second
)

var (
	ErrBinaryNotFound = errors.New("ocr binary not found")
	ErrBinaryFailed   = errors.New("ocr binary failed")
	ErrInvalidOutput  = errors.New("ocr binary output is not valid UTF-8")
	ErrTimeout        = errors.New("ocr binary timed out")
)

// ExitError reports a non-zero exit of the OCR binary. It matches
// ErrBinaryFailed with errors.Is.
type ExitError struct {
	Path string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %s exited with code %d", ErrBinaryFailed, filepath.Base(e.Path), e.Code)
}

func (e *ExitError) Is(target error) bool { return target == ErrBinaryFailed }

func (e *ExitError) Unwrap() error { return e.Err }

// Resolver turns a relative resource name into an executable path.
type Resolver interface {
	Resolve(rel string) (string, error)
}

// DirResolver resolves resources below Base. An empty Base means the
// directory of the running executable.
type DirResolver struct {
	Base string
}

func (r DirResolver) Resolve(rel string) (string, error) {
	base := r.Base
	if base == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("%w: cannot locate executable: %v", ErrBinaryNotFound, err)
		}
		base = filepath.Dir(exe)
	}
	path := filepath.Join(base, filepath.FromSlash(rel))
	st, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrBinaryNotFound, path, err)
	}
	if st.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrBinaryNotFound, path)
	}
	return path, nil
}

// BinaryFor returns the relative resource name of the variant for v.
func BinaryFor(v cpuvendor.Vendor) string {
	if v.IsApple() {
		return AppleBinary
	}
	return IntelBinary
}

// Dispatcher selects, runs and decodes the OCR binary. It never retries.
type Dispatcher struct {
	Vendor   *cpuvendor.Cache
	Resolver Resolver
	Language string
	Timeout  time.Duration
}

// Binary resolves the executable path for the cached vendor.
func (d *Dispatcher) Binary() (string, error) {
	vendor := cpuvendor.Unknown
	if d.Vendor != nil {
		vendor = d.Vendor.Get()
	}
	resolver := d.Resolver
	if resolver == nil {
		resolver = DirResolver{}
	}
	rel := BinaryFor(vendor)
	log.Printf("ocr: vendor %s -> %s", vendor, rel)
	return resolver.Resolve(rel)
}

// Run executes the binary with "-l <language>" and returns its stdout.
// A non-zero exit yields an *ExitError and stdout is discarded.
func (d *Dispatcher) Run(ctx context.Context) (string, error) {
	bin, err := d.Binary()
	if err != nil {
		return "", err
	}

	lang := d.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-l", lang)
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard
	cmd.WaitDelay = killGrace

	start := time.Now()
	runErr := cmd.Run()
	log.Printf("ocr: %s finished in %v (stdout %d bytes)", filepath.Base(bin), time.Since(start), stdout.Len())

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %v", ErrTimeout, timeout)
		}
		return "", ctxErr
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return "", &ExitError{Path: bin, Code: exitErr.ExitCode(), Err: runErr}
		}
		return "", fmt.Errorf("%w: %v", ErrBinaryFailed, runErr)
	}

	out := stdout.Bytes()
	if !utf8.Valid(out) {
		return "", ErrInvalidOutput
	}
	return string(out), nil
}
