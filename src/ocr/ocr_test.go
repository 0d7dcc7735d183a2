package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"screen-capture-ocr/src/cpuvendor"
)

type recordingResolver struct {
	requested []string
	path      string
}

func (r *recordingResolver) Resolve(rel string) (string, error) {
	r.requested = append(r.requested, rel)
	if r.path == "" {
		return "", ErrBinaryNotFound
	}
	return r.path, nil
}

// writeScript installs a fake OCR binary under dir at the given relative path.
func writeScript(t *testing.T, dir, rel, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script fake binaries need a POSIX shell")
	}
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBinaryForVendor(t *testing.T) {
	tests := []struct {
		vendor cpuvendor.Vendor
		want   string
	}{
		{cpuvendor.Apple, AppleBinary},
		{cpuvendor.Intel, IntelBinary},
		{cpuvendor.AMD, IntelBinary},
		{cpuvendor.Unknown, IntelBinary},
		{cpuvendor.Vendor("apple"), IntelBinary},
	}
	for _, tt := range tests {
		if got := BinaryFor(tt.vendor); got != tt.want {
			t.Errorf("BinaryFor(%q) = %q, want %q", tt.vendor, got, tt.want)
		}
	}
}

func TestDispatcherResolvesVariantForVendor(t *testing.T) {
	for vendor, want := range map[cpuvendor.Vendor]string{
		cpuvendor.Apple: AppleBinary,
		cpuvendor.Intel: IntelBinary,
	} {
		r := &recordingResolver{}
		d := &Dispatcher{Vendor: cpuvendor.Fixed(vendor), Resolver: r}
		if _, err := d.Run(context.Background()); !errors.Is(err, ErrBinaryNotFound) {
			t.Errorf("Expected ErrBinaryNotFound, got %v", err)
		}
		if len(r.requested) != 1 || r.requested[0] != want {
			t.Errorf("vendor %s: requested %v, want [%s]", vendor, r.requested, want)
		}
	}
}

func TestDirResolver(t *testing.T) {
	dir := t.TempDir()
	if _, err := (DirResolver{Base: dir}).Resolve(IntelBinary); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("Expected ErrBinaryNotFound, got %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "resources", "bin", "ocr_intel"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := (DirResolver{Base: dir}).Resolve(IntelBinary); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("Expected ErrBinaryNotFound for directory, got %v", err)
	}
}

func TestRunReturnsStdout(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, AppleBinary, `printf '识别 %s %s' "$1" "$2"; echo noise >&2`)
	d := &Dispatcher{
		Vendor:   cpuvendor.Fixed(cpuvendor.Apple),
		Resolver: DirResolver{Base: dir},
	}
	text, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if text != "识别 -l zh" {
		t.Errorf("Expected %q, got %q", "识别 -l zh", text)
	}
}

func TestRunPassesLanguage(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, IntelBinary, `printf '%s' "$2"`)
	d := &Dispatcher{Vendor: cpuvendor.Fixed(cpuvendor.Intel), Resolver: DirResolver{Base: dir}, Language: "en"}
	text, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if text != "en" {
		t.Errorf("Expected language en, got %q", text)
	}
}

func TestRunNonZeroExitIsFailure(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, IntelBinary, `printf 'partial text'; exit 3`)
	d := &Dispatcher{Vendor: cpuvendor.Fixed(cpuvendor.Intel), Resolver: DirResolver{Base: dir}}
	text, err := d.Run(context.Background())
	if !errors.Is(err, ErrBinaryFailed) {
		t.Fatalf("Expected ErrBinaryFailed, got %v", err)
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 3 {
		t.Errorf("Expected ExitError with code 3, got %v", err)
	}
	if text != "" {
		t.Errorf("Expected no text on failure, got %q", text)
	}
}

func TestRunNonZeroExitSkipsDecoding(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, IntelBinary, `printf '\377\376'; exit 1`)
	d := &Dispatcher{Vendor: cpuvendor.Fixed(cpuvendor.Intel), Resolver: DirResolver{Base: dir}}
	_, err := d.Run(context.Background())
	if errors.Is(err, ErrInvalidOutput) {
		t.Fatal("stdout of a failed binary must not be decoded")
	}
	if !errors.Is(err, ErrBinaryFailed) {
		t.Errorf("Expected ErrBinaryFailed, got %v", err)
	}
}

func TestRunInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, IntelBinary, `printf '\377\376'`)
	d := &Dispatcher{Vendor: cpuvendor.Fixed(cpuvendor.Intel), Resolver: DirResolver{Base: dir}}
	if _, err := d.Run(context.Background()); !errors.Is(err, ErrInvalidOutput) {
		t.Errorf("Expected ErrInvalidOutput, got %v", err)
	}
}

func TestRunTimeoutKillsBinary(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, IntelBinary, `exec sleep 30`)
	d := &Dispatcher{
		Vendor:   cpuvendor.Fixed(cpuvendor.Intel),
		Resolver: DirResolver{Base: dir},
		Timeout:  100 * time.Millisecond,
	}
	start := time.Now()
	_, err := d.Run(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Run took %v; binary was not killed", elapsed)
	}
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, IntelBinary, `exec sleep 30`)
	d := &Dispatcher{Vendor: cpuvendor.Fixed(cpuvendor.Intel), Resolver: DirResolver{Base: dir}}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	if _, err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
