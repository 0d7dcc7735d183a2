package eventloop

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"screen-capture-ocr/src/delivery"
	"screen-capture-ocr/src/pipeline"
	"screen-capture-ocr/src/singleinstance"
)

type call struct {
	router *delivery.Router
}

// fakePipeline reports each Run on calls and finishes when release yields.
type fakePipeline struct {
	calls   chan call
	release chan struct{}
	res     pipeline.Result
	err     error
}

func newFakePipeline(res pipeline.Result, err error) *fakePipeline {
	return &fakePipeline{calls: make(chan call, 4), release: make(chan struct{}), res: res, err: err}
}

func (f *fakePipeline) Name() string { return "fake" }

func (f *fakePipeline) Run(ctx context.Context, router *delivery.Router) (pipeline.Result, error) {
	f.calls <- call{router: router}
	select {
	case <-f.release:
		return f.res, f.err
	case <-ctx.Done():
		return pipeline.Result{}, ctx.Err()
	}
}

func startServer(t *testing.T, ctx context.Context) *singleinstance.Server {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	lis.Close()

	srv := singleinstance.NewServer(singleinstance.PortRange{Start: port, End: port})
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback listener unavailable: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func waitCall(t *testing.T, f *fakePipeline) call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("pipeline was not run")
		return call{}
	}
}

func TestTriggerUsesDefaultRouter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fp := newFakePipeline(pipeline.Result{Path: "shot.png"}, nil)
	close(fp.release)
	router := &delivery.Router{}
	statuses := make(chan string, 8)
	loop := New(Options{Pipeline: fp, Router: router, Status: func(s string) { statuses <- s }})

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	loop.Trigger()
	if c := waitCall(t, fp); c.router != router {
		t.Error("trigger must use the default router")
	}

	// idle at start, busy, then idle again after the result
	want := []string{idleStatus, busyStatus, idleStatus}
	for i, w := range want {
		select {
		case got := <-statuses:
			if got != w {
				t.Errorf("status %d = %q, want %q", i, got, w)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("missing status %d", i)
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDelegatedStdoutReturnsText(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv := startServer(t, ctx)

	fp := newFakePipeline(pipeline.Result{Text: "识别结果"}, nil)
	close(fp.release)
	loop := New(Options{Pipeline: fp, Router: &delivery.Router{}, Server: srv})
	go loop.Run(ctx)

	client := singleinstance.NewClient(singleinstance.PortRange{Start: srv.Port(), End: srv.Port()})
	delegated, text, err := client.TryRunOnce(ctx, singleinstance.Request{OutputToStdout: true})
	if err != nil || !delegated {
		t.Fatalf("TryRunOnce: delegated=%v err=%v", delegated, err)
	}
	if text != "识别结果" {
		t.Errorf("Expected recognized text, got %q", text)
	}
	if c := waitCall(t, fp); c.router.Sink != delivery.Discard {
		t.Error("stdout request must not deliver to the host")
	}
}

func TestDelegatedFailureIsReported(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv := startServer(t, ctx)

	fp := newFakePipeline(pipeline.Result{}, errors.New("no display"))
	close(fp.release)
	loop := New(Options{Pipeline: fp, Server: srv})
	go loop.Run(ctx)

	client := singleinstance.NewClient(singleinstance.PortRange{Start: srv.Port(), End: srv.Port()})
	_, _, err := client.TryRunOnce(ctx, singleinstance.Request{})
	var remote *singleinstance.RemoteError
	if !errors.As(err, &remote) || !strings.Contains(remote.Message, "no display") {
		t.Errorf("Expected remote error with cause, got %v", err)
	}
}

func TestBusyRejectsDelegatedRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv := startServer(t, ctx)

	fp := newFakePipeline(pipeline.Result{Path: "shot.png"}, nil)
	loop := New(Options{Pipeline: fp, Server: srv})
	go loop.Run(ctx)

	loop.Trigger()
	waitCall(t, fp)

	client := singleinstance.NewClient(singleinstance.PortRange{Start: srv.Port(), End: srv.Port()})
	_, _, err := client.TryRunOnce(ctx, singleinstance.Request{})
	var remote *singleinstance.RemoteError
	if !errors.As(err, &remote) || remote.Message != ErrBusy.Error() {
		t.Errorf("Expected busy rejection, got %v", err)
	}
	close(fp.release)
}

func TestPayload(t *testing.T) {
	tests := []struct {
		res    pipeline.Result
		stdout bool
		want   string
	}{
		{pipeline.Result{Path: "a.png"}, false, "a.png"},
		{pipeline.Result{Path: "a.png"}, true, "a.png"},
		{pipeline.Result{Text: "x"}, true, "x"},
		{pipeline.Result{Text: "x"}, false, ""},
	}
	for _, tt := range tests {
		if got := payload(tt.res, tt.stdout); got != tt.want {
			t.Errorf("payload(%+v, %v) = %q, want %q", tt.res, tt.stdout, got, tt.want)
		}
	}
}

// syncBuffer lets the loop goroutine log while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTriggerResultIsSanitizedInLog(t *testing.T) {
	var logs syncBuffer
	prev := log.Writer()
	log.SetOutput(&logs)
	defer log.SetOutput(prev)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fp := newFakePipeline(pipeline.Result{Text: "line1\n2026/01/01 forged"}, nil)
	close(fp.release)
	statuses := make(chan string, 8)
	loop := New(Options{Pipeline: fp, Status: func(s string) { statuses <- s }})
	go loop.Run(ctx)

	loop.Trigger()
	waitCall(t, fp)
	for seen := 0; seen < 3; seen++ {
		select {
		case <-statuses:
		case <-time.After(3 * time.Second):
			t.Fatal("result was not handled")
		}
	}

	out := logs.String()
	if !strings.Contains(out, `Text recognized: line1\n2026/01/01 forged`) {
		t.Errorf("Expected escaped text in log, got %q", out)
	}
	if strings.Contains(out, "\n2026/01/01 forged") {
		t.Error("raw newline from recognized text reached the log")
	}
}
