// Package eventloop coordinates resident mode: hotkey and tray triggers
// plus delegated run-once requests, one invocation at a time.
package eventloop

import (
	"context"
	"errors"
	"log"
	"time"

	"screen-capture-ocr/src/delivery"
	"screen-capture-ocr/src/logutil"
	"screen-capture-ocr/src/notification"
	"screen-capture-ocr/src/pipeline"
	"screen-capture-ocr/src/singleinstance"
	"screen-capture-ocr/src/worker"
)

var ErrBusy = errors.New("busy, please retry")

const (
	idleStatus = "Screen Capture OCR"
	busyStatus = "Screen Capture OCR: working..."
)

// Options configures a Loop.
type Options struct {
	Pipeline pipeline.Pipeline
	// Router delivers text for hotkey, tray and non-stdout delegated requests.
	Router *delivery.Router
	// Server accepts delegated requests; nil disables delegation.
	Server *singleinstance.Server
	// Deadline bounds each invocation; zero means no extra bound.
	Deadline time.Duration
	// Status receives tooltip text when the loop turns busy or idle.
	Status func(string)
}

// Loop is the single-goroutine coordinator. All state below is owned by Run.
type Loop struct {
	opts     Options
	pool     *worker.Pool
	busy     bool
	results  chan result
	triggers chan struct{}
}

type result struct {
	res    pipeline.Result
	err    error
	conn   *singleinstance.Conn
	cancel context.CancelFunc
}

func New(opts Options) *Loop {
	if opts.Router == nil {
		opts.Router = &delivery.Router{}
	}
	return &Loop{
		opts:     opts,
		pool:     worker.New(opts.Pipeline, 1),
		results:  make(chan result, 1),
		triggers: make(chan struct{}, 1),
	}
}

// Trigger requests one invocation from the hotkey or tray. It never
// blocks; a trigger arriving while one is pending is dropped.
func (l *Loop) Trigger() {
	select {
	case l.triggers <- struct{}{}:
	default:
		log.Printf("eventloop: trigger dropped, one already pending")
	}
}

// Run serves triggers and delegated requests until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.pool.Close()
	l.setBusy(false)

	var reqCh chan *singleinstance.Conn
	if l.opts.Server != nil {
		reqCh = make(chan *singleinstance.Conn)
		go func() {
			defer close(reqCh)
			for {
				conn, err := l.opts.Server.Next(ctx)
				if err != nil {
					return
				}
				select {
				case reqCh <- conn:
				case <-ctx.Done():
					_ = conn.Close()
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.triggers:
			l.start(ctx, nil, l.opts.Router)
		case conn, ok := <-reqCh:
			if !ok {
				reqCh = nil
				continue
			}
			l.handleConn(ctx, conn)
		case r := <-l.results:
			l.handleResult(r)
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn *singleinstance.Conn) {
	router := l.opts.Router
	if conn.Request().OutputToStdout {
		router = &delivery.Router{Sink: delivery.Discard, Focus: delivery.Discard}
	}
	l.start(ctx, conn, router)
}

func (l *Loop) start(ctx context.Context, conn *singleinstance.Conn, router *delivery.Router) {
	if l.busy {
		l.reject(conn)
		return
	}

	jobCtx, cancel := ctx, context.CancelFunc(func() {})
	if l.opts.Deadline > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, l.opts.Deadline)
	}

	l.setBusy(true)
	submitted := l.pool.Submit(jobCtx, router, func(res pipeline.Result, err error) {
		l.results <- result{res: res, err: err, conn: conn, cancel: cancel}
	})
	if !submitted {
		cancel()
		l.setBusy(false)
		l.reject(conn)
	}
}

func (l *Loop) reject(conn *singleinstance.Conn) {
	log.Printf("eventloop: %v", ErrBusy)
	if conn == nil {
		notification.ShowError("Screen Capture OCR", ErrBusy)
		return
	}
	_ = conn.RespondError(ErrBusy.Error())
	_ = conn.Close()
}

func (l *Loop) handleResult(r result) {
	defer func() {
		l.setBusy(false)
		r.cancel()
	}()

	if r.conn != nil {
		defer r.conn.Close()
		if r.err != nil {
			_ = r.conn.RespondError(r.err.Error())
			return
		}
		_ = r.conn.RespondSuccess(payload(r.res, r.conn.Request().OutputToStdout))
		return
	}

	if r.err != nil {
		notification.ShowError("Capture failed", r.err)
		return
	}
	if r.res.Path != "" {
		notification.ShowResult("Screenshot saved", r.res.Path)
	} else {
		notification.ShowResult("Text recognized", logutil.Sanitize(r.res.Text))
	}
}

// payload is what a delegated caller prints: the saved path, or the text
// when the caller asked for it. Delivered text is not echoed back.
func payload(res pipeline.Result, stdout bool) string {
	if res.Path != "" {
		return res.Path
	}
	if stdout {
		return res.Text
	}
	return ""
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if l.opts.Status == nil {
		return
	}
	if b {
		l.opts.Status(busyStatus)
	} else {
		l.opts.Status(idleStatus)
	}
}
