package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"screen-capture-ocr/src/frame"
)

const (
	// MaxInterval is one display refresh at 60 Hz; polls never sleep longer.
	MaxInterval = time.Second / 60
	// DefaultMaxAttempts allows roughly five minutes of device warm-up.
	DefaultMaxAttempts = 5 * 60 * 60
)

// SleepFunc pauses between attempts. It returns early with ctx.Err() when
// the context ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy bounds the poll loop in Acquire.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       SleepFunc
}

// DefaultPolicy polls every 1/60 s for up to DefaultMaxAttempts attempts.
func DefaultPolicy() Policy {
	return Policy{Interval: MaxInterval, MaxAttempts: DefaultMaxAttempts, Sleep: sleepContext}
}

func (p Policy) withDefaults() Policy {
	if p.Interval <= 0 || p.Interval > MaxInterval {
		p.Interval = MaxInterval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Acquire polls dev until it yields one frame. ErrWouldBlock is retried
// after policy.Interval; any other error ends the loop immediately.
func Acquire(ctx context.Context, dev Device, policy Policy) (frame.Buffer, error) {
	policy = policy.withDefaults()

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return frame.Buffer{}, err
		}

		buf, err := dev.Frame()
		if err == nil {
			if attempt > 1 {
				log.Printf("capture: frame ready after %d attempts", attempt)
			}
			return buf, nil
		}
		if !errors.Is(err, ErrWouldBlock) {
			return frame.Buffer{}, fmt.Errorf("%w: %w", ErrFrame, err)
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if err := policy.Sleep(ctx, policy.Interval); err != nil {
			return frame.Buffer{}, err
		}
	}
	return frame.Buffer{}, fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, policy.MaxAttempts)
}
