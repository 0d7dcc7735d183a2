// Package hotkey registers the global key combination that triggers a
// resident-mode invocation.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	gohook "github.com/robotn/gohook"
)

// repeatWindow swallows key auto-repeat of a held combination.
const repeatWindow = 500 * time.Millisecond

var ErrInvalidHotkey = errors.New("invalid hotkey")

var modifiers = map[string]bool{"ctrl": true, "alt": true, "shift": true, "cmd": true}

// Parse converts a combination such as "Ctrl+Alt+Q" into gohook key names.
// win and super map to cmd. Exactly one non-modifier key is required.
func Parse(combo string) ([]string, error) {
	var keys []string
	plain := 0
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			return nil, fmt.Errorf("%w %q: empty key", ErrInvalidHotkey, combo)
		case "control":
			part = "ctrl"
		case "option":
			part = "alt"
		case "win", "super", "command":
			part = "cmd"
		}
		if !modifiers[part] {
			plain++
		}
		keys = append(keys, part)
	}
	if plain != 1 {
		return nil, fmt.Errorf("%w %q: want exactly one non-modifier key", ErrInvalidHotkey, combo)
	}
	return keys, nil
}

// debouncer reports whether a press should fire.
type debouncer struct {
	mu     sync.Mutex
	last   time.Time
	window time.Duration
	now    func() time.Time
}

func (d *debouncer) fire() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if !d.last.IsZero() && now.Sub(d.last) < d.window {
		return false
	}
	d.last = now
	return true
}

// Listen registers combo and blocks, invoking callback on each press, until
// ctx is done.
func Listen(ctx context.Context, combo string, callback func()) error {
	keys, err := Parse(combo)
	if err != nil {
		return err
	}
	d := &debouncer{window: repeatWindow, now: time.Now}
	gohook.Register(gohook.KeyDown, keys, func(gohook.Event) {
		if !d.fire() {
			return
		}
		log.Printf("hotkey: %s pressed", combo)
		if callback != nil {
			callback()
		}
	})
	log.Printf("hotkey: listening for %s (%v)", combo, keys)

	events := gohook.Start()
	stop := context.AfterFunc(ctx, gohook.End)
	defer stop()
	<-gohook.Process(events)
	log.Printf("hotkey: listener stopped")
	return ctx.Err()
}
