// Package tray shows the resident-mode menu in the system tray.
package tray

import (
	"bytes"
	"image"
	"image/color"
	"log"
	"sync"

	"github.com/getlantern/systray"

	"screen-capture-ocr/src/frame"
	"screen-capture-ocr/src/imagefile"
)

const DefaultTooltip = "Screen Capture OCR"

const iconSize = 16

var (
	mu      sync.Mutex
	ready   bool
	tooltip = DefaultTooltip
)

// Menu describes the tray entries. Callbacks run on the tray's goroutine
// and must not block.
type Menu struct {
	Title     string
	About     string
	OnCapture func()
	OnQuit    func()
}

// Run shows the tray icon and blocks until Quit is called.
func Run(m Menu) {
	systray.Run(func() { onReady(m) }, func() {
		mu.Lock()
		ready = false
		mu.Unlock()
		log.Printf("tray: exited")
	})
}

// Quit removes the tray icon and makes Run return.
func Quit() { systray.Quit() }

// SetTooltip updates the tooltip, or remembers it until the tray is ready.
func SetTooltip(s string) {
	mu.Lock()
	defer mu.Unlock()
	tooltip = s
	if ready {
		systray.SetTooltip(s)
	}
}

func onReady(m Menu) {
	if icon, err := Icon(); err != nil {
		log.Printf("tray: icon render failed: %v", err)
	} else {
		systray.SetIcon(icon)
	}
	title := m.Title
	if title == "" {
		title = DefaultTooltip
	}
	systray.SetTitle(title)

	mu.Lock()
	ready = true
	systray.SetTooltip(tooltip)
	mu.Unlock()

	mCapture := systray.AddMenuItem("Capture Now", "Run capture or OCR once")
	if m.About != "" {
		mAbout := systray.AddMenuItem(m.About, "")
		mAbout.Disable()
	}
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the resident instance")

	go func() {
		for {
			select {
			case <-mCapture.ClickedCh:
				if m.OnCapture != nil {
					m.OnCapture()
				}
			case <-mQuit.ClickedCh:
				if m.OnQuit != nil {
					m.OnQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

// Icon renders the tray icon as PNG: a viewfinder frame with a dot.
func Icon() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	ink := color.RGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	for i := 1; i < iconSize-1; i++ {
		for _, p := range [][2]int{{i, 1}, {i, iconSize - 2}, {1, i}, {iconSize - 2, i}} {
			// gaps in the middle of each edge give the viewfinder corners
			if i > 5 && i < iconSize-6 {
				continue
			}
			img.SetRGBA(p[0], p[1], ink)
		}
	}
	for y := 6; y < 10; y++ {
		for x := 6; x < 10; x++ {
			img.SetRGBA(x, y, ink)
		}
	}

	var buf bytes.Buffer
	pix := &frame.Image{Pix: img.Pix, Width: iconSize, Height: iconSize}
	if err := imagefile.Encode(&buf, pix, imagefile.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
