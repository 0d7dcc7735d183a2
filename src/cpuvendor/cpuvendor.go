// Package cpuvendor detects the CPU vendor once per process.
package cpuvendor

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

// Vendor identifies the CPU family the OCR binary variant is chosen by.
type Vendor string

const (
	Apple   Vendor = "Apple"
	Intel   Vendor = "GenuineIntel"
	AMD     Vendor = "AuthenticAMD"
	Unknown Vendor = "Unknown"
)

// IsApple reports whether v names Apple silicon.
func (v Vendor) IsApple() bool { return v == Apple }

// Parse normalizes a vendor or brand string. Anything mentioning Apple maps
// to Apple; empty input maps to Unknown.
func Parse(s string) Vendor {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	switch {
	case s == "":
		return Unknown
	case strings.Contains(lower, "apple"):
		return Apple
	case strings.Contains(lower, "intel"):
		return Intel
	case strings.Contains(lower, "amd"):
		return AMD
	default:
		return Vendor(s)
	}
}

const probeTimeout = 2 * time.Second

// Detect probes the running machine.
func Detect() Vendor {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		log.Printf("cpuvendor: gopsutil probe failed: %v", err)
	}
	for _, info := range infos {
		// Apple silicon may report an empty vendor but an "Apple M*" model.
		if Parse(info.VendorID) == Apple || Parse(info.ModelName) == Apple {
			return Apple
		}
		if v := Parse(info.VendorID); v != Unknown {
			return v
		}
	}
	return Parse(brandString())
}

// Cache holds a vendor computed at most once. The zero value detects with
// Detect on first Get.
type Cache struct {
	once   sync.Once
	value  Vendor
	detect func() Vendor
}

// NewCache returns a cache that calls detect on first use.
func NewCache(detect func() Vendor) *Cache {
	return &Cache{detect: detect}
}

// Fixed returns a cache pinned to v, for overrides and tests.
func Fixed(v Vendor) *Cache {
	return NewCache(func() Vendor { return v })
}

// Get returns the cached vendor, detecting it on the first call.
func (c *Cache) Get() Vendor {
	c.once.Do(func() {
		detect := c.detect
		if detect == nil {
			detect = Detect
		}
		c.value = detect()
		log.Printf("cpuvendor: detected %s", c.value)
	})
	return c.value
}
