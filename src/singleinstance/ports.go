package singleinstance

import (
	"os"
	"strconv"
)

const (
	DefaultPortStart = 49500
	DefaultPortEnd   = 49550
)

// PortRange is an inclusive range of loopback ports a resident may bind.
type PortRange struct {
	Start int
	End   int
}

// PortRangeFromEnv reads SINGLEINSTANCE_PORT_START and SINGLEINSTANCE_PORT_END.
// Invalid values fall back to the defaults; the result is clamped to
// [1024, 65535] and ordered.
func PortRangeFromEnv() PortRange {
	r := PortRange{
		Start: envPort("SINGLEINSTANCE_PORT_START", DefaultPortStart),
		End:   envPort("SINGLEINSTANCE_PORT_END", DefaultPortEnd),
	}
	return r.normalize()
}

func (r PortRange) normalize() PortRange {
	if r.Start == 0 && r.End == 0 {
		return PortRange{Start: DefaultPortStart, End: DefaultPortEnd}
	}
	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	if r.Start < 1024 {
		r.Start = 1024
	}
	if r.End > 65535 {
		r.End = 65535
	}
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}

func envPort(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
