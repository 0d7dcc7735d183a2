//go:build darwin

package cpuvendor

import "golang.org/x/sys/unix"

// brandString reads the CPU brand from sysctl; Apple silicon reports
// "Apple M1" and similar.
func brandString() string {
	s, err := unix.Sysctl("machdep.cpu.brand_string")
	if err != nil {
		return ""
	}
	return s
}
