//go:build !darwin

package cpuvendor

func brandString() string { return "" }
