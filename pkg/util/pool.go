package util

import "runtime"

// GetOptimalPoolSize returns how many parsers or verification goroutines to
// run at once: twice the CPU count, at least 2 and at most 16.
//
// Tree-sitter parsing is CGO-bound, so more workers than cores keeps the
// cores busy while goroutines wait on CGO calls. A bundle verification run
// touches a handful of artifacts, so the cap is lower than for indexing.
func GetOptimalPoolSize() int {
	size := runtime.NumCPU() * 2
	if size < 2 {
		size = 2
	}
	if size > 16 {
		size = 16
	}
	return size
}

// GetOptimalPoolSizeWithOverride returns override when positive, otherwise
// GetOptimalPoolSize().
func GetOptimalPoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return GetOptimalPoolSize()
}
