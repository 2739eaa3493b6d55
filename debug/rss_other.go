//go:build !windows

package debug

import "runtime"

// processRSS approximates resident memory with the runtime's total mapped bytes.
func processRSS() (uint64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.Sys, nil
}
