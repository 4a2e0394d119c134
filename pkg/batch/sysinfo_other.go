//go:build !darwin && !linux

package batch

import "runtime"

func detectWorkers() int {
	return runtime.NumCPU()
}

// detectMemory reports nothing; systemMemory substitutes defaults.
func detectMemory() (total, available int64) {
	return 0, 0
}
