//go:build darwin

package batch

import (
	"runtime"
	"syscall"
)

// detectWorkers counts Apple Silicon performance cores, then physical
// cores, then logical CPUs.
func detectWorkers() int {
	for _, name := range []string{"hw.perflevel0.physicalcpu", "hw.physicalcpu"} {
		if n := sysctlInt(name); n > 0 {
			return int(n)
		}
	}
	return runtime.NumCPU()
}

// sysctlInt decodes a little-endian sysctl value.
func sysctlInt(name string) uint64 {
	raw, err := syscall.Sysctl(name)
	if err != nil {
		return 0
	}
	var n uint64
	for i := 0; i < len(raw) && i < 8; i++ {
		n |= uint64(raw[i]) << (uint(i) * 8)
	}
	return n
}

// detectMemory has no cheap source for free memory on macOS; 75% of
// hw.memsize stands in for it.
func detectMemory() (total, available int64) {
	total = int64(sysctlInt("hw.memsize"))
	return total, total * 3 / 4
}
