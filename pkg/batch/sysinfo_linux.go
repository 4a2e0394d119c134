//go:build linux

package batch

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// detectWorkers prefers performance cores on hybrid CPUs and falls back to
// all logical CPUs.
func detectWorkers() int {
	if n := perfCores(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// perfCores groups /proc/cpuinfo entries by core id and counts the cores
// running within 10% of the mean frequency. It returns 0 when the cores look
// homogeneous or cpuinfo is unreadable.
func perfCores() int {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	freqs := make(map[int]float64)
	coreID := -1
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch key {
		case "core id":
			if id, err := strconv.Atoi(val); err == nil {
				coreID = id
			}
		case "cpu MHz":
			mhz, err := strconv.ParseFloat(val, 64)
			if err != nil || coreID < 0 {
				continue
			}
			if mhz > freqs[coreID] {
				freqs[coreID] = mhz
			}
		}
	}
	if len(freqs) <= 2 {
		return 0
	}

	var sum float64
	for _, mhz := range freqs {
		sum += mhz
	}
	mean := sum / float64(len(freqs))
	n := 0
	for _, mhz := range freqs {
		if mhz >= mean*0.9 {
			n++
		}
	}
	if n == len(freqs) {
		return 0
	}
	return n
}

// detectMemory reads MemTotal and MemAvailable (in bytes) from
// /proc/meminfo. Kernels without MemAvailable get MemFree+Buffers+Cached.
func detectMemory() (total, available int64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	kb := make(map[string]int64)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		kb[strings.TrimSuffix(fields[0], ":")] = n
	}

	total = kb["MemTotal"] * KB
	available, ok := kb["MemAvailable"]
	if !ok {
		available = kb["MemFree"] + kb["Buffers"] + kb["Cached"]
	}
	return total, available * KB
}
