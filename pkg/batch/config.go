package batch

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/scttfrdmn/bioconv-go/pkg/format"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
)

// Size units
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// Config holds settings for decoding several documents at once
type Config struct {
	// Resource allocation
	Workers      int   // Documents decoded concurrently (default: performance cores)
	MemoryBudget int64 // Input bytes admitted to decoding at once (default: 25% of RAM, capped at available)

	// Decoding
	Mode    source.Mode          // Framing applied to every input
	Options format.DecodeOptions // Optional columns

	availableMemory int64
}

// NewConfig creates a Config with smart defaults
func NewConfig() *Config {
	mem := systemMemory()
	return &Config{
		Workers:         detectWorkers(),
		MemoryBudget:    min(mem.Total/4, mem.Available),
		Mode:            source.Raw,
		availableMemory: mem.Available,
	}
}

// Validate checks configuration and warns about settings that are legal but
// unlikely to help.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if c.Workers > 64 {
		fmt.Fprintf(os.Stderr, "Warning: Workers > 64 may cause diminishing returns\n")
	}
	if c.MemoryBudget < 1 {
		return fmt.Errorf("memory budget must be positive")
	}
	if c.availableMemory > 0 && c.MemoryBudget > c.availableMemory {
		return fmt.Errorf("memory budget (%.1f GB) exceeds available memory (%.1f GB)",
			float64(c.MemoryBudget)/GB, float64(c.availableMemory)/GB)
	}
	return nil
}

// ShowConfig prints the effective configuration
func (c *Config) ShowConfig(w io.Writer) {
	mem := systemMemory()

	fmt.Fprintf(w, "System Information:\n")
	fmt.Fprintf(w, "  Total RAM: %.1f GB\n", float64(mem.Total)/GB)
	fmt.Fprintf(w, "  Available RAM: %.1f GB\n", float64(mem.Available)/GB)
	total := runtime.NumCPU()
	if optimal := detectWorkers(); optimal < total {
		fmt.Fprintf(w, "  CPU cores: %d total (%d performance, %d efficiency)\n",
			total, optimal, total-optimal)
	} else {
		fmt.Fprintf(w, "  CPU cores: %d\n", total)
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "  Workers: %d\n", c.Workers)
	fmt.Fprintf(w, "  Memory budget: %.1f GB\n", float64(c.MemoryBudget)/GB)
	fmt.Fprintf(w, "  Mode: %s\n", c.Mode)
	fmt.Fprintf(w, "  Description column: %t\n", c.Options.Description)
	fmt.Fprintf(w, "  Quality column: %t\n", c.Options.QualityScores)
	fmt.Fprintf(w, "\n")
}

// SystemMemory holds system memory information
type SystemMemory struct {
	Total     int64
	Available int64
}

func systemMemory() SystemMemory {
	total, available := detectMemory()
	if total == 0 {
		total = 16 * GB
		available = 12 * GB
	}
	return SystemMemory{Total: total, Available: available}
}

// ParseSize parses size strings such as "512K", "64M" or "2G" into bytes.
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "B")

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = KB
	case strings.HasSuffix(s, "M"):
		multiplier = MB
	case strings.HasSuffix(s, "G"):
		multiplier = GB
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size: %s", s)
	}
	return n * multiplier, nil
}
