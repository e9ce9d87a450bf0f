// Package parallel provides the generic worker-pool and record-fan-out
// primitives shared by the index builder and the graph analyzer.
package parallel

import (
	"runtime"
)

// Config configures a parallel stage.
type Config struct {
	// Workers is the number of concurrent workers. Default: min(cores, 4).
	Workers int
}

// DefaultConfig returns the default worker-pool configuration.
func DefaultConfig() Config {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	if workers < 1 {
		workers = 1
	}
	return Config{Workers: workers}
}

// WithWorkers returns a copy of c with Workers overridden, unless n <= 0.
func (c Config) WithWorkers(n int) Config {
	if n > 0 {
		c.Workers = n
	}
	return c
}
