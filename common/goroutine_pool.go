package common

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
	"github.com/shirou/gopsutil/v3/cpu"
	log "github.com/sirupsen/logrus"
)

type PoolConfig struct {
	// MaxWorkers bounds concurrent tasks. Zero or less selects the number
	// of logical CPUs.
	MaxWorkers int
}

// DefaultWorkers returns the number of logical CPUs, or 1 when it cannot be read
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		log.Warnf("DefaultWorkers: failed to read logical cpu count (n=%d, err=%v), using 1", n, err)
		return 1
	}
	return n
}

func NewPool(config PoolConfig) (*ants.Pool, error) {
	workers := config.MaxWorkers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants goroutine pool with %d workers: %w", workers, err)
	}
	log.Debugf("NewPool: created goroutine pool, workers: %d", workers)

	return pool, nil
}
