package slackfs

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ParallelConfig controls concurrent probing of candidate files while the
// index is built. Each probe asks the accessor for metadata and capacity,
// which for BmapAccessor means one bmap process per file.
type ParallelConfig struct {
	// Enabled enables parallel probing
	Enabled bool `yaml:"enabled"`

	// MaxWorkers is the maximum number of worker goroutines
	// If 0, defaults to runtime.NumCPU()
	MaxWorkers int `yaml:"max_workers"`

	// MinFilesForParallel is the minimum number of candidate files to probe
	// in parallel. Below this threshold probing is sequential.
	MinFilesForParallel int `yaml:"min_files"`
}

// Validate checks if the parallel configuration is valid
func (p *ParallelConfig) Validate() error {
	if !p.Enabled {
		return nil
	}

	if p.MaxWorkers < 0 {
		return errors.New("parallel max workers cannot be negative")
	}
	if p.MaxWorkers > 1024 {
		return errors.New("parallel max workers must not exceed 1024")
	}
	if p.MinFilesForParallel < 1 {
		return errors.New("parallel min files threshold must be at least 1")
	}

	return nil
}

// DefaultParallelConfig returns the default parallel probing configuration
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		Enabled:             true,
		MaxWorkers:          runtime.NumCPU(),
		MinFilesForParallel: 64,
	}
}

// probeJob is the outcome of probing one candidate file
type probeJob struct {
	path string
	slot Slot
	skip string // reason the file is not a slot, empty when usable
	err  error
}

// probe queries one file. Vanished files and unusable identifiers are
// skipped, every other accessor error is fatal.
func probe(accessor SlotAccessor, path string, minCapacity int) probeJob {
	job := probeJob{path: path}

	id, mtime, err := accessor.Metadata(path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			job.skip = "file vanished during indexing"
			return job
		}
		job.err = NewAccessorError("metadata", path, err)
		return job
	}
	if err := ValidateSlotID(id); err != nil {
		job.skip = fmt.Sprintf("unusable slot identifier: %v", err)
		return job
	}

	capacity, err := accessor.Capacity(path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			job.skip = "file vanished during indexing"
			return job
		}
		job.err = NewAccessorError("capacity", path, err)
		return job
	}
	if capacity < minCapacity {
		job.skip = "slack below minimum capacity"
		return job
	}

	job.slot = Slot{ID: id, Path: path, LastModified: mtime, Capacity: capacity}
	return job
}

// probeAll probes paths and returns one job per path in input order, so the
// resulting index does not depend on scheduling.
func probeAll(accessor SlotAccessor, paths []string, minCapacity int, cfg ParallelConfig) []probeJob {
	jobs := make([]probeJob, len(paths))

	numWorkers := cfg.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(paths) {
		numWorkers = len(paths)
	}

	if !cfg.Enabled || len(paths) < cfg.MinFilesForParallel || numWorkers < 2 {
		for i, path := range paths {
			jobs[i] = probe(accessor, path, minCapacity)
		}
		return jobs
	}

	var wg sync.WaitGroup
	jobChan := make(chan int, len(paths))

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			current := -1
			defer func() {
				if r := recover(); r != nil && current >= 0 {
					// Convert panic to error
					jobs[current] = probeJob{
						path: paths[current],
						err:  NewAccessorError("probe", paths[current], fmt.Errorf("panic in probe worker: %v", r)),
					}
				}
			}()
			for idx := range jobChan {
				current = idx
				jobs[idx] = probe(accessor, paths[idx], minCapacity)
			}
		}()
	}

	for i := range paths {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	// every worker panicked before the queue drained
	for i := range jobs {
		if jobs[i].path == "" {
			jobs[i] = probeJob{path: paths[i], err: NewAccessorError("probe", paths[i], errors.New("not probed"))}
		}
	}
	return jobs
}
