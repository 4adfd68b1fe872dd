// Package pipeline implements the parallel row-partitioned processing
// frame: row indices fan out to a bounded pool of
// workers, each worker computes one row vector at a time from shared
// read-only inputs, and an aggregator consumes (row, data) results in
// arrival order, landing each row exactly once and ticking progress.
//
// Partitioning is stride-based — worker t owns rows r with r % N == t —
// because per-row cost varies with content (points in a neighbourhood,
// NoData runs) and striding spreads expensive regions across workers
// without work stealing.
package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/haldane-gis/geocore/internal/gcerr"
	"github.com/haldane-gis/geocore/internal/progress"
	"github.com/haldane-gis/geocore/internal/raster"
	"github.com/haldane-gis/geocore/internal/timeutil"
)

// RowFunc computes one output row. It must be pure in its shared
// inputs: the determinism guarantee (pipeline output equals the
// single-threaded output for any worker count) holds only for pure
// per-row computations.
type RowFunc func(row int) ([]float64, error)

// Config controls a pipeline run.
type Config struct {
	// Workers caps the pool size; 0 means runtime.NumCPU(). The
	// effective count is further capped at the number of rows.
	Workers int
	// Clock supplies the elapsed-time measurement; nil means RealClock.
	Clock timeutil.Clock
	// Progress, when non-nil, is ticked once per row landed.
	Progress *progress.Reporter
}

type rowResult struct {
	row  int
	data []float64
	err  error
}

func (c Config) workers(rows int) int {
	n := c.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > rows {
		n = rows
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (c Config) clock() timeutil.Clock {
	if c.Clock == nil {
		return timeutil.RealClock{}
	}
	return c.Clock
}

// Run fans rows out across the configured workers and hands each
// computed row to sink. Sink is called only from the aggregator
// goroutine (the caller's goroutine), so it may mutate an output raster
// without locking. A row error stops that worker and fails the run;
// every row that did complete before the failure has already been
// handed to sink, but Run's contract on error is only that sink saw a
// subset — callers must not persist a partial output.
func Run(cfg Config, rows int, fn RowFunc, sink func(row int, data []float64) error) (time.Duration, error) {
	clock := cfg.clock()
	start := clock.Now()
	if rows <= 0 {
		return clock.Since(start), nil
	}
	n := cfg.workers(rows)

	// Bounded so fast workers can't outpace the aggregator's RAM
	// budget: at most 2N rows are in flight at once.
	results := make(chan rowResult, 2*n)
	var wg sync.WaitGroup
	for t := 0; t < n; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					results <- rowResult{err: gcerr.New(gcerr.Internal, "pipeline.Run", fmt.Sprintf("worker panic: %v", p))}
				}
			}()
			for row := t; row < rows; row += n {
				data, err := fn(row)
				if err != nil {
					results <- rowResult{row: row, err: err}
					return
				}
				results <- rowResult{row: row, data: data}
			}
		}(t)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	written := 0
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		if firstErr != nil {
			continue // drain; workers already landed these rows in flight
		}
		if err := sink(res.row, res.data); err != nil {
			firstErr = err
			continue
		}
		written++
		if cfg.Progress != nil {
			cfg.Progress.Tick()
		}
	}
	if firstErr != nil {
		return clock.Since(start), firstErr
	}
	if written != rows {
		return clock.Since(start), gcerr.New(gcerr.Internal, "pipeline.Run",
			fmt.Sprintf("aggregator landed %d of %d rows", written, rows))
	}
	return clock.Since(start), nil
}

// RunRaster runs fn over every row of out, landing each result with
// SetRowData and appending an elapsed-time metadata entry on success —
// the audit trail every derived raster carries.
func RunRaster(cfg Config, out *raster.Raster, fn RowFunc) error {
	elapsed, err := Run(cfg, out.Rows(), fn, func(row int, data []float64) error {
		return out.SetRowData(row, data)
	})
	if err != nil {
		return err
	}
	out.AddMetadataEntry(fmt.Sprintf("Elapsed time: %v", elapsed))
	return nil
}
