// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package parallel implements the index-range parallel loop used by batch
// prediction. Every index in the range is visited exactly once; the mapping
// of indexes to workers depends on the Schedule.
package parallel

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// MaxWorkers returns the largest worker count Configure accepts.
func MaxWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// ThreadConfig fixes the number of workers used by For.
type ThreadConfig struct {
	NumWorker int
}

// Configure returns a ThreadConfig for n workers. A non-positive n selects
// MaxWorkers. Asking for more than MaxWorkers is an error.
func Configure(n int) (ThreadConfig, error) {
	maxWorkers := MaxWorkers()
	if n <= 0 {
		n = maxWorkers
	}
	if n > maxWorkers {
		return ThreadConfig{}, errors.Newf("requested %d workers, but at most %d are available", n, maxWorkers)
	}
	return ThreadConfig{NumWorker: n}, nil
}

// ScheduleKind selects how For hands out indexes.
type ScheduleKind uint8

const (
	// ScheduleStatic splits the range into one contiguous block per worker.
	ScheduleStatic ScheduleKind = iota
	// ScheduleDynamic hands out fixed size chunks on demand.
	ScheduleDynamic
	// ScheduleGuided hands out chunks on demand, each proportional to the
	// remaining work divided by the worker count.
	ScheduleGuided
)

// Schedule describes how For distributes indexes across workers.
type Schedule struct {
	Kind ScheduleKind
	// Chunk is the chunk size for ScheduleDynamic, and the minimum chunk size
	// for ScheduleGuided.
	Chunk int
}

// Static returns a static schedule.
func Static() Schedule { return Schedule{Kind: ScheduleStatic} }

// Dynamic returns a dynamic schedule handing out chunk indexes at a time.
func Dynamic(chunk int) Schedule { return Schedule{Kind: ScheduleDynamic, Chunk: max(chunk, 1)} }

// Guided returns a guided schedule.
func Guided() Schedule { return Schedule{Kind: ScheduleGuided, Chunk: 1} }

// String implements fmt.Stringer.
func (s Schedule) String() string {
	switch s.Kind {
	case ScheduleStatic:
		return "static"
	case ScheduleDynamic:
		return fmt.Sprintf("dynamic(%d)", s.Chunk)
	case ScheduleGuided:
		return "guided"
	default:
		return fmt.Sprintf("unknown(%d)", s.Kind)
	}
}

// ParseSchedule parses the names produced by Schedule.String, plus the bare
// name "dynamic" (chunk size 1).
func ParseSchedule(s string) (Schedule, error) {
	switch s {
	case "static", "":
		return Static(), nil
	case "guided":
		return Guided(), nil
	case "dynamic":
		return Dynamic(1), nil
	}
	var chunk int
	if _, err := fmt.Sscanf(s, "dynamic(%d)", &chunk); err == nil && chunk > 0 {
		return Dynamic(chunk), nil
	}
	return Schedule{}, errors.Newf("unknown schedule %q", s)
}

// For calls fn(i, worker) for every i in [begin, end). The worker argument is
// in [0, cfg.NumWorker) and identifies the goroutine making the call, so fn
// may use it to index per-worker scratch space. If any call returns an error,
// remaining indexes may be skipped and the first error is returned.
func For(begin, end int, cfg ThreadConfig, sched Schedule, fn func(i, worker int) error) error {
	if end <= begin {
		return nil
	}
	numWorker := max(cfg.NumWorker, 1)
	if n := end - begin; numWorker > n {
		numWorker = n
	}
	if numWorker == 1 {
		for i := begin; i < end; i++ {
			if err := fn(i, 0); err != nil {
				return err
			}
		}
		return nil
	}

	var failed atomic.Bool
	run := func(lo, hi, worker int) error {
		for i := lo; i < hi; i++ {
			if failed.Load() {
				return nil
			}
			if err := fn(i, worker); err != nil {
				failed.Store(true)
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	switch sched.Kind {
	case ScheduleStatic:
		n := end - begin
		for w := 0; w < numWorker; w++ {
			lo := begin + n*w/numWorker
			hi := begin + n*(w+1)/numWorker
			g.Go(func() error { return run(lo, hi, w) })
		}

	case ScheduleDynamic, ScheduleGuided:
		var next atomic.Int64
		next.Store(int64(begin))
		minChunk := max(sched.Chunk, 1)
		claim := func() (int, int, bool) {
			for {
				lo := next.Load()
				if lo >= int64(end) {
					return 0, 0, false
				}
				chunk := int64(minChunk)
				if sched.Kind == ScheduleGuided {
					chunk = max((int64(end)-lo)/int64(2*numWorker), chunk)
				}
				hi := min(lo+chunk, int64(end))
				if next.CompareAndSwap(lo, hi) {
					return int(lo), int(hi), true
				}
			}
		}
		for w := 0; w < numWorker; w++ {
			g.Go(func() error {
				for {
					lo, hi, ok := claim()
					if !ok || failed.Load() {
						return nil
					}
					if err := run(lo, hi, w); err != nil {
						return err
					}
				}
			})
		}

	default:
		return errors.AssertionFailedf("unknown schedule kind %d", sched.Kind)
	}
	return g.Wait()
}
