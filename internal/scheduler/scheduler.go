// Package scheduler partitions a cycle's target set into bounded batches and
// drives their concurrent execution against the scan capability. Batches are
// independent: one batch failing never aborts, delays, or corrupts the
// others.
package scheduler

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/logging"
	"github.com/netsweep/netsweep/internal/scanning"
)

// Config holds batch scheduling settings.
type Config struct {
	// BatchSize is the maximum number of targets per scan invocation.
	BatchSize int
	// MaxConcurrency bounds the number of batches scanned in parallel.
	MaxConcurrency int
	// Ports is the port specification passed to each scan; empty leaves
	// port selection to the scanner.
	Ports string
	// Args carries extra scan arguments as a whitespace-separated string.
	Args string
}

// Outcome is the result of one batch invocation, keyed by batch index so
// aggregation tolerates out-of-order completion.
type Outcome struct {
	Index   int
	Targets []string
	Result  *scanning.Result
	Err     error
}

// Stats aggregates a cycle's batch outcomes.
type Stats struct {
	TargetCount  int
	BatchCount   int
	SuccessCount int
	FailCount    int
}

// BatchScheduler executes scans over partitioned target sets using a
// bounded worker pool.
type BatchScheduler struct {
	config  Config
	scanner scanning.Scanner
	logger  *logging.Logger
}

// New creates a scheduler driving the given scanner.
func New(config Config, scanner scanning.Scanner) *BatchScheduler {
	return &BatchScheduler{
		config:  config,
		scanner: scanner,
		logger:  logging.Default().WithComponent("scheduler"),
	}
}

// Partition splits targets into ceil(len/size) contiguous batches. The
// batches cover the input exactly once: no overlap, no omission.
func Partition(targets []string, size int) [][]string {
	if size <= 0 || len(targets) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(targets)+size-1)/size)
	for start := 0; start < len(targets); start += size {
		end := start + size
		if end > len(targets) {
			end = len(targets)
		}
		batches = append(batches, targets[start:end])
	}
	return batches
}

// Run partitions the targets and scans each batch on a worker pool bounded
// by MaxConcurrency. All outcomes are collected regardless of completion
// order; a failed batch is logged and counted, not retried. The returned
// slice is ordered by batch index.
func (s *BatchScheduler) Run(ctx context.Context, targets []string) ([]Outcome, Stats) {
	batches := Partition(targets, s.config.BatchSize)
	stats := Stats{
		TargetCount: len(targets),
		BatchCount:  len(batches),
	}
	if len(batches) == 0 {
		return nil, stats
	}

	s.logger.Info("Dispatching scan batches",
		"target_count", len(targets),
		"batch_count", len(batches),
		"batch_size", s.config.BatchSize,
		"max_concurrency", s.config.MaxConcurrency)

	outcomes := make([]Outcome, len(batches))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.config.MaxConcurrency)
	for i, batch := range batches {
		group.Go(func() error {
			result, err := s.scanner.Scan(groupCtx, batch, s.config.Ports, s.config.Args)
			if err != nil {
				err = errors.WrapScanErrorWithBatch(
					errors.GetCode(err), "scan batch failed", i, err)
			}
			// Each goroutine owns exactly one slot, so no lock is needed.
			outcomes[i] = Outcome{
				Index:   i,
				Targets: batch,
				Result:  result,
				Err:     err,
			}
			if err != nil {
				s.logger.Error("Scan batch failed",
					"batch", i,
					"targets", strings.Join(batch, " "),
					"error", err)
			} else {
				s.logger.Debug("Scan batch completed",
					"batch", i,
					"hosts", len(result.Hosts))
			}
			// Batch failures are absorbed here so sibling batches keep
			// running.
			return nil
		})
	}
	_ = group.Wait()

	for i := range outcomes {
		if outcomes[i].Err != nil {
			stats.FailCount++
		} else {
			stats.SuccessCount++
		}
	}
	return outcomes, stats
}
