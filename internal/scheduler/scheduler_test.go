package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/scanning"
)

// fakeScanner implements scanning.Scanner for testing. It can fail selected
// batches and tracks in-flight concurrency.
type fakeScanner struct {
	mu          sync.Mutex
	calls       [][]string
	failFor     map[string]bool
	delay       time.Duration
	inFlight    int32
	maxInFlight int32
}

func (f *fakeScanner) Scan(_ context.Context, targets []string, _, _ string) (*scanning.Result, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		observed := atomic.LoadInt32(&f.maxInFlight)
		if current <= observed || atomic.CompareAndSwapInt32(&f.maxInFlight, observed, current) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, targets)
	f.mu.Unlock()

	for _, target := range targets {
		if f.failFor[target] {
			return nil, errors.NewScanError(errors.CodeScanFailed, "batch failed")
		}
	}

	result := &scanning.Result{Stats: scanning.Stats{Total: len(targets)}}
	for _, target := range targets {
		result.Hosts = append(result.Hosts, scanning.Host{
			Address: target,
			Status:  "up",
			Ports:   []scanning.Port{{Number: 22, Protocol: "tcp", State: "open", Service: "ssh"}},
		})
		result.Stats.Up++
	}
	return result, nil
}

func makeTargets(n int) []string {
	targets := make([]string, n)
	for i := range targets {
		targets[i] = fmt.Sprintf("10.0.0.%d", i+1)
	}
	return targets
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name        string
		targetCount int
		batchSize   int
		wantBatches int
	}{
		{"exact multiple", 10, 5, 2},
		{"remainder batch", 3, 2, 2},
		{"single batch", 2, 10, 1},
		{"batch size one", 4, 1, 4},
		{"empty input", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := makeTargets(tt.targetCount)
			batches := Partition(targets, tt.batchSize)

			assert.Len(t, batches, tt.wantBatches)

			// Batches partition the input: no overlap, no omission, order
			// preserved.
			flattened := make([]string, 0, tt.targetCount)
			for _, batch := range batches {
				assert.LessOrEqual(t, len(batch), tt.batchSize)
				flattened = append(flattened, batch...)
			}
			assert.Equal(t, targets, flattened)
		})
	}

	t.Run("non-positive batch size yields nothing", func(t *testing.T) {
		assert.Nil(t, Partition(makeTargets(3), 0))
		assert.Nil(t, Partition(makeTargets(3), -1))
	})
}

func TestRun(t *testing.T) {
	t.Run("all batches succeed", func(t *testing.T) {
		scanner := &fakeScanner{}
		sched := New(Config{BatchSize: 2, MaxConcurrency: 2}, scanner)

		outcomes, stats := sched.Run(context.Background(), makeTargets(5))

		require.Len(t, outcomes, 3)
		assert.Equal(t, 5, stats.TargetCount)
		assert.Equal(t, 3, stats.BatchCount)
		assert.Equal(t, 3, stats.SuccessCount)
		assert.Equal(t, 0, stats.FailCount)

		for i, outcome := range outcomes {
			assert.Equal(t, i, outcome.Index)
			assert.NoError(t, outcome.Err)
			assert.NotNil(t, outcome.Result)
		}
	})

	t.Run("failed batch does not affect siblings", func(t *testing.T) {
		scanner := &fakeScanner{failFor: map[string]bool{"10.0.0.3": true}}
		sched := New(Config{BatchSize: 2, MaxConcurrency: 2}, scanner)

		outcomes, stats := sched.Run(context.Background(), makeTargets(3))

		require.Len(t, outcomes, 2)
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, outcomes[0].Targets)
		assert.NoError(t, outcomes[0].Err)
		require.NotNil(t, outcomes[0].Result)
		assert.Len(t, outcomes[0].Result.Hosts, 2)

		assert.Equal(t, []string{"10.0.0.3"}, outcomes[1].Targets)
		assert.Error(t, outcomes[1].Err)
		assert.Nil(t, outcomes[1].Result)

		// The batch index travels with the error and the original code is
		// preserved through the wrap.
		assert.True(t, errors.IsCode(outcomes[1].Err, errors.CodeScanFailed))
		assert.Contains(t, outcomes[1].Err.Error(), "batch: 1")

		assert.Equal(t, 1, stats.SuccessCount)
		assert.Equal(t, 1, stats.FailCount)
		assert.Equal(t, stats.BatchCount, stats.SuccessCount+stats.FailCount)
	})

	t.Run("concurrency stays within limit", func(t *testing.T) {
		scanner := &fakeScanner{delay: 20 * time.Millisecond}
		sched := New(Config{BatchSize: 1, MaxConcurrency: 3}, scanner)

		_, stats := sched.Run(context.Background(), makeTargets(12))

		assert.Equal(t, 12, stats.BatchCount)
		assert.LessOrEqual(t, atomic.LoadInt32(&scanner.maxInFlight), int32(3))
	})

	t.Run("empty target set runs nothing", func(t *testing.T) {
		scanner := &fakeScanner{}
		sched := New(Config{BatchSize: 2, MaxConcurrency: 2}, scanner)

		outcomes, stats := sched.Run(context.Background(), nil)

		assert.Nil(t, outcomes)
		assert.Equal(t, 0, stats.TargetCount)
		assert.Equal(t, 0, stats.BatchCount)
		assert.Empty(t, scanner.calls)
	})

	t.Run("success and fail counts always sum to batch count", func(t *testing.T) {
		scanner := &fakeScanner{failFor: map[string]bool{
			"10.0.0.2": true,
			"10.0.0.7": true,
		}}
		sched := New(Config{BatchSize: 3, MaxConcurrency: 4}, scanner)

		_, stats := sched.Run(context.Background(), makeTargets(10))

		assert.Equal(t, 4, stats.BatchCount)
		assert.Equal(t, stats.BatchCount, stats.SuccessCount+stats.FailCount)
		assert.Equal(t, 2, stats.FailCount)
	})
}
