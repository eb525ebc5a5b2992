package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Pool Creation Tests
// =============================================================================

func TestPool_Create(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestPool_CreateZeroWorkers(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()

	expected := runtime.GOMAXPROCS(0)
	if pool.Workers() != expected {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), expected)
	}
}

// =============================================================================
// Run Tests
// =============================================================================

func TestPool_RunJoinsAllWork(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}

	if err := pool.Run(context.Background(), work...); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := counter.Load(); got != 100 {
		t.Errorf("counter = %d, want 100", got)
	}
}

func TestPool_RunResultsVisibleAfterJoin(t *testing.T) {
	pool := NewPool(3)
	defer pool.Close()

	results := make([]int, 16)
	work := make([]func(), len(results))
	for i := range work {
		work[i] = func() { results[i] = i * i }
	}

	if err := pool.Run(context.Background(), work...); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, v := range results {
		if v != i*i {
			t.Errorf("results[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestPool_RunEmpty(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	if err := pool.Run(context.Background()); err != nil {
		t.Errorf("Run() with no work = %v, want nil", err)
	}
}

func TestPool_RunRecoversPanic(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	var ran atomic.Int64
	err := pool.Run(context.Background(),
		func() { ran.Add(1) },
		func() { panic("boom") },
		func() { ran.Add(1) },
	)

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Run error = %v, want *PanicError", err)
	}
	if pe.Value != "boom" {
		t.Errorf("PanicError.Value = %v, want boom", pe.Value)
	}
	if ran.Load() != 2 {
		t.Errorf("healthy items ran %d times, want 2", ran.Load())
	}
}

func TestPool_RunCancelledSkipsWork(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int64
	err := pool.Run(ctx, func() { ran.Add(1) }, func() { ran.Add(1) })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if ran.Load() != 0 {
		t.Errorf("ran %d items after cancellation, want 0", ran.Load())
	}
}

func TestPool_WorkStealing(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	var completed atomic.Int64
	work := make([]func(), 8)
	for i := range work {
		if i == 0 {
			work[i] = func() {
				time.Sleep(20 * time.Millisecond)
				completed.Add(1)
			}
			continue
		}
		work[i] = func() { completed.Add(1) }
	}

	start := time.Now()
	if err := pool.Run(context.Background(), work...); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if completed.Load() != 8 {
		t.Errorf("completed = %d, want 8", completed.Load())
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Run took %v, expected the slow item not to serialize the batch", elapsed)
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestPool_CloseIdempotent(t *testing.T) {
	pool := NewPool(2)
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
}

func TestPool_RunAfterClose(t *testing.T) {
	pool := NewPool(2)
	pool.Close()

	err := pool.Run(context.Background(), func() {})
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Run after Close = %v, want ErrPoolClosed", err)
	}
}

func TestPool_NoGoroutineLeak(t *testing.T) {
	before := runtime.NumGoroutine()

	for range 5 {
		pool := NewPool(4)
		_ = pool.Run(context.Background(), func() {}, func() {})
		pool.Close()
	}

	time.Sleep(20 * time.Millisecond)
	if after := runtime.NumGoroutine(); after > before+2 {
		t.Errorf("goroutines before=%d after=%d, workers leaked", before, after)
	}
}

func TestPool_QueuedWorkIdle(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	if q := pool.QueuedWork(); q != 0 {
		t.Errorf("QueuedWork() = %d on idle pool, want 0", q)
	}
}
