package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var errUnreadable = errors.New("letter unreadable")

// letterResult implements Result
type letterResult struct {
	source string
	err    error
}

func (r *letterResult) GetError() error {
	return r.err
}

// letterJob stands in for auditing one letter. It tracks how many jobs run
// at once through the shared gauge.
type letterJob struct {
	source  string
	work    time.Duration
	fail    bool
	started *atomic.Int32
	running *atomic.Int32
	peak    *atomic.Int32
}

func (j *letterJob) Execute(ctx context.Context) Result {
	if j.started != nil {
		j.started.Add(1)
	}
	if j.running != nil {
		now := j.running.Add(1)
		defer j.running.Add(-1)
		for {
			old := j.peak.Load()
			if now <= old || j.peak.CompareAndSwap(old, now) {
				break
			}
		}
	}

	if j.work > 0 {
		select {
		case <-time.After(j.work):
		case <-ctx.Done():
			return &letterResult{source: j.source, err: ctx.Err()}
		}
	}
	if j.fail {
		return &letterResult{source: j.source, err: errUnreadable}
	}
	return &letterResult{source: j.source}
}

func TestNewPool_Workers(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{5, 5},
		{1, 1},
		{0, 1},
		{-3, 1},
	}
	for _, tt := range tests {
		if got := NewPool(tt.in).workers; got != tt.want {
			t.Errorf("NewPool(%d).workers = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPool_RunsEveryLetter(t *testing.T) {
	pool := NewPool(3)
	pool.Start()

	var started atomic.Int32
	sources := []string{"a.txt", "b.txt", "c.html", "d.txt", "e.txt", "f.txt", "g.txt"}
	for _, src := range sources {
		pool.Submit(&letterJob{source: src, started: &started})
	}

	results := pool.Wait()
	if len(results) != len(sources) {
		t.Fatalf("expected %d results, got %d", len(sources), len(results))
	}
	if int(started.Load()) != len(sources) {
		t.Errorf("expected %d jobs started, got %d", len(sources), started.Load())
	}

	seen := make(map[string]bool)
	for _, r := range results {
		seen[r.(*letterResult).source] = true
	}
	for _, src := range sources {
		if !seen[src] {
			t.Errorf("missing result for %s", src)
		}
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 2
	pool := NewPool(workers)
	pool.Start()

	var running, peak atomic.Int32
	for i := 0; i < 8; i++ {
		pool.Submit(&letterJob{work: 15 * time.Millisecond, running: &running, peak: &peak})
	}
	pool.Wait()

	if got := peak.Load(); got > workers {
		t.Errorf("expected at most %d concurrent audits, saw %d", workers, got)
	}
	if got := peak.Load(); got < 2 {
		t.Errorf("expected audits to overlap, peak was %d", got)
	}
}

func TestPool_FailuresAreResults(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&letterJob{source: "ok.txt"})
	pool.Submit(&letterJob{source: "scan.txt", fail: true})
	pool.Submit(&letterJob{source: "ok2.txt"})

	failed := 0
	for _, r := range pool.Wait() {
		if err := r.GetError(); err != nil {
			if !errors.Is(err, errUnreadable) {
				t.Errorf("unexpected error: %v", err)
			}
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failed result, got %d", failed)
	}
}

func TestPool_QueueLargerThanBuffer(t *testing.T) {
	pool := NewPool(1)
	pool.Start()

	// The job queue holds workers*2; Submit must not deadlock beyond that
	const n = 50
	done := make(chan []Result)
	go func() {
		for i := 0; i < n; i++ {
			pool.Submit(&letterJob{})
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != n {
			t.Errorf("expected %d results, got %d", n, len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pool deadlocked with a long queue")
	}
}

func TestPool_ParentContextCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPoolWithContext(ctx, 1)
	pool.Start()

	pool.Submit(&letterJob{source: "slow.txt", work: time.Minute})
	time.Sleep(10 * time.Millisecond)
	cancel()

	results := pool.Wait()
	for _, r := range results {
		if !errors.Is(r.GetError(), context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", r.GetError())
		}
	}
}

func TestPool_ShutdownStopsSubmits(t *testing.T) {
	pool := NewPool(1)
	pool.Start()
	pool.Shutdown()

	var started atomic.Int32
	pool.Submit(&letterJob{started: &started})

	if started.Load() != 0 {
		t.Error("job ran after Shutdown")
	}
}

func TestResultCollector_ReturnsCopy(t *testing.T) {
	c := NewResultCollector()
	c.Add(&letterResult{source: "a.txt"})
	c.Add(&letterResult{source: "b.txt", err: errUnreadable})

	got := c.Results()
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	got[0] = nil
	if c.Results()[0] == nil {
		t.Error("Results must return a copy")
	}
}
