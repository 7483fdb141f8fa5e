package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Batch is the finished statistics for one dispatched chunk of trigger sets.
// Batches arrive in completion order, not TriggerSet index order; aggregate
// by Indexes, never by arrival position.
type Batch struct {
	Chunk   int   // chunk id in dispatch order
	Indexes []int // trigger-set indexes covered by this chunk
	Rows    []Row // aligned with Indexes
	Err     error // evaluation failure inside this chunk
}

// Stream is the incremental execution handle returned by Generate. It is a
// single-consumer, consume-once sequence: every dispatched chunk is observed
// exactly once, then Next reports done. Close releases the worker pool and
// must always be called; abandoning iteration without Close leaks workers
// until the context ends.
type Stream struct {
	test   *Test
	params Params
	spans  regionSpans

	batches chan Batch
	runCtx  context.Context
	cancel  context.CancelFunc
	start   time.Time

	rows     []Row
	rowsDone []bool
	got      int
	err      error
	done     bool
	closed   bool
	mu       sync.Mutex
}

// Generate starts the chunked parallel evaluation and returns the stream of
// per-chunk batches. Fully draining the stream does the same total work as
// Run and leaves the same finished result on the test.
func (t *Test) Generate(ctx context.Context, p Params) (*Stream, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	p, err := p.withDefaults(len(t.TriggerSets))
	if err != nil {
		return nil, err
	}
	spans, err := t.regions()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Stream{
		test:     t,
		params:   p,
		spans:    spans,
		batches:  make(chan Batch, p.NWorkers),
		runCtx:   runCtx,
		cancel:   cancel,
		start:    time.Now(),
		rows:     make([]Row, len(t.TriggerSets)),
		rowsDone: make([]bool, len(t.TriggerSets)),
	}

	chunks := splitChunks(len(t.TriggerSets), p.NChunks)
	jobs := make(chan int, len(chunks))

	var wg sync.WaitGroup
	wg.Add(p.NWorkers)
	for w := 0; w < p.NWorkers; w++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-runCtx.Done():
					return
				case chunk, ok := <-jobs:
					if !ok {
						return
					}
					batch := Batch{Chunk: chunk, Indexes: chunks[chunk]}
					for _, idx := range chunks[chunk] {
						row, err := t.evaluate(runCtx, p, spans, idx)
						if err != nil {
							batch.Err = err
							batch.Rows = nil
							break
						}
						batch.Rows = append(batch.Rows, row)
					}
					select {
					case s.batches <- batch:
					case <-runCtx.Done():
						return
					}
				}
			}
		}()
	}

	for chunk := range chunks {
		jobs <- chunk
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(s.batches)
	}()

	return s, nil
}

// Next blocks until the next chunk finishes. It returns false once every
// dispatched chunk has been observed (or the run failed and outstanding work
// was cancelled); an interrupted run leaves the cause on Err.
func (s *Stream) Next() (Batch, bool) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return Batch{}, false
	}
	s.mu.Unlock()

	// receive outside the lock so a concurrent Close can interrupt a blocked
	// Next by cancelling and draining
	batch, ok := <-s.batches

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.done = true
		// workers cancelled out from under us: the run never finished and
		// no chunk carried the failure, so record the cause here
		if !s.closed && s.got < len(s.rows) && s.err == nil {
			if err := s.runCtx.Err(); err != nil {
				s.err = fmt.Errorf("screen: run interrupted: %w", err)
			} else {
				s.err = errors.New("screen: run ended before every trigger set was evaluated")
			}
		}
		return Batch{}, false
	}
	if s.done {
		// Close won the race while we were blocked on the receive
		return Batch{}, false
	}
	if batch.Err != nil {
		if s.err == nil {
			s.err = batch.Err
		}
		// fail fast: one fatal evaluation fails the whole test
		s.cancel()
		return batch, true
	}
	for i, idx := range batch.Indexes {
		if !s.rowsDone[idx] {
			s.rowsDone[idx] = true
			s.rows[idx] = batch.Rows[i]
			s.got++
		}
	}
	if s.got == len(s.rows) && s.err == nil {
		s.test.result = newResult(s.test, s.params, s.rows, time.Since(s.start))
	}
	return batch, true
}

// Err returns the first evaluation error, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Result returns the finished result after a full successful drain, or nil.
func (s *Stream) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.test.result
}

// Close cancels outstanding work and releases the pool. Safe to call more
// than once and after exhaustion.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	for range s.batches {
		// drain so workers blocked on send can exit
	}
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
}

// splitChunks partitions [0, n) into count near-even contiguous index runs.
func splitChunks(n, count int) [][]int {
	if count > n {
		count = n
	}
	chunks := make([][]int, 0, count)
	base, rem := n/count, n%count
	next := 0
	for c := 0; c < count; c++ {
		size := base
		if c < rem {
			size++
		}
		idxs := make([]int, 0, size)
		for i := 0; i < size; i++ {
			idxs = append(idxs, next)
			next++
		}
		chunks = append(chunks, idxs)
	}
	return chunks
}
