// Package sweep runs one screening test across a temperature range and folds
// the per-temperature results into target-inference series.
package sweep

import (
	"context"
	"fmt"
	"time"

	"riboscreen.com/ths/screen"
)

// Test sweeps a base screening test over a list of temperatures. Each step
// clones the base test and rebinds its model to that temperature; the base is
// never mutated.
type Test struct {
	Base    *screen.Test
	Celsius []float64
}

// NewTest builds a validated sweep over the given temperatures.
func NewTest(base *screen.Test, celsius []float64) (*Test, error) {
	t := &Test{Base: base, Celsius: celsius}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Test) Validate() error {
	if t.Base == nil {
		return fmt.Errorf("sweep: no base test")
	}
	if len(t.Celsius) == 0 {
		return fmt.Errorf("sweep: no temperatures")
	}
	if err := t.Base.Validate(); err != nil {
		return err
	}
	return nil
}

// Step is one finished temperature of a sweep.
type Step struct {
	Index   int
	Celsius float64
	Result  *screen.Result
	Err     error
}

// Stream yields sweep steps one temperature at a time, in order. Temperatures
// run sequentially: each step is itself a full parallel screen, so the worker
// pool is already saturated per step.
type Stream struct {
	test   *Test
	params screen.Params
	ctx    context.Context

	next    int
	start   time.Time
	results []*screen.Result
	result  *Result
	err     error
}

// Generate starts a lazy sweep; work happens inside Next.
func (t *Test) Generate(ctx context.Context, p screen.Params) (*Stream, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Stream{
		test:    t,
		params:  p,
		ctx:     ctx,
		start:   time.Now(),
		results: make([]*screen.Result, 0, len(t.Celsius)),
	}, nil
}

// Next runs the next temperature to completion. A step error ends the sweep;
// draining past it returns done.
func (s *Stream) Next() (Step, bool) {
	if s.err != nil || s.next >= len(s.test.Celsius) {
		return Step{}, false
	}
	i := s.next
	s.next++
	celsius := s.test.Celsius[i]

	clone := s.test.Base.Copy()
	clone.Model = s.test.Base.Model.WithTemperature(celsius)
	res, err := clone.Run(s.ctx, s.params)
	step := Step{Index: i, Celsius: celsius, Result: res, Err: err}
	if err != nil {
		s.err = fmt.Errorf("sweep: %.2f °C: %w", celsius, err)
		return step, true
	}
	s.results = append(s.results, res)
	if s.next == len(s.test.Celsius) {
		s.result = newResult(s.test, s.results, time.Since(s.start))
	}
	return step, true
}

// Err returns the first step error, if any.
func (s *Stream) Err() error { return s.err }

// Result returns the folded sweep result after a full successful drain.
func (s *Stream) Result() *Result { return s.result }

// Run executes the whole sweep and returns the folded result.
func (t *Test) Run(ctx context.Context, p screen.Params) (*Result, error) {
	stream, err := t.Generate(ctx, p)
	if err != nil {
		return nil, err
	}
	for {
		step, ok := stream.Next()
		if !ok {
			break
		}
		if step.Err != nil {
			return nil, stream.Err()
		}
	}
	return stream.Result(), nil
}
