package metrics

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// errSimulatedFailure is recorded for requests the workload marks as failed.
var errSimulatedFailure = errors.New("simulated request failure")

// Workload describes a synthetic benchmark run.
type Workload struct {
	Samples     int
	Median      time.Duration
	Spread      float64 // sigma of the log-normal latency distribution
	FailureRate float64
	Concurrency int
}

// DefaultWorkload returns a workload resembling a small key-value benchmark.
func DefaultWorkload() Workload {
	return Workload{
		Samples:     1000,
		Median:      2 * time.Millisecond,
		Spread:      0.5,
		FailureRate: 0,
		Concurrency: 16,
	}
}

func (w Workload) validate() error {
	switch {
	case w.Samples < 1:
		return fmt.Errorf("samples must be >= 1, got %d", w.Samples)
	case w.Median <= 0:
		return fmt.Errorf("median latency must be positive, got %s", w.Median)
	case w.Spread < 0:
		return fmt.Errorf("spread must be >= 0, got %g", w.Spread)
	case w.FailureRate < 0 || w.FailureRate >= 1:
		return fmt.Errorf("failure rate must be in [0, 1), got %g", w.FailureRate)
	case w.Concurrency < 1:
		return fmt.Errorf("concurrency must be >= 1, got %d", w.Concurrency)
	}
	return nil
}

// Run draws the workload's samples from rng into a new Collector and returns
// it with the wall time the run would have taken.
func (w Workload) Run(rng *rand.Rand) (*Collector, time.Duration, error) {
	if err := w.validate(); err != nil {
		return nil, 0, err
	}
	c := NewCollector()
	var busy time.Duration
	for i := 0; i < w.Samples; i++ {
		latency := time.Duration(float64(w.Median) * math.Exp(w.Spread*rng.NormFloat64()))
		if latency < time.Microsecond {
			latency = time.Microsecond
		}
		busy += latency

		var err error
		if w.FailureRate > 0 && rng.Float64() < w.FailureRate {
			err = errSimulatedFailure
		}
		c.RecordRequest(latency, err)
	}
	if c.successes == 0 {
		// Record needs at least one successful request.
		c.RecordRequest(w.Median, nil)
		busy += w.Median
	}
	elapsed := busy / time.Duration(w.Concurrency)
	if elapsed <= 0 {
		elapsed = time.Microsecond
	}
	return c, elapsed, nil
}
