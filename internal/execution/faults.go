package execution

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Operation names a state-mutating engine call wrapped by the fault policy.
type Operation string

const (
	OpPlaceOrder    Operation = "place_order"
	OpClosePosition Operation = "close_position"
)

// FaultPolicy decides the artificial latency and the simulated failure of an operation.
type FaultPolicy interface {
	Latency(op Operation) time.Duration
	// Failure returns a non-nil *TransientError when the operation must abort.
	Failure(op Operation) error
}

// NoFaults never delays and never fails.
type NoFaults struct{}

func (NoFaults) Latency(Operation) time.Duration { return 0 }
func (NoFaults) Failure(Operation) error         { return nil }

// FaultConfig parameterises RandomFaults.
type FaultConfig struct {
	MinLatency       time.Duration
	MaxLatency       time.Duration
	CloseLatency     time.Duration
	OpenFailureRate  float64
	CloseFailureRate float64
}

// DefaultFaultConfig models a 150-350ms venue round trip with 5% order and 3% close failures.
func DefaultFaultConfig() FaultConfig {
	return FaultConfig{
		MinLatency:       150 * time.Millisecond,
		MaxLatency:       350 * time.Millisecond,
		CloseLatency:     150 * time.Millisecond,
		OpenFailureRate:  0.05,
		CloseFailureRate: 0.03,
	}
}

// RandomFaults draws latency and failures from a seeded source.
type RandomFaults struct {
	cfg FaultConfig

	mu  sync.Mutex
	rng *rand.Rand
}

var _ FaultPolicy = (*RandomFaults)(nil)

// NewRandomFaults creates a policy backed by src. Pass rand.NewSource(seed) for
// reproducible runs.
func NewRandomFaults(cfg FaultConfig, src rand.Source) *RandomFaults {
	return &RandomFaults{cfg: cfg, rng: rand.New(src)}
}

// Latency returns the close latency for closes and a uniform draw from
// [MinLatency, MaxLatency] for placements.
func (f *RandomFaults) Latency(op Operation) time.Duration {
	if op == OpClosePosition {
		return f.cfg.CloseLatency
	}
	span := f.cfg.MaxLatency - f.cfg.MinLatency
	if span <= 0 {
		return f.cfg.MinLatency
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.MinLatency + time.Duration(f.rng.Int63n(int64(span)+1))
}

// Failure rolls the failure probability of op and picks an error from the catalog.
func (f *RandomFaults) Failure(op Operation) error {
	rate := f.cfg.OpenFailureRate
	if op == OpClosePosition {
		rate = f.cfg.CloseFailureRate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rng.Float64() >= rate {
		return nil
	}
	return &TransientError{Op: op, Err: transientCatalog[f.rng.Intn(len(transientCatalog))]}
}

// simulateVenue applies the latency of op and then its failure roll. It never
// touches engine state.
func simulateVenue(ctx context.Context, policy FaultPolicy, op Operation) error {
	if d := policy.Latency(op); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return policy.Failure(op)
}
