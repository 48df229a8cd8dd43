// Package mempool gates admission into the bounded in-memory payload tier.
//
// A Pool tracks a fixed byte budget with a single atomic counter. Reservations
// are optimistic: the counter is incremented first and rolled back if the
// post-increment total exceeds capacity, so concurrent callers never serialize
// behind a lock. The pool never evicts; it only grants or denies.
package mempool

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// fallbackCapacity is used when available system memory is below the
	// reserved floor.
	fallbackCapacity = 100 * 1024 * 1024
)

// Pool is a fixed-capacity byte budget for in-memory payloads.
// The zero value is unusable; construct with New.
type Pool struct {
	capacity  int64
	allocated atomic.Int64
}

// New creates a pool with the given capacity in bytes. Capacity is injected
// rather than read from a process-wide global so tests can run independent
// pools side by side.
func New(capacity int64) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool{capacity: capacity}
}

// NewFromSystem sizes a pool from available system memory:
// (available - reserved) * ratio, falling back to a 100MB pool when the
// machine has less than the reserved floor available.
func NewFromSystem(ratio float64, reservedBytes int64) *Pool {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read system memory, using fallback pool size")
		return New(fallbackCapacity)
	}

	available := int64(vm.Available)
	capacity := int64(fallbackCapacity)
	if available > reservedBytes {
		capacity = int64(float64(available-reservedBytes) * ratio)
	}

	log.Info().
		Int64("total_mb", int64(vm.Total)/(1024*1024)).
		Int64("available_mb", available/(1024*1024)).
		Int64("pool_mb", capacity/(1024*1024)).
		Msg("initialized memory pool")

	return New(capacity)
}

// TryReserve attempts to reserve size bytes from the pool. It increments the
// allocated counter first and verifies the result against capacity, rolling
// the increment back on failure. The allocated total therefore never settles
// above capacity, regardless of how many callers race.
func (p *Pool) TryReserve(size int64) bool {
	if size < 0 {
		return false
	}
	if newTotal := p.allocated.Add(size); newTotal > p.capacity {
		p.allocated.Add(-size)
		log.Debug().
			Int64("requested", size).
			Int64("capacity", p.capacity).
			Msg("memory reservation denied")
		return false
	}
	return true
}

// Release returns size bytes to the pool. Callers must release exactly once
// per granted reservation.
func (p *Pool) Release(size int64) {
	p.allocated.Add(-size)
}

// Capacity returns the pool's byte budget.
func (p *Pool) Capacity() int64 { return p.capacity }

// Allocated returns the bytes currently reserved.
func (p *Pool) Allocated() int64 { return p.allocated.Load() }
