package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 is a float64 that one goroutine writes while others read,
// without locking the table it lives in. The zero value holds 0.0.
// Values must not be copied after first use.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// AtomicRead returns the current value, synchronized with the last write.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicSet stores val.
func (af *AtomicFloat64) AtomicSet(val float64) {
	af.bits.Store(math.Float64bits(val))
}

// AtomicAdd adds addend and returns the new value.
// Note: if the value changes while we're operating upon it the add is retried
// against the fresh value, so concurrent adders never lose an update.
func (af *AtomicFloat64) AtomicAdd(addend float64) (newVal float64) {
	for {
		old := af.bits.Load()
		newVal = math.Float64frombits(old) + addend
		if af.bits.CompareAndSwap(old, math.Float64bits(newVal)) {
			return
		}
	}
}
