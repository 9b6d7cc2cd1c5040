// Package ticket implements the small arithmetic shared by the Fair Group
// and Fair Queue: tickets (the two-dimensional cost of a request) and
// rovers (the wrap-around monotonic counters used to track capacity).
package ticket

import "math"

// FixedPointFactor scales a normalized (dimensionless) cost into the
// fixed-point capacity domain the Fair Group accounts in. Chosen large
// enough to preserve sub-unit precision across long-running replenishment
// without overflowing a uint64 rover after years of continuous traffic.
const FixedPointFactor = 1 << 16

// Ticket is a (weight, size) pair describing a request's cost along two
// simultaneous dimensions: operation count and byte volume. Both fields are
// non-negative by construction (uint32); all operations are infallible.
type Ticket struct {
	Weight uint32
	Size   uint32
}

// Add returns the componentwise sum of t and o.
func (t Ticket) Add(o Ticket) Ticket {
	return Ticket{Weight: t.Weight + o.Weight, Size: t.Size + o.Size}
}

// Sub returns the componentwise difference of t and o, saturating each
// component at zero (the "wrapping-difference" form used throughout this
// package — a ticket never goes negative).
func (t Ticket) Sub(o Ticket) Ticket {
	return Ticket{Weight: satSubU32(t.Weight, o.Weight), Size: satSubU32(t.Size, o.Size)}
}

// Eq reports componentwise equality.
func (t Ticket) Eq(o Ticket) bool {
	return t.Weight == o.Weight && t.Size == o.Size
}

// Truthy reports whether either component of t is positive. A zero ticket
// (both components zero) is used to mark a cancelled Fair Queue entry.
func (t Ticket) Truthy() bool {
	return t.Weight > 0 || t.Size > 0
}

// IsZero reports whether t is the zero ticket. Equivalent to !t.Truthy().
func (t Ticket) IsZero() bool {
	return t.Weight == 0 && t.Size == 0
}

// Normalize computes a scalar, dimensionless cost of t against denom:
//
//	normalize(t, denom) = t.Weight/denom.Weight + t.Size/denom.Size
//
// A zero denominator component is tolerated only when the matching
// numerator component is also zero (that term contributes 0); it is the
// caller's responsibility to never normalize a non-zero component against
// a zero denominator component.
func (t Ticket) Normalize(denom Ticket) float64 {
	var weightTerm, sizeTerm float64
	if denom.Weight != 0 {
		weightTerm = float64(t.Weight) / float64(denom.Weight)
	}
	if denom.Size != 0 {
		sizeTerm = float64(t.Size) / float64(denom.Size)
	}
	return weightTerm + sizeTerm
}

// Capacity converts t into the fixed-point capacity domain relative to a
// per-rate-resolution budget costCapacity:
//
//	ticket_capacity(t) = round(normalize(t, cost_capacity) * FixedPointFactor)
func Capacity(t, costCapacity Ticket) uint64 {
	n := t.Normalize(costCapacity)
	if n <= 0 {
		return 0
	}
	return uint64(math.Round(n * FixedPointFactor))
}

func satSubU32(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}

// Rover is a monotonically increasing counter compared via wrapping
// (modular) difference rather than signed comparison, so that it tolerates
// wraparound after 2^64 increments.
type Rover uint64

// WrappingDiff returns max(a-b, 0) interpreted over signed overflow of the
// underlying 64-bit width: the two's-complement difference a-b is
// reinterpreted as a signed value, and negative results clamp to zero.
// This is the standard wrap-tolerant comparator for monotonic counters
// (the same trick used for TCP sequence numbers).
func (a Rover) WrappingDiff(b Rover) uint64 {
	d := int64(a - b)
	if d < 0 {
		return 0
	}
	return uint64(d)
}

// Before reports whether a strictly precedes b in modular order.
func (a Rover) Before(b Rover) bool {
	return b.WrappingDiff(a) > 0
}
