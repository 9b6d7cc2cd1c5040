package ticket

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketAddSub(t *testing.T) {
	a := Ticket{Weight: 3, Size: 100}
	b := Ticket{Weight: 5, Size: 40}

	require.Equal(t, Ticket{Weight: 8, Size: 140}, a.Add(b))
	require.Equal(t, Ticket{Weight: 0, Size: 60}, a.Sub(b), "weight saturates at zero rather than underflowing")
	require.Equal(t, Ticket{Weight: 2, Size: 0}, b.Sub(a))
}

func TestTicketEqTruthyZero(t *testing.T) {
	z := Ticket{}
	assert.True(t, z.IsZero())
	assert.False(t, z.Truthy())

	nz := Ticket{Weight: 1}
	assert.False(t, nz.IsZero())
	assert.True(t, nz.Truthy())

	assert.True(t, Ticket{Weight: 1, Size: 2}.Eq(Ticket{Weight: 1, Size: 2}))
	assert.False(t, Ticket{Weight: 1, Size: 2}.Eq(Ticket{Weight: 2, Size: 1}))
}

func TestTicketNormalize(t *testing.T) {
	denom := Ticket{Weight: 10, Size: 100}

	got := Ticket{Weight: 5, Size: 50}.Normalize(denom)
	assert.InDelta(t, 1.0, got, 1e-9)

	// A zero denominator component contributes nothing as long as the
	// matching numerator component is also zero.
	got = Ticket{Weight: 0, Size: 25}.Normalize(Ticket{Weight: 0, Size: 100})
	assert.InDelta(t, 0.25, got, 1e-9)
}

func TestCapacity(t *testing.T) {
	costCapacity := Ticket{Weight: 10, Size: 0}
	cap := Capacity(Ticket{Weight: 5}, costCapacity)
	assert.Equal(t, uint64(math.Round(0.5*FixedPointFactor)), cap)

	assert.Equal(t, uint64(0), Capacity(Ticket{}, costCapacity))
}

func TestRoverWrappingDiff(t *testing.T) {
	a := Rover(100)
	b := Rover(40)
	assert.Equal(t, uint64(60), a.WrappingDiff(b))
	assert.Equal(t, uint64(0), b.WrappingDiff(a), "b precedes a, so wdiff(b, a) clamps to zero")

	// Wraparound: a is just past the uint64 max and should still compare
	// as "ahead of" a value a few units before it wrapped.
	nearMax := Rover(math.MaxUint64 - 2)
	wrapped := Rover(2) // nearMax + 5 wraps around to 2
	assert.Equal(t, uint64(5), wrapped.WrappingDiff(nearMax))
}

func TestRoverBefore(t *testing.T) {
	assert.True(t, Rover(10).Before(Rover(20)))
	assert.False(t, Rover(20).Before(Rover(10)))
	assert.False(t, Rover(10).Before(Rover(10)))
}
