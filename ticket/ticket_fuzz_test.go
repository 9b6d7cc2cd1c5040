//go:build go1.18

package ticket

import "testing"

// Fuzzes Ticket.Sub's saturating-at-zero arithmetic: the result must never
// wrap around past zero no matter how a and b compare componentwise.
func FuzzTicketSub(f *testing.F) {
	f.Add(uint32(0), uint32(0), uint32(0), uint32(0))
	f.Add(uint32(1), uint32(1), uint32(2), uint32(2))
	f.Add(uint32(0xFFFFFFFF), uint32(0xFFFFFFFF), uint32(1), uint32(1))
	f.Add(uint32(0), uint32(0xFFFFFFFF), uint32(0xFFFFFFFF), uint32(0))
	f.Add(uint32(0xFFFFFFFF), uint32(0), uint32(0xFFFFFFFF), uint32(0xFFFFFFFF))

	f.Fuzz(func(t *testing.T, aWeight, aSize, bWeight, bSize uint32) {
		a := Ticket{Weight: aWeight, Size: aSize}
		b := Ticket{Weight: bWeight, Size: bSize}
		got := a.Sub(b)

		if bWeight >= aWeight && got.Weight != 0 {
			t.Fatalf("Sub should saturate Weight at zero when b.Weight >= a.Weight: a=%+v b=%+v got=%+v", a, b, got)
		}
		if bWeight < aWeight && got.Weight != aWeight-bWeight {
			t.Fatalf("Sub.Weight mismatch: a=%d b=%d got=%d", aWeight, bWeight, got.Weight)
		}
		if bSize >= aSize && got.Size != 0 {
			t.Fatalf("Sub should saturate Size at zero when b.Size >= a.Size: a=%+v b=%+v got=%+v", a, b, got)
		}
		if bSize < aSize && got.Size != aSize-bSize {
			t.Fatalf("Sub.Size mismatch: a=%d b=%d got=%d", aSize, bSize, got.Size)
		}
	})
}

// Fuzzes Rover.WrappingDiff around 64-bit wraparound boundaries: the result
// must always be non-negative (uint64) and zero whenever b does not
// strictly precede a in modular order.
func FuzzRoverWrappingDiff(f *testing.F) {
	f.Add(uint64(0), uint64(0))
	f.Add(uint64(100), uint64(40))
	f.Add(uint64(40), uint64(100))
	f.Add(^uint64(0), uint64(0)) // math.MaxUint64
	f.Add(uint64(2), ^uint64(0)-2)

	f.Fuzz(func(t *testing.T, a, b uint64) {
		diff := Rover(a).WrappingDiff(Rover(b))

		want := int64(a - b)
		if want < 0 {
			if diff != 0 {
				t.Fatalf("WrappingDiff(%d, %d) = %d, want 0 (negative two's-complement diff)", a, b, diff)
			}
			return
		}
		if diff != uint64(want) {
			t.Fatalf("WrappingDiff(%d, %d) = %d, want %d", a, b, diff, want)
		}
	})
}
