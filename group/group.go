// Package group implements the Fair Group: the process-wide, cross-shard
// capacity accountant described in §4.1 of the specification. A Fair Group
// holds the shared, replenishable budget for the underlying resource;
// every Fair Queue in the process grabs capacity from and releases it back
// to the same Fair Group instance.
package group

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/fairsched/fairsched/internal/rate"
	"github.com/fairsched/fairsched/internal/util"
	"github.com/fairsched/fairsched/ticket"
)

// DefaultReplenishThreshold is the minimum extra capacity a replenishment
// pass must grant before it bothers advancing the head rover. Keeping this
// at least 1 avoids CAS churn from sub-unit replenishment amounts.
const DefaultReplenishThreshold = 1

// FairGroup is the shared, cross-shard capacity accountant. All exported
// methods are safe for concurrent use by many shards; none of them block.
type FairGroup struct {
	sharesCapacity ticket.Ticket
	costCapacity   ticket.Ticket

	replenishRate      uint64
	replenishLimit     uint64
	replenishThreshold uint64
	resolution         time.Duration
	unlimited          bool
	clock              rate.Clock

	_ util.CacheLinePad

	// capacityTail, capacityHead, capacityCeil are the three rovers of
	// §3: wdiff(tail, head) is outstanding requested-but-unserviced
	// capacity; wdiff(ceil, head) is headroom for replenishment; head
	// never exceeds ceil (modulo wraparound).
	capacityTail util.PaddedAtomicUint64
	capacityHead util.PaddedAtomicUint64
	capacityCeil util.PaddedAtomicUint64

	// replenished is the UnixNano timestamp of the last applied
	// replenishment, advanced via compare-and-swap so exactly one shard
	// per interval performs the update.
	replenished atomic.Int64
}

// New constructs a Fair Group from Config. clock may be nil, in which case
// rate.SystemClock is used.
func New(cfg Config, clock rate.Clock) *FairGroup {
	if clock == nil {
		clock = rate.SystemClock{}
	}
	resolution := cfg.resolution()
	replenishRate := uint64(math.Round(cfg.RateFactor * ticket.FixedPointFactor))
	replenishLimit := uint64(math.Round(float64(replenishRate) * rate.Ticks(cfg.RateLimitDuration, resolution)))

	g := &FairGroup{
		sharesCapacity:     cfg.sharesCapacity(),
		costCapacity:       cfg.costCapacity(resolution),
		replenishRate:      replenishRate,
		replenishLimit:     replenishLimit,
		replenishThreshold: DefaultReplenishThreshold,
		resolution:         resolution,
		unlimited:          cfg.Unlimited,
		clock:              clock,
	}
	// Seed the ceiling with the full burst allowance so the first
	// replenishment may advance head by up to replenishLimit. Head starts
	// at 0, so nothing is granted before that first replenishment.
	g.capacityCeil.Store(replenishLimit)
	if cfg.Unlimited {
		g.capacityCeil.Store(math.MaxUint64 / 2)
	}
	g.replenished.Store(int64(clock.Now().UnixNano()))
	return g
}

// SharesCapacity returns the configured maximum simultaneous in-flight
// budget.
func (g *FairGroup) SharesCapacity() ticket.Ticket { return g.sharesCapacity }

// CostCapacity returns the per-rate-resolution cost budget tickets are
// normalized against.
func (g *FairGroup) CostCapacity() ticket.Ticket { return g.costCapacity }

// TicketCapacity is the pure conversion from a ticket to fixed-point
// capacity, against this group's costCapacity.
func (g *FairGroup) TicketCapacity(t ticket.Ticket) uint64 {
	return ticket.Capacity(t, g.costCapacity)
}

// GrabCapacity atomically advances tail by cap and returns the prior
// value. It never fails and never blocks. If the group is configured
// Unlimited, head is advanced in lockstep so every grab is immediately
// grantable.
func (g *FairGroup) GrabCapacity(cap uint64) (priorTail uint64) {
	newTail := g.capacityTail.Add(cap)
	priorTail = newTail - cap
	if g.unlimited {
		g.capacityHead.Add(cap)
	}
	return priorTail
}

// ReleaseCapacity atomically advances ceil by cap, raising the headroom
// available to future replenishment. Called on request completion.
func (g *FairGroup) ReleaseCapacity(cap uint64) {
	g.capacityCeil.Add(cap)
}

// CapacityDeficiency returns wdiff(x, head): how far past the currently
// granted frontier x lies. Zero means "granted."
func (g *FairGroup) CapacityDeficiency(x uint64) uint64 {
	head := g.capacityHead.Load()
	return ticket.Rover(x).WrappingDiff(ticket.Rover(head))
}

// Head returns the current head rover (the frontier of granted capacity).
func (g *FairGroup) Head() uint64 { return g.capacityHead.Load() }

// Tail returns the current tail rover (the frontier of requested
// capacity).
func (g *FairGroup) Tail() uint64 { return g.capacityTail.Load() }

// Ceil returns the current ceil rover (the frontier replenishment may
// advance head toward).
func (g *FairGroup) Ceil() uint64 { return g.capacityCeil.Load() }

// Resolution returns the rate-resolution unit this group's replenishRate
// and costCapacity are expressed against.
func (g *FairGroup) Resolution() time.Duration { return g.resolution }

// ReplenishCapacity is idempotent: it advances head toward tail based on
// elapsed time since the last replenishment, bounded by ceil. Any shard
// may call it on a periodic timer (nominally every rate.DefaultResolution);
// at most one concurrent caller actually advances state per interval, the
// rest return immediately.
func (g *FairGroup) ReplenishCapacity(now time.Time) {
	if g.unlimited {
		return
	}
	last := g.replenished.Load()
	nowNano := now.UnixNano()
	if nowNano <= last {
		return
	}
	deltaTicks := rate.Ticks(time.Duration(nowNano-last), g.resolution)
	extra := uint64(math.Round(float64(g.replenishRate) * deltaTicks))
	if extra < g.replenishThreshold {
		return
	}
	// Elect a single replenisher for this interval. Losers back off
	// without touching head; the winner that advanced replenished is the
	// only one allowed to advance head, so capacity is never granted
	// twice for the same elapsed interval.
	if !g.replenished.CompareAndSwap(last, nowNano) {
		return
	}
	headroom := ticket.Rover(g.capacityCeil.Load()).WrappingDiff(ticket.Rover(g.capacityHead.Load()))
	advance := extra
	if advance > headroom {
		advance = headroom
	}
	if advance > 0 {
		g.capacityHead.Add(advance)
	}
}
