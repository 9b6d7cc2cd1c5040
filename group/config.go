package group

import (
	"time"

	"github.com/fairsched/fairsched/internal/rate"
	"github.com/fairsched/fairsched/ticket"
)

// Config holds the external, human-tunable knobs for a Fair Group (§6 of
// the specification). Derived ticket/fixed-point fields are computed by
// New; Config itself stays close to what an operator would put in
// a YAML file (see the config package).
type Config struct {
	// MaxWeight, MaxSize make up sharesCapacity: the maximum simultaneous
	// in-flight budget, expressed as a ticket.
	MaxWeight uint32 `yaml:"max_weight"`
	MaxSize   uint32 `yaml:"max_size"`

	// WeightRate, SizeRate are per-second rate components; divided by the
	// number of rate-resolution ticks per second to form costCapacity.
	WeightRate float64 `yaml:"weight_rate"`
	SizeRate   float64 `yaml:"size_rate"`

	// RateFactor is multiplied by ticket.FixedPointFactor to yield
	// replenishRate (fixed-point capacity units granted per tick).
	RateFactor float64 `yaml:"rate_factor"`

	// RateLimitDuration is multiplied by replenishRate to yield
	// replenishLimit, the burst ceiling retained between replenishments.
	RateLimitDuration time.Duration `yaml:"rate_limit_duration"`

	// Resolution is the rate-resolution unit rates are expressed against.
	// Zero defaults to rate.DefaultResolution.
	Resolution time.Duration `yaml:"resolution"`

	// Unlimited disables the replenishment budget entirely: every grab is
	// immediately granted. Used by tests and by deployments that only want
	// the fairness accounting in the Fair Queue, not a global cap.
	Unlimited bool `yaml:"unlimited"`
}

// sharesCapacity returns the configured ticket.Ticket ceiling on in-flight
// work.
func (c Config) sharesCapacity() ticket.Ticket {
	return ticket.Ticket{Weight: c.MaxWeight, Size: c.MaxSize}
}

// costCapacity derives the per-rate-resolution budget from the configured
// per-second rates.
func (c Config) costCapacity(resolution time.Duration) ticket.Ticket {
	ticksPerSecond := float64(time.Second) / float64(resolution)
	if ticksPerSecond <= 0 {
		ticksPerSecond = 1
	}
	w := c.WeightRate / ticksPerSecond
	s := c.SizeRate / ticksPerSecond
	return ticket.Ticket{Weight: roundU32(w), Size: roundU32(s)}
}

func (c Config) resolution() time.Duration {
	if c.Resolution <= 0 {
		return rate.DefaultResolution
	}
	return c.Resolution
}

func roundU32(f float64) uint32 {
	if f <= 0 {
		return 0
	}
	return uint32(f + 0.5)
}
