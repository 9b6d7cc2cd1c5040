// Package config loads and validates the external configuration of a Fair
// Group and Fair Queue (§6). The teacher cache has no config loader of its
// own (cache.Options is a plain struct filled in by the caller); this
// package follows the rest of the retrieval pack instead — YAML config
// files parsed with gopkg.in/yaml.v3, with environment-variable overrides
// layered on top via spf13/viper, the way flyingrobots-go-redis-work-queue
// configures its CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fairsched/fairsched/group"
	"github.com/fairsched/fairsched/internal/rate"
	"github.com/fairsched/fairsched/queue"
)

// GroupConfig is the YAML-loadable form of the Fair Group's §6 keys.
type GroupConfig struct {
	MaxWeight         uint32        `yaml:"max_weight"`
	MaxSize           uint32        `yaml:"max_size"`
	WeightRate        float64       `yaml:"weight_rate"`
	SizeRate          float64       `yaml:"size_rate"`
	RateFactor        float64       `yaml:"rate_factor"`
	RateLimitDuration time.Duration `yaml:"rate_limit_duration"`
	Resolution        time.Duration `yaml:"resolution"`
	Unlimited         bool          `yaml:"unlimited"`
}

// ToGroupConfig converts the YAML form into group.Config.
func (c GroupConfig) ToGroupConfig() group.Config {
	return group.Config{
		MaxWeight:         c.MaxWeight,
		MaxSize:           c.MaxSize,
		WeightRate:        c.WeightRate,
		SizeRate:          c.SizeRate,
		RateFactor:        c.RateFactor,
		RateLimitDuration: c.RateLimitDuration,
		Resolution:        c.Resolution,
		Unlimited:         c.Unlimited,
	}
}

// QueueConfig is the YAML-loadable form of the Fair Queue's §6 keys, plus
// the ambient-stack additions this module adds (shard_count, max_capacity)
// used to derive the per-shard dispatch cap called for by §9's open
// question on the maximum per-dispatch cap.
type QueueConfig struct {
	// Tau is the fairness window bounding idle-return rebase.
	Tau time.Duration `yaml:"tau"`

	// ShardCount is the number of Fair Queues sharing the Fair Group.
	// MaxCapacity is divided evenly across shards to derive each Fair
	// Queue's per-dispatch cap.
	ShardCount int `yaml:"shard_count"`

	// MaxCapacity is the global fixed-point capacity ceiling one
	// dispatch_requests call may consume, summed across all shards. Zero
	// disables the per-call cap.
	MaxCapacity uint64 `yaml:"max_capacity"`
}

// ToQueueConfig converts the YAML form into queue.Config, converting Tau
// to rate-resolution ticks against g's resolution and dividing MaxCapacity
// by ShardCount.
func (c QueueConfig) ToQueueConfig(g *group.FairGroup) queue.Config {
	shardCount := c.ShardCount
	if shardCount < 1 {
		shardCount = 1
	}
	var perShardCap uint64
	if c.MaxCapacity > 0 {
		perShardCap = c.MaxCapacity / uint64(shardCount)
	}
	return queue.Config{
		Tau:                    rate.Ticks(c.Tau, g.Resolution()),
		MaxCapacityPerDispatch: perShardCap,
	}
}

// LoadGroupConfig reads and validates a GroupConfig from a YAML file at
// path, applying defaults for zero-valued fields.
func LoadGroupConfig(path string) (GroupConfig, error) {
	var cfg GroupConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read group config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse group config %q: %w", path, err)
	}
	applyGroupDefaults(&cfg)
	return cfg, validateGroupConfig(cfg)
}

// LoadQueueConfig reads and validates a QueueConfig from a YAML file at
// path, applying defaults for zero-valued fields.
func LoadQueueConfig(path string) (QueueConfig, error) {
	var cfg QueueConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read queue config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse queue config %q: %w", path, err)
	}
	applyQueueDefaults(&cfg)
	return cfg, validateQueueConfig(cfg)
}

func applyGroupDefaults(cfg *GroupConfig) {
	if cfg.Resolution <= 0 {
		cfg.Resolution = rate.DefaultResolution
	}
}

func applyQueueDefaults(cfg *QueueConfig) {
	if cfg.ShardCount < 1 {
		cfg.ShardCount = 1
	}
	if cfg.Tau <= 0 {
		cfg.Tau = 100 * time.Millisecond
	}
}

func validateGroupConfig(cfg GroupConfig) error {
	if !cfg.Unlimited && cfg.RateFactor <= 0 {
		return fmt.Errorf("config: rate_factor must be > 0 unless unlimited is set")
	}
	if cfg.MaxWeight == 0 && cfg.MaxSize == 0 {
		return fmt.Errorf("config: at least one of max_weight/max_size must be > 0")
	}
	return nil
}

func validateQueueConfig(cfg QueueConfig) error {
	if cfg.ShardCount < 1 {
		return fmt.Errorf("config: shard_count must be >= 1")
	}
	return nil
}

// Overrides binds environment-variable overrides on top of a loaded config
// file, the way the pack's work-queue CLI layers viper over its YAML. No
// command-line flags are bound. Prefix is the environment variable prefix
// (e.g. "FAIRSCHED").
func Overrides(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	return v
}

// ApplyGroupOverrides layers any environment-variable overrides bound in v
// (e.g. FAIRSCHED_MAX_WEIGHT, FAIRSCHED_RATE_FACTOR) on top of cfg, field by
// field. Unset overrides leave the corresponding field untouched.
func ApplyGroupOverrides(cfg GroupConfig, v *viper.Viper) GroupConfig {
	if s := v.GetString("max_weight"); s != "" {
		if n, err := strconv.ParseUint(s, 10, 32); err == nil {
			cfg.MaxWeight = uint32(n)
		}
	}
	if s := v.GetString("max_size"); s != "" {
		if n, err := strconv.ParseUint(s, 10, 32); err == nil {
			cfg.MaxSize = uint32(n)
		}
	}
	if s := v.GetString("weight_rate"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.WeightRate = f
		}
	}
	if s := v.GetString("size_rate"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.SizeRate = f
		}
	}
	if s := v.GetString("rate_factor"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.RateFactor = f
		}
	}
	if s := v.GetString("rate_limit_duration"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.RateLimitDuration = d
		}
	}
	if s := v.GetString("resolution"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.Resolution = d
		}
	}
	if s := v.GetString("unlimited"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			cfg.Unlimited = b
		}
	}
	return cfg
}

// ApplyQueueOverrides layers any environment-variable overrides bound in v
// (e.g. FAIRSCHED_TAU, FAIRSCHED_SHARD_COUNT) on top of cfg.
func ApplyQueueOverrides(cfg QueueConfig, v *viper.Viper) QueueConfig {
	if s := v.GetString("tau"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.Tau = d
		}
	}
	if s := v.GetString("shard_count"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.ShardCount = n
		}
	}
	if s := v.GetString("max_capacity"); s != "" {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			cfg.MaxCapacity = n
		}
	}
	return cfg
}
