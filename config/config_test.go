package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairsched/fairsched/group"
)

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGroupConfigDefaultsAndValidation(t *testing.T) {
	path := writeTempYAML(t, `
max_weight: 1000
max_size: 1048576
weight_rate: 500
size_rate: 65536
rate_factor: 1
rate_limit_duration: 1s
`)
	cfg, err := LoadGroupConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), cfg.MaxWeight)
	assert.Equal(t, rateDefaultResolution(t), cfg.Resolution, "zero resolution falls back to the default")
}

func TestLoadGroupConfigRejectsZeroCapacity(t *testing.T) {
	path := writeTempYAML(t, `
rate_factor: 1
`)
	_, err := LoadGroupConfig(path)
	require.Error(t, err)
}

func TestLoadGroupConfigRejectsZeroRateFactorUnlessUnlimited(t *testing.T) {
	path := writeTempYAML(t, `
max_weight: 10
rate_factor: 0
`)
	_, err := LoadGroupConfig(path)
	require.Error(t, err)

	path = writeTempYAML(t, `
max_weight: 10
rate_factor: 0
unlimited: true
`)
	_, err = LoadGroupConfig(path)
	require.NoError(t, err)
}

func TestLoadQueueConfigDefaultsAndDerivation(t *testing.T) {
	path := writeTempYAML(t, `
tau: 250ms
shard_count: 4
max_capacity: 800
`)
	cfg, err := LoadQueueConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.ShardCount)

	g := group.New(group.Config{MaxWeight: 10, RateFactor: 1, Unlimited: true}, nil)
	qc := cfg.ToQueueConfig(g)
	assert.Equal(t, uint64(200), qc.MaxCapacityPerDispatch, "max_capacity divided evenly across shard_count")
}

func TestLoadQueueConfigClampsZeroShardCount(t *testing.T) {
	path := writeTempYAML(t, `
shard_count: 0
`)
	cfg, err := LoadQueueConfig(path)
	// applyQueueDefaults clamps shard_count up to 1 before validation runs,
	// so a zero value in the file is not actually rejectable here; this
	// documents that defaulting-before-validating behavior.
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ShardCount)
}

func TestOverridesBindsEnvPrefix(t *testing.T) {
	t.Setenv("FAIRSCHED_TAU", "1s")
	v := Overrides("FAIRSCHED")
	assert.Equal(t, "1s", v.Get("tau"))
}

func rateDefaultResolution(t *testing.T) time.Duration {
	t.Helper()
	return 500 * time.Microsecond
}
