package group

import (
	"math/rand"
	"runtime"
	"sync"
	"testing"
	"time"
)

// A mixed workload of concurrent GrabCapacity/ReleaseCapacity/
// ReplenishCapacity/CapacityDeficiency calls against one shared FairGroup,
// standing in for many shards hammering the group at once. Should pass
// under `-race` without detector reports.
func TestRace_GroupMixedWorkload(t *testing.T) {
	g := New(Config{
		MaxWeight:         10_000,
		MaxSize:           1 << 20,
		WeightRate:        5_000,
		SizeRate:          1 << 16,
		RateFactor:        1,
		RateLimitDuration: time.Second,
	}, nil)

	workers := 4 * runtime.GOMAXPROCS(0)
	deadline := time.Now().Add(300 * time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4, 5, 6, 7, 8, 9: // ~10% — replenish
					g.ReplenishCapacity(time.Now())
				case 10, 11, 12, 13, 14, 15, 16, 17, 18, 19: // ~10% — release
					g.ReleaseCapacity(uint64(r.Intn(1000)))
				default: // ~80% — grab + check deficiency
					prior := g.GrabCapacity(uint64(r.Intn(1000)))
					g.CapacityDeficiency(prior + 1)
				}
			}
		}(w)
	}
	wg.Wait()
}

// Many goroutines repeatedly grab and release capacity against the same
// unlimited group, standing in for every shard's Fair Queue calling into
// the group's atomics independently. Should pass under `-race` without
// detector reports.
func TestRace_GroupGrabReleaseLoop(t *testing.T) {
	g := New(Config{
		MaxWeight:  10_000,
		MaxSize:    1 << 20,
		WeightRate: 5_000,
		SizeRate:   1 << 16,
		RateFactor: 1,
		Unlimited:  true,
	}, nil)

	workers := 4 * runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				g.GrabCapacity(uint64(i))
				g.ReleaseCapacity(uint64(i))
			}
		}()
	}
	wg.Wait()
}
