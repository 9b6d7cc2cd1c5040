// Command fairbench runs a synthetic multi-class workload against a Fair
// Group/Fair Queue pair and exposes optional pprof/Prometheus endpoints,
// mirroring the teacher's cmd/bench.
package main

import (
	"flag"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairsched/fairsched/config"
	"github.com/fairsched/fairsched/group"
	pmet "github.com/fairsched/fairsched/metrics/prom"
	"github.com/fairsched/fairsched/queue"
	"github.com/fairsched/fairsched/ticket"
)

func main() {
	var (
		groupConfigPath = flag.String("group-config", "", "path to a Fair Group YAML config (optional; defaults below apply otherwise)")
		queueConfigPath = flag.String("queue-config", "", "path to a Fair Queue YAML config (optional; defaults below apply otherwise)")

		shards   = flag.Int("shards", runtime.GOMAXPROCS(0), "number of shards (Fair Queues)")
		classes  = flag.Int("classes", 2, "number of priority classes per shard")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")

		ticketWeight = flag.Uint("ticket-weight", 1, "per-request ticket weight")
		ticketSize   = flag.Uint("ticket-size", 4096, "per-request ticket size")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	log.Logger = logger

	if *pprofAddr != "" {
		go func() {
			logger.Info().Str("addr", *pprofAddr).Msg("serving pprof")
			logger.Err(http.ListenAndServe(*pprofAddr, nil)).Msg("pprof server stopped")
		}()
	}

	metrics := pmet.New(nil, "fairsched", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		logger.Info().Str("addr", *metricsAddr).Msg("serving prometheus metrics")
		logger.Err(http.ListenAndServe(*metricsAddr, nil)).Msg("metrics server stopped")
	}()

	overrides := config.Overrides("FAIRSCHED")

	groupCfg := loadGroupConfig(logger, *groupConfigPath)
	groupCfg = config.ApplyGroupOverrides(groupCfg, overrides)
	g := group.New(groupCfg.ToGroupConfig(), nil)

	queueCfg := loadQueueConfig(logger, *queueConfigPath, *shards)
	queueCfg = config.ApplyQueueOverrides(queueCfg, overrides)
	queueCfg.ShardCount = *shards

	var dispatchedTotal atomic.Int64
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for shardIdx := 0; shardIdx < *shards; shardIdx++ {
		shardID := uuid.New()
		qcfg := queueCfg.ToQueueConfig(g)
		qcfg.Metrics = metrics
		q := queue.New(g, qcfg)
		for c := 0; c < *classes; c++ {
			if err := q.RegisterPriorityClass(c, uint32(c+1)); err != nil {
				logger.Fatal().Err(err).Int("class", c).Msg("register priority class")
			}
		}

		wg.Add(2)
		go producerLoop(&wg, stop, q, *classes, ticket.Ticket{Weight: uint32(*ticketWeight), Size: uint32(*ticketSize)})
		go dispatchLoop(&wg, stop, q, g, &dispatchedTotal, logger.With().Str("shard", shardID.String()).Logger())
	}

	time.Sleep(*duration)
	close(stop)
	wg.Wait()

	logger.Info().Int64("dispatched", dispatchedTotal.Load()).Msg("benchmark complete")
}

// loadGroupConfig reads path if given, falling back to a sensible default
// when no config file is provided.
func loadGroupConfig(logger zerolog.Logger, path string) config.GroupConfig {
	if path == "" {
		return config.GroupConfig{
			MaxWeight:         1000,
			MaxSize:           1 << 20,
			WeightRate:        100,
			SizeRate:          64 << 10,
			RateFactor:        1,
			RateLimitDuration: time.Second,
		}
	}
	cfg, err := config.LoadGroupConfig(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("load group config")
	}
	return cfg
}

// loadQueueConfig reads path if given, falling back to a default tau and
// the live --shards flag value for shard_count when no config file is
// provided.
func loadQueueConfig(logger zerolog.Logger, path string, shards int) config.QueueConfig {
	if path == "" {
		return config.QueueConfig{
			Tau:        100 * time.Millisecond,
			ShardCount: shards,
		}
	}
	cfg, err := config.LoadQueueConfig(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("load queue config")
	}
	return cfg
}

func producerLoop(wg *sync.WaitGroup, stop <-chan struct{}, q *queue.FairQueue, classes int, t ticket.Ticket) {
	defer wg.Done()
	classID := 0
	for {
		select {
		case <-stop:
			return
		default:
		}
		entry := queue.NewEntry(t, nil)
		if err := q.Queue(classID, entry); err == nil {
			classID = (classID + 1) % classes
		}
	}
}

func dispatchLoop(wg *sync.WaitGroup, stop <-chan struct{}, q *queue.FairQueue, g *group.FairGroup, dispatched *atomic.Int64, logger zerolog.Logger) {
	defer wg.Done()
	ticker := time.NewTicker(500 * time.Microsecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			g.ReplenishCapacity(now)
			n := q.DispatchRequests(func(e *queue.Entry) {
				q.NotifyRequestFinished(e.Ticket)
			})
			if n > 0 {
				dispatched.Add(int64(n))
			}
		}
	}
}
