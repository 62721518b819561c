package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAttend/tokenstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type loadtestOptions struct {
	sessions    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
	ttl         time.Duration
}

func newLoadtestCmd() *cobra.Command {
	opts := loadtestOptions{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure token store latency against Redis",
		Long: `loadtest seeds persisted credentials, then runs two phases against them:
recover reads each credential through a fresh token store, as a restarted portal
does, and relogin overwrites it, as a new sign-in does. An empty --redis-addr runs
an embedded Redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&opts.sessions, "sessions", 100000, "number of credentials to seed")
	fs.IntVar(&opts.concurrency, "concurrency", 256, "number of concurrent workers")
	fs.IntVar(&opts.ops, "ops", 200000, "operations per phase")
	fs.StringVar(&opts.redisAddr, "redis-addr", "", "Redis address; empty runs an embedded Redis")
	fs.StringVar(&opts.prefix, "prefix", "ga-load", "credential key prefix")
	fs.DurationVar(&opts.ttl, "ttl", time.Hour, "credential TTL")
	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, opts loadtestOptions) error {
	if opts.sessions <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
		return errors.New("sessions, concurrency and ops must be > 0")
	}

	addr := opts.redisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using embedded redis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()
	backend := tokenstore.NewRedisBackend(client, opts.prefix, opts.ttl, false)

	sids := make([]string, opts.sessions)
	fmt.Fprintf(out, "seeding %d credentials...\n", opts.sessions)
	seedStart := time.Now()
	for i := range sids {
		sids[i] = fmt.Sprintf("sid-%d", i)
		if err := backend.Save(ctx, sids[i], tokenFor(i, 0)); err != nil {
			return fmt.Errorf("seed %s: %w", sids[i], err)
		}
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(seedStart).Round(time.Millisecond))

	recoverStats := runPhase(opts, func(r *rand.Rand, _ int) error {
		store, err := tokenstore.New(backend, sids[r.Intn(len(sids))], nil)
		if err != nil {
			return err
		}
		if _, ok := store.Get(ctx); !ok {
			return tokenstore.ErrNotFound
		}
		return nil
	})

	locks := make([]sync.Mutex, len(sids))
	reloginStats := runPhase(opts, func(r *rand.Rand, op int) error {
		idx := r.Intn(len(sids))
		locks[idx].Lock()
		defer locks[idx].Unlock()
		store, err := tokenstore.New(backend, sids[idx], nil)
		if err != nil {
			return err
		}
		return store.Set(ctx, tokenFor(idx, op+1))
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "recover", recoverStats)
	printStats(out, "relogin", reloginStats)
	return nil
}

// runPhase spreads opts.ops calls of fn over opts.concurrency workers.
func runPhase(opts loadtestOptions, fn func(r *rand.Rand, op int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= opts.ops {
					return
				}
				t0 := time.Now()
				err := fn(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

// percentile expects sorted samples.
func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func tokenFor(i, generation int) string {
	return fmt.Sprintf("load-token-%d-%d", i, generation)
}
