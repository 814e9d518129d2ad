// Command silosession-probe exercises the session manager against a live
// backend, or an in-process fake when none is given. It logs in, hammers a
// guarded endpoint from concurrent workers while the backend keeps expiring
// the access token, and prints the metric snapshot — the interesting number
// is refresh_success staying far below retry_after_401.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	silosession "github.com/silotrack/silosession"
	"github.com/silotrack/silosession/authtest"
	"github.com/silotrack/silosession/silo"
)

func main() {
	var (
		backend     = flag.String("backend", "", "backend base URL; if empty, an in-process fake is started")
		email       = flag.String("email", "probe@example.com", "login email")
		senha       = flag.String("senha", "probe-senha", "login password")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "total guarded requests")
		expireEvery = flag.Int("expire-every", 200, "invalidate access tokens every N requests (fake backend only)")
		redisAddr   = flag.String("redis-addr", "", "store tokens in redis at this address; if empty, miniredis is used")
		verbose     = flag.Bool("v", false, "log session lifecycle events")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	var fake *authtest.Server
	baseURL := *backend
	if baseURL == "" {
		fake = authtest.NewServer()
		fake.Seed("Probe", *email, *senha)
		ts := httptest.NewServer(fake.Handler())
		defer ts.Close()
		baseURL = ts.URL
		fmt.Printf("using in-process backend at %s\n", baseURL)
	}

	addr := *redisAddr
	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	manager, err := silosession.New().
		WithBaseURL(baseURL).
		WithRedis(client, "probe").
		WithLogger(logger).
		WithMetricsEnabled(true).
		WithNotifier(silosession.NewCallbackSink(func(e silosession.Event) {
			if *verbose {
				fmt.Printf("event %s endpoint=%s status=%d\n", e.Type, e.Endpoint, e.Status)
			}
		})).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build manager: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	if _, err := manager.Login(ctx, *email, *senha); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("logged in")

	api, err := silo.NewClient(baseURL, manager.Client())
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}

	var (
		wg       sync.WaitGroup
		cursor   int64
		failures int64
	)

	start := time.Now()
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= *ops {
					return
				}
				if fake != nil && *expireEvery > 0 && i > 0 && i%*expireEvery == 0 {
					fake.InvalidateAccessTokens()
				}
				if _, err := api.ListGraos(ctx); err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)

	fmt.Printf("---- results ----\n")
	fmt.Printf("ops=%d failures=%d total=%s ops/sec=%.0f\n",
		*ops, failures, total.Round(time.Millisecond), float64(*ops)/total.Seconds())

	snapshot := manager.Metrics().Snapshot()
	fmt.Println("---- metrics ----")
	for _, id := range []silosession.MetricID{
		silosession.MetricLoginSuccess,
		silosession.MetricRefreshSuccess,
		silosession.MetricRefreshFailure,
		silosession.MetricRefreshShared,
		silosession.MetricRetryAfter401,
		silosession.MetricRetryExhausted,
		silosession.MetricAuthFailure,
	} {
		fmt.Printf("%s=%d\n", id, snapshot.Counters[id])
	}
	if fake != nil {
		fmt.Printf("backend refresh calls=%d verify calls=%d\n", fake.RefreshCalls(), fake.VerifyCalls())
	}
}
