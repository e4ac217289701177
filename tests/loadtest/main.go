package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:18090"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numSessions  = 40
)

var filters = []string{"newest", "following", "trending", "mine"}
var users = []string{"alice", "bob", "carol", "dave", ""}

var httpClient = &http.Client{
	Timeout: 15 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

var sessionIDs []string

func main() {
	fmt.Println("=== snapfeed Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Sessions: %d\n\n", numWorkers, testDuration, numSessions)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 0: open the session pool
	fmt.Printf("\n--- Phase 0: Opening %d sessions ---\n", numSessions)
	for i := 0; i < numSessions; i++ {
		id, err := createSession(users[i%len(users)])
		if err != nil {
			fmt.Printf("FAILED to open session: %v\n", err)
			return
		}
		sessionIDs = append(sessionIDs, id)
	}
	fmt.Printf("Opened %d sessions\n", len(sessionIDs))

	// Phase 1: first-paint load, every worker hammers GET /feed
	fmt.Println("\n--- Phase 1: First-paint load (100% GET /feed) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doGetFeed(rng)
	})

	// Phase 2: scroll-heavy mix
	fmt.Println("\n--- Phase 2: Scroll-heavy mix (60% feed, 25% more, 5% refresh, 10% stats) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.60:
			return doGetFeed(rng)
		case r < 0.85:
			return doLoadMore(rng)
		case r < 0.90:
			return doRefresh(rng)
		default:
			return doSessionStats(rng)
		}
	})

	// Phase 3: session churn on top of reads
	fmt.Println("\n--- Phase 3: Read load with session churn ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.75:
			return doGetFeed(rng)
		case r < 0.90:
			return doLoadMore(rng)
		default:
			return doSessionChurn(rng)
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func createSession(user string) (string, error) {
	var body io.Reader
	if user != "" {
		data, _ := json.Marshal(map[string]string{"user": user})
		body = bytes.NewReader(data)
	}
	resp, err := httpClient.Post(baseURL+"/session", "application/json", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 201 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var payload struct {
		Session string `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.Session, nil
}

func pickSession(rng *rand.Rand) string {
	return sessionIDs[rng.Intn(len(sessionIDs))]
}

func doGetFeed(rng *rand.Rand) result {
	filter := filters[rng.Intn(len(filters))]
	url := fmt.Sprintf("%s/feed?session=%s&filter=%s", baseURL, pickSession(rng), filter)
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /feed", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /feed", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doLoadMore(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/feed/more?session=%s", baseURL, pickSession(rng))
	start := time.Now()
	resp, err := httpClient.Post(url, "application/json", nil)
	lat := time.Since(start)
	if err != nil {
		return result{"POST /feed/more", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /feed/more", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doRefresh(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/feed/refresh?session=%s", baseURL, pickSession(rng))
	start := time.Now()
	resp, err := httpClient.Post(url, "application/json", nil)
	lat := time.Since(start)
	if err != nil {
		return result{"POST /feed/refresh", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /feed/refresh", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doSessionStats(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/session/stats?session=%s", baseURL, pickSession(rng))
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /session/stats", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /session/stats", resp.StatusCode, lat, resp.StatusCode != 200}
}

// doSessionChurn opens a throwaway session and closes it again, exercising
// the create and delete paths without touching the shared pool.
func doSessionChurn(rng *rand.Rand) result {
	start := time.Now()
	id, err := createSession(users[rng.Intn(len(users))])
	if err != nil {
		return result{"churn /session", 0, time.Since(start), true}
	}

	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/session?session=%s", baseURL, id), nil)
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{"churn /session", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"churn /session", resp.StatusCode, lat, resp.StatusCode != 204}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
