package app

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"aqi_relay/internal/domain"
)

type ProbeResult struct {
	City     string
	Outcome  string
	Err      error
	Duration time.Duration
	Document domain.Document
}

type ProbeService struct {
	lookups *LookupService
}

func NewProbeService(l *LookupService) *ProbeService {
	return &ProbeService{lookups: l}
}

// Probe looks up every city with at most workers calls in flight. Results
// come back in input order. A cancelled ctx stops launching new lookups; the
// remaining cities report ctx.Err().
func (p *ProbeService) Probe(ctx context.Context, cities []string, workers int) []ProbeResult {
	if workers <= 0 {
		workers = 1
	}
	out := make([]ProbeResult, len(cities))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, city := range cities {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(cities); j++ {
				out[j] = ProbeResult{City: cities[j], Outcome: string(domain.KindCancelled), Err: err}
			}
			break
		}

		wg.Add(1)
		go func(i int, city string) {
			defer wg.Done()
			defer sem.Release(1)

			start := time.Now()
			doc, err := p.lookups.Lookup(ctx, city)
			out[i] = ProbeResult{
				City:     city,
				Outcome:  outcomeOf(doc, err),
				Err:      err,
				Duration: time.Since(start),
				Document: doc,
			}
		}(i, city)
	}

	wg.Wait()
	return out
}

// Failed reports whether any result is not a clean "ok".
func Failed(results []ProbeResult) bool {
	for _, r := range results {
		if r.Outcome != domain.OutcomeOK {
			return true
		}
	}
	return false
}
