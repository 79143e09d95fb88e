// Package orchestrator drives parallel evidence uploads: each file moves
// through a fixed lifecycle (queued, hashing, init, uploading, completing,
// verified) with bounded concurrency and transient-failure retries.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-project/custodia/internal/client/api"
	"github.com/custodia-project/custodia/internal/logging"
)

type Orchestrator struct {
	client   api.Client
	caseID   string
	parallel int
	retry    *RetryPolicy
	logger   logging.Logger

	pub publisher
	now func() time.Time
}

func NewOrchestrator(client api.Client, caseID string, parallel int, retry *RetryPolicy, logger logging.Logger) *Orchestrator {
	if parallel < 1 {
		parallel = 1
	}
	return &Orchestrator{
		client:   client,
		caseID:   caseID,
		parallel: parallel,
		retry:    retry,
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe registers a callback for transfer events and returns the
// corresponding unsubscribe function. Callbacks run on worker goroutines.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	return o.pub.subscribe(fn)
}

// Result is the terminal outcome of one file.
type Result struct {
	Path       string
	State      State
	EvidenceID string
	SHA256     string
	ExistingID string
	Err        error
}

// Run uploads the given files with at most the configured number of parallel
// transfers and returns one result per path, in input order. A failed or
// duplicate file never aborts the others.
func (o *Orchestrator) Run(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < o.parallel; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.processFile(ctx, paths[i])
			}
		}()
	}

	for i := range paths {
		o.pub.publish(Event{Path: paths[i], State: StateQueued})
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
