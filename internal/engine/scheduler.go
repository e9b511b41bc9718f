package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"dexharvest/internal/fetcher"
	"dexharvest/internal/logx"
	"dexharvest/internal/metrics"

	"golang.org/x/sync/semaphore"
)

// Scheduler runs batches of retrievals on a fixed-size worker pool.
type Scheduler struct {
	retriever fetcher.Retriever
	limit     int

	// gate, when set, is shared by every batch of the run so the total number of
	// in-flight retrievals across concurrent batches stays within its weight.
	gate *semaphore.Weighted

	log     *logx.Logger
	metrics *metrics.Metrics
}

type SchedulerOption func(*Scheduler)

// WithSharedGate makes all batches draw from one pool of limit slots.
func WithSharedGate() SchedulerOption {
	return func(s *Scheduler) {
		s.gate = semaphore.NewWeighted(int64(s.limit))
	}
}

func WithLogger(l *logx.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = l
	}
}

func WithMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func NewScheduler(r fetcher.Retriever, limit int, opts ...SchedulerOption) (*Scheduler, error) {
	if r == nil {
		return nil, errors.New("retriever is nil")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", limit)
	}
	s := &Scheduler{retriever: r, limit: limit}
	for _, apply := range opts {
		if apply != nil {
			apply(s)
		}
	}
	return s, nil
}

func (s *Scheduler) Limit() int {
	return s.limit
}

// FetchAll retrieves every locator and returns the documents that succeeded.
// See FetchAllReport for the semantics.
func (s *Scheduler) FetchAll(ctx context.Context, bucket string, locators []string) []fetcher.Document {
	return s.FetchAllReport(ctx, bucket, locators).Documents
}

// FetchAllReport retrieves every locator exactly once using s.limit workers.
//
// Workers claim indices from a shared atomic cursor until it passes the end of
// locators. Each index gets one attempt: successes are appended in completion
// order, failures are logged as warnings and recorded in Failed. Nothing is
// retried and no failure stops the batch.
//
// The call returns only after every worker has exited. Cancellation of ctx is
// not propagated into the batch; once started it runs to completion.
func (s *Scheduler) FetchAllReport(ctx context.Context, bucket string, locators []string) BatchResult {
	res := BatchResult{
		Bucket:    bucket,
		Attempted: len(locators),
		Documents: make([]fetcher.Document, 0, len(locators)),
	}
	if len(locators) == 0 {
		return res
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx := context.WithoutCancel(ctx)

	var (
		cursor atomic.Int64
		mu     sync.Mutex
		wg     sync.WaitGroup
	)
	n := int64(len(locators))

	// Exactly limit workers; with fewer locators the surplus exits on its first claim.
	for w := 0; w < s.limit; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := cursor.Add(1) - 1
				if i >= n {
					return
				}
				locator := locators[i]
				doc, err := s.retrieveOne(runCtx, bucket, locator)

				mu.Lock()
				if err != nil {
					res.Failed = append(res.Failed, FailedItem{Locator: locator, Err: err})
				} else {
					res.Documents = append(res.Documents, doc)
				}
				mu.Unlock()

				if err != nil {
					s.log.Warnf("fetch %s %s: %s", bucket, locator, describeFetchError(err, s.log.Verbose()))
				}
			}
		}()
	}
	wg.Wait()

	return res
}

func (s *Scheduler) retrieveOne(ctx context.Context, bucket, locator string) (fetcher.Document, error) {
	if s.gate != nil {
		// runCtx is never canceled, so Acquire only returns once a slot is free.
		if err := s.gate.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer s.gate.Release(1)
	}

	done := s.metrics.Begin(bucket)
	doc, err := s.retriever.Retrieve(ctx, locator)
	done(err == nil)
	return doc, err
}
