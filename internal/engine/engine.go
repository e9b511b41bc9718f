package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dexharvest/internal/catalog"
	"dexharvest/internal/config"
	"dexharvest/internal/fetcher"
	gh "dexharvest/internal/github"
	"dexharvest/internal/logx"
	"dexharvest/internal/metrics"
	"dexharvest/internal/output"
)

func exitCodeForRun(fatal bool) int {
	// Exit code contract:
	// 0 = run completed (individual fetch failures do not change this)
	// 3 = fatal error (catalog, output or setup failure)
	if fatal {
		return 3
	}
	return 0
}

func setupOutputManager(cfg *config.Config, stdout io.Writer, runID string) (*output.Manager, error) {
	var sinks []output.Sink
	if !cfg.Output.NoConsole {
		cs, err := output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, cs)
	}
	return output.NewManager(runID, sinks...)
}

type Engine struct {
	Client *gh.Client

	// Retriever fetches one document. If nil, Engine uses an HTTPRetriever over
	// Client.HTTP (or http.DefaultClient).
	Retriever fetcher.Retriever

	// Metrics collects run metrics. If nil, Run creates a fresh registry.
	Metrics *metrics.Metrics

	Stdout io.Writer
	Stderr io.Writer

	// Test seams.
	openStore func(ctx context.Context, location string) (output.Store, error)
	newRunID  func() string
	now       func() time.Time
}

func NewEngine(client *gh.Client) *Engine {
	return &Engine{
		Client: client,
	}
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Engine) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

func (e *Engine) runID() string {
	if e.newRunID != nil {
		return e.newRunID()
	}
	return uuid.NewString()
}

func (e *Engine) open(ctx context.Context, location string) (output.Store, error) {
	if e.openStore != nil {
		return e.openStore(ctx, location)
	}
	return output.OpenStore(ctx, location)
}

func (e *Engine) retriever(cfg *config.Config) fetcher.Retriever {
	if e.Retriever != nil {
		return e.Retriever
	}
	var hc *http.Client
	if e.Client != nil {
		hc = e.Client.HTTP
	}
	return fetcher.NewHTTPRetriever(hc, cfg.Runtime.ItemTimeout)
}

// ListCatalog fetches the recursive tree listing for the configured source.
// Runtime.Timeout bounds the call.
func (e *Engine) ListCatalog(ctx context.Context, cfg *config.Config) (*catalog.Listing, error) {
	if e.Client == nil {
		return nil, fmt.Errorf("github client is nil")
	}
	listCtx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()
	return e.Client.ListAll(listCtx, cfg.Source.Owner, cfg.Source.Name, cfg.Source.Ref)
}

// PlanRun lists and classifies the catalog without fetching anything.
func (e *Engine) PlanRun(ctx context.Context, cfg *config.Config, log *logx.Logger) (*Plan, error) {
	if !cfg.Output.NoConsole {
		log.Infof("Listing catalog %s@%s...", cfg.Source.Repo, cfg.Source.Ref)
	}
	listing, err := e.ListCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if listing.Truncated {
		log.Warnf("catalog for %s@%s is truncated; some files will be missing", cfg.Source.Repo, cfg.Source.Ref)
	}
	return NewPlan(cfg, listing)
}

// fetchBuckets runs one batch per bucket concurrently and returns the results
// in bucket order. Batches never fail; only scheduler setup can.
func (e *Engine) fetchBuckets(ctx context.Context, cfg *config.Config, plan *Plan, log *logx.Logger, m *metrics.Metrics) ([]BatchResult, error) {
	opts := []SchedulerOption{WithLogger(log), WithMetrics(m)}
	if cfg.Runtime.SharedPool {
		opts = append(opts, WithSharedGate())
	}
	sched, err := NewScheduler(e.retriever(cfg), cfg.Runtime.Concurrency, opts...)
	if err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(plan.Buckets))
	var g errgroup.Group
	for i, b := range plan.Buckets {
		g.Go(func() error {
			results[i] = sched.FetchAllReport(ctx, b.Name, b.Locators)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func buildManifest(runID string, plan *Plan, results []BatchResult, started, finished time.Time) output.Manifest {
	m := output.Manifest{
		RunID: runID,
		Source: output.ManifestSource{
			Repository: plan.Repository,
			Ref:        plan.Ref,
			SHA:        plan.Listing.SHA,
			Truncated:  plan.Listing.Truncated,
		},
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Buckets:    make([]output.ManifestBucket, 0, len(results)),
	}
	for i, r := range results {
		failed := r.FailedLocators()
		if failed == nil {
			failed = []string{}
		}
		m.Buckets = append(m.Buckets, output.ManifestBucket{
			Name:      r.Bucket,
			Prefix:    plan.Rules[i].Prefix,
			File:      output.FileName(r.Bucket),
			Attempted: r.Attempted,
			Succeeded: r.Succeeded(),
			Failed:    failed,
		})
	}
	return m
}

func toCollections(results []BatchResult) []output.Collection {
	out := make([]output.Collection, 0, len(results))
	for _, r := range results {
		docs := make([]fetcher.Document, len(r.Documents))
		copy(docs, r.Documents)
		out = append(out, output.Collection{Bucket: r.Bucket, Documents: docs})
	}
	return out
}

func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	log := logx.New(e.stderr(), cfg.Runtime.Verbose)
	started := e.clock()
	runID := e.runID()
	m := e.Metrics
	if m == nil {
		m = metrics.New()
	}

	plan, err := e.PlanRun(ctx, cfg, log)
	if err != nil {
		log.Errorf("listing catalog: %v", err)
		return exitCodeForRun(true)
	}

	if cfg.Runtime.DryRun {
		plan.Print(e.stdout(), cfg.Runtime.Verbose)
		return exitCodeForRun(false)
	}

	outMgr, err := setupOutputManager(cfg, e.stdout(), runID)
	if err != nil {
		log.Errorf("creating output sinks: %v", err)
		return exitCodeForRun(true)
	}
	defer outMgr.Close()
	emit := func(ev output.Event) {
		if err := outMgr.Emit(ev); err != nil {
			log.Verbosef("output: %v", err)
		}
	}

	emit(output.Event{Type: output.EventRunStarted, Repository: plan.Repository, Ref: plan.Ref, Buckets: len(plan.Buckets)})
	emit(output.Event{
		Type:       output.EventCatalogListed,
		Repository: plan.Repository,
		Ref:        plan.Ref,
		Entries:    len(plan.Listing.Entries),
		Files:      plan.Listing.Files(),
	})

	fail := func(format string, args ...any) int {
		log.Errorf(format, args...)
		code := exitCodeForRun(true)
		emit(output.Event{Type: output.EventRunFinished, ExitCode: code})
		return code
	}

	store, err := e.open(ctx, cfg.Output.Location)
	if err != nil {
		return fail("opening output: %v", err)
	}
	defer store.Close()

	if !cfg.Output.NoConsole {
		log.Infof("Fetching %d files across %d buckets (concurrency %d)...", plan.Total(), len(plan.Buckets), cfg.Runtime.Concurrency)
	}
	results, err := e.fetchBuckets(ctx, cfg, plan, log, m)
	if err != nil {
		return fail("fetching: %v", err)
	}

	attempted, succeeded := 0, 0
	for _, r := range results {
		for _, f := range r.Failed {
			emit(output.Event{Type: output.EventItemFailed, Bucket: r.Bucket, Locator: f.Locator, Error: f.Err.Error()})
		}
		emit(output.Event{
			Type:      output.EventBatchFinished,
			Bucket:    r.Bucket,
			Attempted: r.Attempted,
			Succeeded: r.Succeeded(),
			Failed:    len(r.Failed),
		})
		attempted += r.Attempted
		succeeded += r.Succeeded()
	}

	agg, err := output.NewAggregator(store)
	if err != nil {
		return fail("writing output: %v", err)
	}
	written, err := agg.WriteAll(ctx, toCollections(results))
	for _, w := range written {
		m.Written(w.Bucket, w.Documents)
		emit(output.Event{Type: output.EventOutputWritten, Bucket: w.Bucket, File: w.File, Documents: w.Documents})
	}
	if err != nil {
		return fail("writing output to %s: %v", store.Location(), err)
	}

	finished := e.clock()
	if cfg.Output.Manifest {
		manifest := buildManifest(runID, plan, results, started, finished)
		if err := output.WriteJSON(ctx, store, output.ManifestName, manifest); err != nil {
			return fail("writing manifest: %v", err)
		}
		emit(output.Event{Type: output.EventOutputWritten, File: output.ManifestName})
	}

	m.ObserveRun(finished.Sub(started))
	if cfg.Runtime.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.Runtime.MetricsFile); err != nil {
			log.Warnf("writing metrics file %s: %v", cfg.Runtime.MetricsFile, err)
		}
	}

	code := exitCodeForRun(false)
	emit(output.Event{
		Type:      output.EventRunFinished,
		Attempted: attempted,
		Succeeded: succeeded,
		Failed:    attempted - succeeded,
		Buckets:   len(results),
		ExitCode:  code,
	})
	return code
}
