// Package analyzer is the URL Analyzer Worker: an async, coalescing job
// queue keyed by node_id, draining into a bounded pool that extracts URLs
// from node content and enriches each with fetched metadata. Analyzer
// output never blocks or fails a command — enrichment failures are always
// recoverable, surfacing only as a missing Metadata field on a URLRecord.
package analyzer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/podlove/outliner/internal/db"
	"github.com/podlove/outliner/internal/eventbus"
	"github.com/podlove/outliner/internal/eventstore"
	"github.com/podlove/outliner/internal/outline"
	"github.com/podlove/outliner/internal/repo"
)

// Config controls the worker pool's concurrency and timeouts: analyzer
// concurrency, per-URL fetch timeout, and per-job time budget.
type Config struct {
	Concurrency   int
	PerURLTimeout time.Duration
	JobBudget     time.Duration
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:   4,
		PerURLTimeout: 5 * time.Second,
		JobBudget:     20 * time.Second,
	}
}

type job struct {
	containerID string
	nodeID      string
	content     string
}

// Worker runs the coalescing URL analyzer pool.
type Worker struct {
	cfg     Config
	repo    repo.Repository
	events  *eventstore.Store
	store   *db.Store
	bus     *eventbus.Bus
	fetcher *Fetcher

	mu       sync.Mutex
	pending  map[string]job  // nodeID -> latest unstarted job
	inFlight map[string]bool // nodeID currently being processed
	wakeCh   chan struct{}

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	runMu   sync.RWMutex
}

// NewWorker builds a Worker. bus may be nil if no subscribers need
// UrlsAnalyzed notifications (e.g. in tests exercising persistence only).
func NewWorker(cfg Config, repository repo.Repository, store *db.Store, events *eventstore.Store, bus *eventbus.Bus) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Worker{
		cfg:      cfg,
		repo:     repository,
		events:   events,
		store:    store,
		bus:      bus,
		fetcher:  NewFetcher(nil),
		pending:  make(map[string]job),
		inFlight: make(map[string]bool),
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background pool. Safe to call once; a second call is a
// no-op while already running.
func (w *Worker) Start(ctx context.Context) {
	w.runMu.Lock()
	if w.running {
		w.runMu.Unlock()
		return
	}
	w.running = true
	w.runMu.Unlock()

	go w.run(ctx)
}

// Stop signals the pool to finish in-flight jobs and exit, blocking until
// it does.
func (w *Worker) Stop() {
	w.runMu.Lock()
	if !w.running {
		w.runMu.Unlock()
		return
	}
	w.runMu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.fetcher.Close()
}

// Running reports whether the pool's dispatch loop is active.
func (w *Worker) Running() bool {
	w.runMu.RLock()
	defer w.runMu.RUnlock()
	return w.running
}

// Enqueue schedules content from nodeID for analysis. If a job for the
// same node is already queued (not yet started), its content is replaced
// rather than appended — a coalescing policy: only the latest content per
// node is ever worth analyzing.
func (w *Worker) Enqueue(containerID, nodeID, content string) {
	w.mu.Lock()
	w.pending[nodeID] = job{containerID: containerID, nodeID: nodeID, content: content}
	w.mu.Unlock()

	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

func (w *Worker) run(ctx context.Context) {
	defer func() {
		w.runMu.Lock()
		w.running = false
		w.runMu.Unlock()
		close(w.doneCh)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)

	for {
		select {
		case <-ctx.Done():
			g.Wait()
			return
		case <-w.stopCh:
			g.Wait()
			return
		case <-w.wakeCh:
			for _, j := range w.drainPending() {
				j := j
				g.Go(func() error {
					w.processJob(gctx, j)
					return nil
				})
			}
		}
	}
}

// drainPending moves every pending job whose node isn't already being
// processed into the returned slice, marking each in-flight.
func (w *Worker) drainPending() []job {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []job
	for nodeID, j := range w.pending {
		if w.inFlight[nodeID] {
			continue
		}
		out = append(out, j)
		w.inFlight[nodeID] = true
		delete(w.pending, nodeID)
	}
	return out
}

func (w *Worker) processJob(ctx context.Context, j job) {
	defer w.finishJob(j.nodeID)

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobBudget)
	defer cancel()

	urls := ExtractURLs(j.content)
	for i := range urls {
		urls[i].NodeID = j.nodeID
		urlCtx, urlCancel := context.WithTimeout(jobCtx, w.cfg.PerURLTimeout)
		meta, err := w.fetcher.FetchMetadata(urlCtx, urls[i].URL)
		urlCancel()
		if err != nil {
			log.Printf("[analyzer] metadata fetch failed for %s (node %s): %v", urls[i].URL, j.nodeID, err)
			continue
		}
		urls[i].Metadata = meta
	}

	if err := w.commit(jobCtx, j.containerID, j.nodeID, urls); err != nil {
		log.Printf("[analyzer] commit failed for node %s: %v", j.nodeID, err)
	}
}

func (w *Worker) commit(ctx context.Context, containerID, nodeID string, urls []outline.URLRecord) error {
	var emitted outline.Event
	err := w.repo.WithinTransaction(ctx, func(q *db.Queries) error {
		if err := w.repo.ReplaceURLs(ctx, q, nodeID, urls); err != nil {
			return err
		}
		ev, err := w.events.Append(ctx, q, outline.EventUrlsAnalyzed, containerID,
			uuid.NewString()+":analyzer", "system", outline.UrlsAnalyzedPayload{
				NodeID: nodeID, URLs: urls, ContainerID: containerID,
			})
		emitted = ev
		return err
	})
	if err != nil {
		return err
	}
	w.bus.Publish(emitted)
	return nil
}

// finishJob clears inFlight for nodeID and re-wakes the dispatcher if a
// newer job was coalesced in while this one was running.
func (w *Worker) finishJob(nodeID string) {
	w.mu.Lock()
	delete(w.inFlight, nodeID)
	_, stillPending := w.pending[nodeID]
	w.mu.Unlock()

	if stillPending {
		select {
		case w.wakeCh <- struct{}{}:
		default:
		}
	}
}
