// Package scheduler implements the two-lane (interactive vs background)
// async work scheduler of spec.md §4.4, ported directly from
// _examples/original_source/crates/editor/src/scheduler/ops.rs. Go has no
// tokio::task::JoinSet equivalent, so each lane is modeled as a goroutine
// pool whose completions are drained through a buffered result channel; the
// background lane's concurrency is capped by a
// golang.org/x/sync/semaphore-backed gate whose permits are tied to actual
// task execution (acquired inside the goroutine, not at schedule time), per
// invariant 10 of spec.md §4.3 applied equally here.
package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rs/zerolog/log"
)

// Priority mirrors HookPriority::{Interactive, Background}.
type Priority int

const (
	Interactive Priority = iota
	Background
)

// Kind identifies the category of work for per-(doc,kind) pending counters
// and cancellation.
type Kind string

// DocID is an opaque document identity; the scheduler only uses it as a map
// key, so any comparable type in the caller's domain (buffer.DocumentId)
// satisfies this via a type alias at the call site.
type DocID uint64

// BackgroundDropThreshold: background work is dropped silently once the
// background lane's pending count reaches this, matching
// BACKGROUND_DROP_THRESHOLD in the original source.
const BackgroundDropThreshold = 64

// BacklogHighWater: drain_budget logs a warning if pending work still
// exceeds this after a drain pass, matching BACKLOG_HIGH_WATER.
const BacklogHighWater = 128

// backgroundConcurrency bounds how many background tasks may run at once;
// the original's gate.wait_for_background() has no fixed cap itself (it's a
// scope-based semaphore opened only while draining), but a bounded worker
// pool is the idiomatic Go equivalent of "permits tied to execution."
const backgroundConcurrency = 4

// WorkItem is one unit of schedulable work.
type WorkItem struct {
	DocID    DocID
	HasDoc   bool
	Kind     Kind
	Priority Priority
	Fn       func(ctx context.Context) error
}

type taskResult struct {
	err error
}

// joinSet is the goroutine-pool analog of tokio::task::JoinSet.
type joinSet struct {
	mu      sync.Mutex
	pending int
	results chan taskResult
	cancels []context.CancelFunc
}

func newJoinSet() *joinSet {
	return &joinSet{results: make(chan taskResult, 4096)}
}

func (j *joinSet) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pending
}

func (j *joinSet) spawn(parent context.Context, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(parent)
	j.mu.Lock()
	j.pending++
	j.cancels = append(j.cancels, cancel)
	results := j.results
	j.mu.Unlock()
	go func() {
		defer cancel()
		err := fn(ctx)
		results <- taskResult{err: err}
	}()
}

// joinNext blocks until a task completes, a timeout elapses, or ctx is
// cancelled, mirroring tokio::time::timeout(remaining, join_next()).
func (j *joinSet) joinNext(ctx context.Context) (taskResult, bool) {
	j.mu.Lock()
	if j.pending == 0 {
		j.mu.Unlock()
		return taskResult{}, false
	}
	results := j.results
	j.mu.Unlock()
	select {
	case r := <-results:
		j.mu.Lock()
		j.pending--
		j.mu.Unlock()
		return r, true
	case <-ctx.Done():
		return taskResult{}, false
	}
}

// abortAll cancels every outstanding task's context (best-effort — a task
// must itself observe ctx.Done() to stop early) and detaches from the
// result channel so the scheduler's bookkeeping resets immediately rather
// than waiting for straggler goroutines to actually exit.
func (j *joinSet) abortAll() int {
	j.mu.Lock()
	n := j.pending
	cancels := j.cancels
	old := j.results
	j.results = make(chan taskResult, 4096)
	j.cancels = nil
	j.pending = 0
	j.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	if n > 0 {
		go func() {
			for i := 0; i < n; i++ {
				<-old
			}
		}()
	}
	return n
}

// gate tracks the background semaphore: each background task holds one
// permit while it runs (the Go analog of the original's
// open_background_scope RAII guard).
type gate struct {
	sem *semaphore.Weighted
}

func newGate() *gate { return &gate{sem: semaphore.NewWeighted(backgroundConcurrency)} }

// Scheduler is the two-lane work scheduler of spec.md §4.4.
type Scheduler struct {
	mu sync.Mutex

	interactive *joinSet
	background  *joinSet
	gate        *gate

	pendingByDoc map[pendingKey]int

	scheduledTotal uint64
	completedTotal uint64
	droppedTotal   uint64
}

type pendingKey struct {
	doc  DocID
	kind Kind
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{
		interactive:  newJoinSet(),
		background:   newJoinSet(),
		gate:         newGate(),
		pendingByDoc: make(map[pendingKey]int),
	}
}

// Schedule enqueues a work item onto its priority lane.
func (s *Scheduler) Schedule(ctx context.Context, item WorkItem) {
	s.mu.Lock()
	s.scheduledTotal++
	var key pendingKey
	if item.HasDoc {
		key = pendingKey{doc: item.DocID, kind: item.Kind}
		s.pendingByDoc[key]++
	}
	s.mu.Unlock()

	switch item.Priority {
	case Interactive:
		s.interactive.spawn(ctx, item.Fn)
		log.Trace().Int("interactive_pending", s.interactive.len()).Str("kind", string(item.Kind)).Uint64("scheduled_total", s.scheduledTotal).Msg("work.schedule")
	case Background:
		if s.background.len() >= BackgroundDropThreshold {
			s.mu.Lock()
			s.droppedTotal++
			if item.HasDoc {
				if c := s.pendingByDoc[key]; c > 0 {
					s.pendingByDoc[key] = c - 1
				}
			}
			dropped := s.droppedTotal
			s.mu.Unlock()
			log.Debug().Int("background_pending", s.background.len()).Str("kind", string(item.Kind)).Uint64("dropped_total", dropped).Msg("dropping background work due to backlog")
			return
		}
		s.background.spawn(ctx, func(taskCtx context.Context) error {
			if err := s.gate.sem.Acquire(taskCtx, 1); err != nil {
				return err
			}
			defer s.gate.sem.Release(1)
			return item.Fn(taskCtx)
		})
		log.Trace().Int("background_pending", s.background.len()).Str("kind", string(item.Kind)).Uint64("scheduled_total", s.scheduledTotal).Msg("work.schedule")
	}
}

// Cancel subtracts pending-by-doc bookkeeping for (docID, kind) and returns
// how many entries were cleared. It has no effect on already-running
// futures: cancellation is best-effort for pending work only.
func (s *Scheduler) Cancel(docID DocID, kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pendingKey{doc: docID, kind: kind}
	count := s.pendingByDoc[key]
	delete(s.pendingByDoc, key)
	if count > 0 {
		log.Debug().Uint64("doc_id", uint64(docID)).Str("kind", string(kind)).Int("count", count).Msg("work.cancel")
	}
	return count
}

// PendingForDoc returns the pending count for (docID, kind).
func (s *Scheduler) PendingForDoc(docID DocID, kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingByDoc[pendingKey{doc: docID, kind: kind}]
}

// HasPending reports whether either lane has outstanding work.
func (s *Scheduler) HasPending() bool {
	return s.interactive.len() > 0 || s.background.len() > 0
}

// PendingCount is the sum of both lanes' pending counts.
func (s *Scheduler) PendingCount() int { return s.interactive.len() + s.background.len() }

// InteractiveCount / BackgroundCount report per-lane pending counts.
func (s *Scheduler) InteractiveCount() int { return s.interactive.len() }
func (s *Scheduler) BackgroundCount() int  { return s.background.len() }

// ScheduledTotal / CompletedTotal / DroppedTotal report running totals.
func (s *Scheduler) ScheduledTotal() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduledTotal
}
func (s *Scheduler) CompletedTotal() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedTotal
}
func (s *Scheduler) DroppedTotal() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedTotal
}

// DrainBudget drains completions within a time budget: the interactive lane
// fully first (until empty or the deadline), then, only once interactive is
// empty, the background lane until empty or the deadline. Logs a high-water
// warning if work remains pending above BacklogHighWater afterward.
func (s *Scheduler) DrainBudget(ctx context.Context, budget time.Duration) {
	if !s.HasPending() {
		return
	}
	start := time.Now()
	deadline := start.Add(budget)
	s.mu.Lock()
	completedBefore := s.completedTotal
	s.mu.Unlock()

	for time.Now().Before(deadline) && s.interactive.len() > 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		tctx, cancel := context.WithTimeout(ctx, remaining)
		res, ok := s.interactive.joinNext(tctx)
		cancel()
		if !ok {
			break
		}
		s.mu.Lock()
		s.completedTotal++
		s.mu.Unlock()
		if res.err != nil {
			log.Error().Err(res.err).Msg("interactive work task failed")
		}
	}

	if s.interactive.len() == 0 {
		for time.Now().Before(deadline) && s.background.len() > 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			tctx, cancel := context.WithTimeout(ctx, remaining)
			res, ok := s.background.joinNext(tctx)
			cancel()
			if !ok {
				break
			}
			s.mu.Lock()
			s.completedTotal++
			s.mu.Unlock()
			if res.err != nil {
				log.Error().Err(res.err).Msg("background work task failed")
			}
		}
	}

	s.mu.Lock()
	completedThisDrain := s.completedTotal - completedBefore
	pendingAfter := s.interactive.len() + s.background.len()
	scheduled, completed, dropped := s.scheduledTotal, s.completedTotal, s.droppedTotal
	s.mu.Unlock()

	if completedThisDrain > 0 || pendingAfter > 0 {
		log.Debug().
			Int64("budget_ms", budget.Milliseconds()).
			Int64("elapsed_ms", time.Since(start).Milliseconds()).
			Uint64("completed", completedThisDrain).
			Int("interactive_pending", s.interactive.len()).
			Int("background_pending", s.background.len()).
			Msg("work.drain_budget")
	}
	if pendingAfter > BacklogHighWater {
		log.Warn().
			Int("interactive_pending", s.interactive.len()).
			Int("background_pending", s.background.len()).
			Uint64("scheduled", scheduled).
			Uint64("completed", completed).
			Uint64("dropped", dropped).
			Msg("work backlog exceeds high-water mark")
	}
}

// DrainAll unconditionally drains both lanes to completion; used at
// shutdown.
func (s *Scheduler) DrainAll(ctx context.Context) {
	for s.interactive.len() > 0 {
		res, ok := s.interactive.joinNext(ctx)
		if !ok {
			break
		}
		if res.err != nil {
			log.Error().Err(res.err).Msg("interactive work task failed during drain_all")
		}
		s.mu.Lock()
		s.completedTotal++
		s.mu.Unlock()
	}
	for s.background.len() > 0 {
		res, ok := s.background.joinNext(ctx)
		if !ok {
			break
		}
		if res.err != nil {
			log.Error().Err(res.err).Msg("background work task failed during drain_all")
		}
		s.mu.Lock()
		s.completedTotal++
		s.mu.Unlock()
	}
}

// DropBackground aborts all pending background work.
func (s *Scheduler) DropBackground() {
	count := s.background.abortAll()
	if count > 0 {
		s.mu.Lock()
		s.droppedTotal += uint64(count)
		s.mu.Unlock()
		log.Info().Int("dropped", count).Msg("dropped all background work")
	}
}
