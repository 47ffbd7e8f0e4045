package syntax

import (
	"context"
	"testing"
	"time"

	"tome.dev/tome/internal/scheduler"
)

func waitDrain(t *testing.T, sched *scheduler.Scheduler, m *Manager, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		sched.DrainBudget(context.Background(), 5*time.Millisecond)
		m.DrainFinishedInflight()
		time.Sleep(time.Millisecond)
	}
}

func TestBootstrapParseInstallsBackgroundTree(t *testing.T) {
	sched := scheduler.New()
	m := NewManager(sched)
	const doc DocID = 1
	src := []byte("package main\n\nfunc main() {}\n")
	m.Open(doc, "go", len(src))

	result := m.EnsureSyntax(context.Background(), doc, ViewportKey{}, func() ([]byte, uint64) { return src, 1 })
	if result != Kicked {
		t.Fatalf("expected bootstrap parse to kick work, got %v", result)
	}
	waitDrain(t, sched, m, time.Second)

	if _, ok := m.BackgroundTree(doc); !ok {
		t.Fatalf("expected a background tree installed after bootstrap parse")
	}
	if v := m.SyntaxVersion(doc); v == 0 {
		t.Fatalf("expected syntax_version to have bumped on install")
	}
}

func TestUnsupportedLanguageIsIdle(t *testing.T) {
	sched := scheduler.New()
	m := NewManager(sched)
	const doc DocID = 2
	m.Open(doc, "cobol", 10)
	if got := m.EnsureSyntax(context.Background(), doc, ViewportKey{}, func() ([]byte, uint64) { return []byte("x"), 1 }); got != Idle {
		t.Fatalf("expected Idle for unsupported language, got %v", got)
	}
}

func TestInvalidateDropsStaleCompletion(t *testing.T) {
	sched := scheduler.New()
	m := NewManager(sched)
	const doc DocID = 3
	src := []byte("package main\n")
	m.Open(doc, "go", len(src))

	m.EnsureSyntax(context.Background(), doc, ViewportKey{}, func() ([]byte, uint64) { return src, 1 })
	// Invalidate immediately, before the background task completes: the
	// completion that eventually arrives carries the old epoch and must be
	// dropped rather than installed (the in-flight epoch check in install).
	m.Invalidate(doc)
	waitDrain(t, sched, m, 500*time.Millisecond)

	if _, ok := m.BackgroundTree(doc); ok {
		t.Fatalf("expected no background tree installed after invalidate raced the parse")
	}
}

func TestSingleFlightPerLane(t *testing.T) {
	sched := scheduler.New()
	m := NewManager(sched)
	const doc DocID = 4
	src := []byte("package main\n")
	m.Open(doc, "go", len(src))

	m.EnsureSyntax(context.Background(), doc, ViewportKey{}, func() ([]byte, uint64) { return src, 1 })
	// A second cycle before the first background parse finishes must not
	// post a second background task for the same lane.
	second := m.EnsureSyntax(context.Background(), doc, ViewportKey{}, func() ([]byte, uint64) { return src, 1 })
	if second == Kicked {
		m.mu.Lock()
		st := m.docs[doc]
		bgInflight := st.inflightLn[LaneBackground]
		m.mu.Unlock()
		if bgInflight == nil {
			t.Fatalf("expected background lane to still be the original single-flight task")
		}
	}
	waitDrain(t, sched, m, time.Second)
}

func TestMarkVisiblePromotesHotness(t *testing.T) {
	sched := scheduler.New()
	m := NewManager(sched)
	const doc DocID = 5
	m.Open(doc, "go", 10)
	m.MarkVisible(doc)
	m.mu.Lock()
	hot := m.docs[doc].hot
	m.mu.Unlock()
	if !hot {
		t.Fatalf("expected MarkVisible to set hot=true")
	}
}

// TestApplyRetentionEvictsColdestBeforeWarm covers invariant 9: once over
// capacity, a warm (recently visible) document must survive a retention
// pass that a cold one does not.
func TestApplyRetentionEvictsColdestBeforeWarm(t *testing.T) {
	sched := scheduler.New()
	m := NewManager(sched)

	for i := DocID(0); i < maxTrackedDocs; i++ {
		m.Open(i, "go", 10)
	}
	const warm DocID = 0
	m.MarkVisible(warm)
	m.Open(maxTrackedDocs, "go", 10) // pushes the manager over capacity
	before := len(m.docs)

	m.ApplyRetention()

	m.mu.Lock()
	_, warmStillTracked := m.docs[warm]
	after := len(m.docs)
	m.mu.Unlock()

	if !warmStillTracked {
		t.Fatal("expected the warm document to survive the retention pass")
	}
	if after != before-1 {
		t.Fatalf("expected retention to evict exactly one cold document, had %d now %d", before, after)
	}
}

// TestApplyRetentionCoolsWarmDocsWhenAllAreWarm ensures retention always
// makes progress: if every tracked document is warm, the oldest one cools
// instead of the pass being a no-op forever.
func TestApplyRetentionCoolsWarmDocsWhenAllAreWarm(t *testing.T) {
	sched := scheduler.New()
	m := NewManager(sched)

	for i := DocID(0); i <= maxTrackedDocs; i++ {
		m.Open(i, "go", 10)
		m.MarkVisible(i)
	}

	before := len(m.docs)
	m.ApplyRetention()
	m.mu.Lock()
	after := len(m.docs)
	m.mu.Unlock()

	if after != before {
		t.Fatalf("expected cooling pass to leave doc count unchanged, got %d want %d", after, before)
	}

	m.mu.Lock()
	stillAllWarm := true
	for _, st := range m.docs {
		if !st.hot {
			stillAllWarm = false
		}
	}
	m.mu.Unlock()
	if stillAllWarm {
		t.Fatal("expected at least one document to cool when every tracked document was warm")
	}
}
