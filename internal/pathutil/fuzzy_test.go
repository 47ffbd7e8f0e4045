package pathutil

import "testing"

func TestFuzzyMatchRequiresSubsequence(t *testing.T) {
	if _, ok := FuzzyMatch("xyz", "main.go"); ok {
		t.Fatal("expected no match for unrelated pattern")
	}
	m, ok := FuzzyMatch("mg", "main.go")
	if !ok {
		t.Fatal("expected subsequence match")
	}
	if len(m.Positions) != 2 {
		t.Fatalf("expected 2 matched positions, got %v", m.Positions)
	}
}

func TestFuzzyFilterRanksSegmentBoundaryHigher(t *testing.T) {
	matches := FuzzyFilter("sched", []string{"internal/scheduler/scheduler.go", "internal/misc/unrelated_scheduled.go"}, 0)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Candidate != "internal/scheduler/scheduler.go" {
		t.Fatalf("expected segment-boundary match to rank first, got %q", matches[0].Candidate)
	}
}

func TestGitignoreMatcherAnchoredVsGlob(t *testing.T) {
	m := &GitignoreMatcher{}
	for _, line := range []string{"/build", "*.log", "!important.log"} {
		if p := compileGitignoreLine(line); p != nil {
			m.patterns = append(m.patterns, p)
		}
	}
	if !m.Matches("build", true) {
		t.Fatal("expected /build to match root-level build dir")
	}
	if m.Matches("sub/build", true) {
		t.Fatal("anchored pattern must not match nested dir")
	}
	if !m.Matches("debug.log", false) {
		t.Fatal("expected *.log glob to match")
	}
	if m.Matches("important.log", false) {
		t.Fatal("expected negation to un-ignore important.log")
	}
}
