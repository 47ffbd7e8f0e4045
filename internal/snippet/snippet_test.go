package snippet

import "testing"

func TestParseBareTabstopsInOrder(t *testing.T) {
	s, err := Parse("for $1 in $2 { $0 }")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stops := s.Tabstops()
	if len(stops) != 3 {
		t.Fatalf("expected 3 tabstops, got %d", len(stops))
	}
	if stops[0].Index != 1 || stops[1].Index != 2 || stops[2].Index != 0 {
		t.Fatalf("expected order [1,2,0], got %+v", stops)
	}
}

func TestParsePlaceholderAndChoice(t *testing.T) {
	s, err := Parse("${1:name} := ${2|a,b,c|}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stops := s.Tabstops()
	if stops[0].Placeholder != "name" {
		t.Fatalf("expected placeholder %q, got %q", "name", stops[0].Placeholder)
	}
	if len(stops[1].Choices) != 3 || stops[1].Choices[0] != "a" {
		t.Fatalf("expected choices [a b c], got %+v", stops[1].Choices)
	}
}

func TestParseUnterminatedConstruct(t *testing.T) {
	_, err := Parse("${1:oops")
	if err != ErrUnterminated {
		t.Fatalf("expected ErrUnterminated, got %v", err)
	}
}

func TestRenderSubstitutesPlaceholdersAndLocatesTabstops(t *testing.T) {
	s, err := Parse("for ${1:i} := 0; $1 < ${2:n}; $1++ {\n\t$0\n}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	text, ranges := s.Render()
	want := "for i := 0; i < n; i++ {\n\t\n}"
	if text != want {
		t.Fatalf("Render text = %q want %q", text, want)
	}
	if len(ranges) != 3 {
		t.Fatalf("expected 3 tabstop ranges, got %+v", ranges)
	}
	if ranges[0].Index != 1 || text[ranges[0].Start:ranges[0].End] != "i" {
		t.Fatalf("tabstop 1 range wrong: %+v", ranges[0])
	}
	if ranges[1].Index != 2 || text[ranges[1].Start:ranges[1].End] != "n" {
		t.Fatalf("tabstop 2 range wrong: %+v", ranges[1])
	}
	if ranges[2].Index != 0 {
		t.Fatalf("expected final tabstop 0 last, got %+v", ranges[2])
	}
}

func TestRenderBareTabstopHasEmptyRange(t *testing.T) {
	s, err := Parse("x = $1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	text, ranges := s.Render()
	if text != "x = " {
		t.Fatalf("Render text = %q", text)
	}
	if len(ranges) != 1 || ranges[0].Start != ranges[0].End {
		t.Fatalf("expected empty bare tabstop range, got %+v", ranges)
	}
}
