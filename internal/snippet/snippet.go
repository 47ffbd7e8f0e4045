// Package snippet implements component Q: a tabstop/choice snippet parser
// and renderer. Render turns a parsed body into plain text plus the range
// of each tabstop's first occurrence. The package builds no
// transaction.Transaction or selection.Selection; its caller inserts the
// text and places a single cursor (internal/runtime uses the first
// tabstop), so no multi-cursor placement over tabstops or mirrors is done.
// Transforms are parsed but not applied. There is no teacher analogue for a
// snippet engine.
package snippet

import "fmt"

// segmentKind distinguishes a literal text run from a tabstop reference
// within a parsed snippet body.
type segmentKind int

const (
	segLiteral segmentKind = iota
	segTabstop
)

type segment struct {
	kind  segmentKind
	text  string // literal text, when kind == segLiteral
	index int    // tabstop index, when kind == segTabstop; look up s.primary[index] for its definition
}

// Transform holds a parsed `${n/regexp/format/flags}` clause (LSP snippet
// syntax). Render does not apply it: every occurrence of tabstop n, mirrors
// included, renders the primary tabstop's text unchanged.
type Transform struct {
	Regexp string
	Format string
	Global bool
}

// Tabstop is one `$n`/`${n:placeholder}`/`${n|choice,...|}` reference.
// Index 0 is the final cursor position (LSP convention). The first
// occurrence of an index is its primary definition (a placeholder or
// choices are optional); later bare occurrences are mirrors.
type Tabstop struct {
	Index       int
	Placeholder string
	Choices     []string
	Transform   *Transform
}

// Snippet is a parsed snippet body: an ordered list of segments
// (literal text interleaved with tabstop references) plus the set of
// distinct tabstop indices seen, in the order their primary occurrence
// appears.
type Snippet struct {
	segments []segment
	order    []int // tabstop indices in first-occurrence order
	primary  map[int]Tabstop
}

// Tabstops returns the snippet's distinct tabstop definitions, in
// first-occurrence order (index 0, the final position, always sorts
// last per LSP convention, even if it was written first in the body).
func (s *Snippet) Tabstops() []Tabstop {
	out := make([]Tabstop, 0, len(s.order))
	var final *Tabstop
	for _, idx := range s.order {
		ts := s.primary[idx]
		if idx == 0 {
			final = &ts
			continue
		}
		out = append(out, ts)
	}
	if final != nil {
		out = append(out, *final)
	}
	return out
}

// ErrUnterminated is returned by Parse when a `${` construct is never
// closed.
var ErrUnterminated = fmt.Errorf("snippet: unterminated ${...} construct")

// TabstopRange locates one tabstop's substituted text within Render's
// output, in rune offsets, ordered the same as Tabstops (index 0 last).
type TabstopRange struct {
	Index      int
	Start, End int
}

// Render flattens the snippet into plain text, substituting each tabstop's
// placeholder (or its first choice, if it has no placeholder) inline, and
// returns where each tabstop's first substituted text landed (mirror
// occurrences are not reported).
func (s *Snippet) Render() (string, []TabstopRange) {
	var out []rune
	firstRange := map[int]TabstopRange{}
	for _, seg := range s.segments {
		switch seg.kind {
		case segLiteral:
			out = append(out, []rune(seg.text)...)
		case segTabstop:
			def := s.primary[seg.index]
			text := def.Placeholder
			if text == "" && len(def.Choices) > 0 {
				text = def.Choices[0]
			}
			start := len(out)
			out = append(out, []rune(text)...)
			if _, seen := firstRange[seg.index]; !seen {
				firstRange[seg.index] = TabstopRange{Index: seg.index, Start: start, End: start + len([]rune(text))}
			}
		}
	}
	ordered := make([]TabstopRange, 0, len(s.order))
	var final *TabstopRange
	for _, idx := range s.order {
		tr := firstRange[idx]
		if idx == 0 {
			final = &tr
			continue
		}
		ordered = append(ordered, tr)
	}
	if final != nil {
		ordered = append(ordered, *final)
	}
	return string(out), ordered
}
