package transaction

import (
	"fmt"
	"sort"

	"tome.dev/tome/internal/rope"
	"tome.dev/tome/internal/selection"
)

// Change describes one edit span: replace [Start,End) with Replacement.
type Change struct {
	Start       rope.CharIdx
	End         rope.CharIdx
	Replacement string
}

// Transaction is a ChangeSet plus an optional target Selection.
type Transaction struct {
	Changes   *ChangeSet
	Selection *selection.Selection
}

// New builds an identity transaction over a document slice.
func New(doc *rope.Rope) *Transaction {
	return &Transaction{Changes: NewChangeSet(rope.CharLen(doc.Len()))}
}

// Change builds a Transaction from an explicit, non-overlapping, ascending
// list of edits. Overlapping or descending ranges are a programming error
// (panic), per spec.md §4.1.
func Change(doc *rope.Rope, changes []Change) *Transaction {
	sorted := append([]Change(nil), changes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i, c := range sorted {
		if c.Start > c.End {
			panic(fmt.Sprintf("transaction: descending range [%d,%d)", c.Start, c.End))
		}
		if i > 0 && sorted[i-1].End > c.Start {
			panic(fmt.Sprintf("transaction: overlapping ranges [%d,%d) and [%d,%d)", sorted[i-1].Start, sorted[i-1].End, c.Start, c.End))
		}
	}
	cs := NewChangeSet(rope.CharLen(doc.Len()))
	var pos rope.CharIdx
	for _, c := range sorted {
		if c.Start > pos {
			cs.Append(Retain(rope.CharLen(c.Start - pos)))
		}
		if c.End > c.Start {
			cs.Append(Delete(rope.CharLen(c.End - c.Start)))
		}
		if c.Replacement != "" {
			cs.Append(Insert(c.Replacement))
		}
		pos = c.End
	}
	if docLen := rope.CharIdx(doc.Len()); pos < docLen {
		cs.Append(Retain(rope.CharLen(docLen - pos)))
	}
	return &Transaction{Changes: cs}
}

// InsertAt builds a Transaction inserting text at every range in sel,
// replacing each range's selected span.
func InsertAt(doc *rope.Rope, sel *selection.Selection, text string) *Transaction {
	changes := make([]Change, 0, sel.Len())
	for _, r := range sel.Ranges() {
		if r.Empty() {
			changes = append(changes, Change{Start: r.From(), End: r.From(), Replacement: text})
		} else {
			changes = append(changes, Change{Start: r.From(), End: r.To(), Replacement: text})
		}
	}
	tx := Change(doc, changes)
	tx.Selection = tx.MapSelection(sel)
	return tx
}

// DeleteAt builds a Transaction deleting every selected range in sel.
func DeleteAt(doc *rope.Rope, sel *selection.Selection) *Transaction {
	changes := make([]Change, 0, sel.Len())
	for _, r := range sel.Ranges() {
		changes = append(changes, Change{Start: r.From(), End: r.To()})
	}
	tx := Change(doc, changes)
	tx.Selection = tx.MapSelection(sel)
	return tx
}

// Apply applies the transaction's changes to a rope, returning the new rope
// and the mapped selection (if any).
func (t *Transaction) Apply(doc *rope.Rope) (*rope.Rope, *selection.Selection, error) {
	newRope, err := t.Changes.Apply(doc)
	if err != nil {
		return nil, nil, err
	}
	return newRope, t.Selection, nil
}

// Invert returns the inverse Transaction against the pre-image rope.
func (t *Transaction) Invert(pre *rope.Rope) *Transaction {
	return &Transaction{Changes: t.Changes.Invert(pre)}
}

// Compose returns t then other composed into a single Transaction. The
// resulting Selection, if any, is other's (the later transaction wins).
func (t *Transaction) Compose(other *Transaction) (*Transaction, error) {
	cs, err := t.Changes.Compose(other.Changes)
	if err != nil {
		return nil, err
	}
	sel := other.Selection
	if sel == nil {
		sel = t.Selection
	}
	return &Transaction{Changes: cs, Selection: sel}, nil
}

// IsIdentity reports whether the transaction makes no change.
func (t *Transaction) IsIdentity() bool { return t.Changes.IsIdentity() }

// Operations exposes the underlying operation list.
func (t *Transaction) Operations() []Operation { return t.Changes.Operations() }

// MapSelection maps sel's boundaries through t's changes, using BiasRight for
// `from` and BiasLeft for `to`, preserving direction, then rebuilds a
// 1-cell-minimum range per boundary. If the mapped [from,to) collapses, it
// yields a 1-cell point range at the mapped from.
func (t *Transaction) MapSelection(sel *selection.Selection) *selection.Selection {
	ranges := make([]selection.Range, sel.Len())
	for i, r := range sel.Ranges() {
		from := t.Changes.MapPos(r.From(), BiasRight)
		to := t.Changes.MapPos(r.To(), BiasLeft)
		if to <= from {
			to = from + 1
		}
		if r.Direction() == selection.Backward {
			ranges[i] = selection.Range{Anchor: to - 1, Head: from}
		} else {
			ranges[i] = selection.Range{Anchor: from, Head: to - 1}
		}
	}
	out, err := selection.NewMulti(ranges, sel.PrimaryIndex())
	if err != nil {
		// Mapping can legitimately make previously-distinct ranges collide
		// (e.g. multi-cursor insert at adjacent positions); merge overlaps
		// before giving up, matching spec.md §3's "caller merges overlaps".
		return mergeOverlaps(ranges, sel.PrimaryIndex())
	}
	return out
}

func mergeOverlaps(ranges []selection.Range, primary int) *selection.Selection {
	if len(ranges) == 0 {
		return selection.New(selection.Point(0))
	}
	primaryRange := ranges[primary]
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].From() < ranges[j].From() })
	merged := []selection.Range{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Overlaps(*last) {
			*last = last.Merge(r)
		} else {
			merged = append(merged, r)
		}
	}
	newPrimary := 0
	for i, r := range merged {
		if r.From() <= primaryRange.From() && primaryRange.To() <= r.To() {
			newPrimary = i
		}
	}
	out, _ := selection.NewMulti(merged, newPrimary)
	return out
}
