// Package transaction implements ChangeSet/Operation/Transaction position
// mapping, grounded on the edit-span composition model of
// github.com/hexops/gotextdiff adapted to rune (CharIdx) offsets instead of
// byte offsets.
package transaction

import (
	"fmt"

	"tome.dev/tome/internal/rope"
)

// Bias selects which side of an insertion seam a mapped position sticks to.
type Bias int

const (
	// BiasLeft sticks to the position before an insertion at the same offset.
	BiasLeft Bias = iota
	// BiasRight sticks to the position after an insertion at the same offset.
	BiasRight
)

// OpKind discriminates an Operation variant.
type OpKind int

const (
	OpRetain OpKind = iota
	OpDelete
	OpInsert
)

// Operation is one Retain(n) / Delete(n) / Insert(text) step of a ChangeSet.
type Operation struct {
	Kind OpKind
	N    rope.CharLen // for Retain/Delete
	Text string       // for Insert
}

func Retain(n rope.CharLen) Operation { return Operation{Kind: OpRetain, N: n} }
func Delete(n rope.CharLen) Operation { return Operation{Kind: OpDelete, N: n} }
func Insert(text string) Operation    { return Operation{Kind: OpInsert, Text: text} }

// ChangeSet is a sequence of Retain/Delete/Insert operations spanning the
// entire old document length.
type ChangeSet struct {
	ops       []Operation
	lenBefore rope.CharLen
	lenAfter  rope.CharLen
}

// NewChangeSet builds an empty (identity) ChangeSet over a document of the
// given length.
func NewChangeSet(lenBefore rope.CharLen) *ChangeSet {
	return &ChangeSet{lenBefore: lenBefore, lenAfter: lenBefore}
}

// Append adds an operation, maintaining lenAfter and merging adjacent
// same-kind operations so ops() stays minimal (required for map_pos
// correctness at seams).
func (c *ChangeSet) Append(op Operation) {
	switch op.Kind {
	case OpRetain, OpDelete:
		if op.N == 0 {
			return
		}
	case OpInsert:
		if op.Text == "" {
			return
		}
	}
	if len(c.ops) == 0 {
		// lenAfter is rebuilt from the operations once the first one lands.
		c.lenAfter = 0
	}
	if len(c.ops) > 0 {
		last := &c.ops[len(c.ops)-1]
		if last.Kind == op.Kind {
			switch op.Kind {
			case OpRetain, OpDelete:
				last.N += op.N
				c.bumpLenAfter(op)
				return
			case OpInsert:
				last.Text += op.Text
				c.bumpLenAfter(op)
				return
			}
		}
	}
	c.ops = append(c.ops, op)
	c.bumpLenAfter(op)
}

func (c *ChangeSet) bumpLenAfter(op Operation) {
	switch op.Kind {
	case OpRetain:
		c.lenAfter += rope.CharLen(op.N)
	case OpDelete:
		// consumes from lenBefore, doesn't add to lenAfter
	case OpInsert:
		c.lenAfter += rope.CharLen(len([]rune(op.Text)))
	}
}

// LenBefore / LenAfter report the invariant lengths.
func (c *ChangeSet) LenBefore() rope.CharLen { return c.lenBefore }
func (c *ChangeSet) LenAfter() rope.CharLen  { return c.lenAfter }

// Operations returns the operation list.
func (c *ChangeSet) Operations() []Operation { return c.ops }

// IsIdentity reports whether the ChangeSet makes no change (pure Retain(s)
// spanning the whole document, or empty).
func (c *ChangeSet) IsIdentity() bool {
	for _, op := range c.ops {
		if op.Kind != OpRetain {
			return false
		}
	}
	return true
}

// Apply applies the ChangeSet to a rope, returning the new rope. The
// receiving rope must have length lenBefore.
func (c *ChangeSet) Apply(r *rope.Rope) (*rope.Rope, error) {
	if rope.CharLen(r.Len()) != c.lenBefore {
		return nil, fmt.Errorf("transaction: rope length %d does not match changeset lenBefore %d", r.Len(), c.lenBefore)
	}
	var out []rune
	var pos rope.CharIdx
	for _, op := range c.ops {
		switch op.Kind {
		case OpRetain:
			out = append(out, r.SliceRunes(pos, pos+rope.CharIdx(op.N))...)
			pos += rope.CharIdx(op.N)
		case OpDelete:
			pos += rope.CharIdx(op.N)
		case OpInsert:
			out = append(out, []rune(op.Text)...)
		}
	}
	return rope.NewFromRunes(out), nil
}

// MapPos maps an old char offset p through the changeset, with bias at
// insertion seams. The result is monotonic non-decreasing in p and always
// within [0, lenAfter].
func (c *ChangeSet) MapPos(p rope.CharIdx, bias Bias) rope.CharIdx {
	var oldPos, newPos rope.CharIdx
	for _, op := range c.ops {
		switch op.Kind {
		case OpRetain:
			n := rope.CharIdx(op.N)
			if p < oldPos+n || (p == oldPos+n && bias == BiasLeft) {
				if p >= oldPos {
					return newPos + (p - oldPos)
				}
				return newPos
			}
			oldPos += n
			newPos += n
		case OpDelete:
			n := rope.CharIdx(op.N)
			if p < oldPos+n {
				// Position was deleted; both biases map to newPos, the
				// seam the deleted span collapsed to.
				if bias == BiasRight {
					// same result as BiasLeft
				}
				return newPos
			}
			oldPos += n
		case OpInsert:
			n := rope.CharIdx(len([]rune(op.Text)))
			if p == oldPos {
				if bias == BiasLeft {
					return newPos
				}
				return newPos + n
			}
			newPos += n
		}
	}
	if p >= oldPos {
		return newPos + (p - oldPos)
	}
	return newPos
}

// Invert produces the inverse ChangeSet against the pre-image rope (the rope
// this ChangeSet was built against, i.e. of length lenBefore).
func (c *ChangeSet) Invert(pre *rope.Rope) *ChangeSet {
	inv := NewChangeSet(c.lenAfter)
	var pos rope.CharIdx
	for _, op := range c.ops {
		switch op.Kind {
		case OpRetain:
			inv.Append(Retain(op.N))
			pos += rope.CharIdx(op.N)
		case OpDelete:
			deleted := pre.Slice(pos, pos+rope.CharIdx(op.N))
			inv.Append(Insert(deleted))
			pos += rope.CharIdx(op.N)
		case OpInsert:
			inv.Append(Delete(rope.CharLen(len([]rune(op.Text)))))
		}
	}
	return inv
}

// Compose returns a ChangeSet equivalent to applying c then other, such that
// compose(a,b).Apply = b.Apply . a.Apply. other must have LenBefore ==
// c.LenAfter.
func (c *ChangeSet) Compose(other *ChangeSet) (*ChangeSet, error) {
	if c.lenAfter != other.lenBefore {
		return nil, fmt.Errorf("transaction: cannot compose changesets: lenAfter=%d != other.lenBefore=%d", c.lenAfter, other.lenBefore)
	}
	out := NewChangeSet(c.lenBefore)

	// Expand both op lists into per-rune "events" over the *new* (post-c)
	// offset space, then fold them into a single pass. For simplicity and
	// correctness (these are not large documents per edit cycle) we realize
	// c's insert text and walk both iterators in lockstep over the
	// intermediate offset space.
	type seg struct {
		kind OpKind
		n    rope.CharLen
		text string
	}
	var mid []seg
	for _, op := range c.ops {
		switch op.Kind {
		case OpRetain:
			mid = append(mid, seg{OpRetain, op.N, ""})
		case OpInsert:
			mid = append(mid, seg{OpInsert, rope.CharLen(len([]rune(op.Text))), op.Text})
		}
	}

	oi := 0     // index into other.ops
	oOff := 0   // rune offset consumed within other.ops[oi] (for Retain/Delete)
	midIdx := 0 // index into mid
	midOff := 0 // rune offset consumed within mid[midIdx]

	advanceOther := func() *Operation {
		for oi < len(other.ops) {
			op := &other.ops[oi]
			if op.Kind == OpInsert {
				return op
			}
			if oOff < int(op.N) {
				return op
			}
			oi++
			oOff = 0
		}
		return nil
	}

	for {
		op := advanceOther()
		if op == nil {
			break
		}
		if op.Kind == OpInsert {
			out.Append(Insert(op.Text))
			oi++
			continue
		}
		// Retain or Delete in `other`, consuming from `mid`.
		remaining := int(op.N) - oOff
		for remaining > 0 {
			if midIdx >= len(mid) {
				break
			}
			m := mid[midIdx]
			avail := int(m.n) - midOff
			take := avail
			if take > remaining {
				take = remaining
			}
			switch m.kind {
			case OpRetain:
				if op.Kind == OpRetain {
					out.Append(Retain(rope.CharLen(take)))
				} else {
					out.Append(Delete(rope.CharLen(take)))
				}
			case OpInsert:
				if op.Kind == OpRetain {
					out.Append(Insert(string([]rune(m.text)[midOff : midOff+take])))
				}
				// op.Kind == OpDelete: an insert from c deleted by other
				// vanishes entirely (no-op), matching compose semantics.
			}
			midOff += take
			remaining -= take
			if midOff == int(m.n) {
				midIdx++
				midOff = 0
			}
		}
		oOff += int(op.N) - remaining
		if oOff >= int(op.N) {
			oi++
			oOff = 0
		}
	}
	// Flush any trailing inserts left in `mid` beyond what `other` consumed
	// (can happen if other ends with fewer retains than mid covers due to
	// trailing inserts at doc end).
	for midIdx < len(mid) {
		m := mid[midIdx]
		if m.kind == OpInsert {
			out.Append(Insert(string([]rune(m.text)[midOff:])))
		}
		midIdx++
		midOff = 0
	}
	return out, nil
}
