// Package ordering computes the renumbering plans that keep a dense,
// contiguous 1-based integer sequence intact across insertion, deletion and
// relocation of a contiguous block of elements.
//
// It is pure arithmetic: callers read the current numbering into memory,
// derive a Plan here, then apply the shifts and the block assignment to the
// store in that order.
package ordering

import "math"

// Position is the relative placement of a block against its target.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
)

func (p Position) Valid() bool {
	return p == Before || p == After
}

// NoBound marks an open-ended shift range.
const NoBound = math.MaxInt

// Shift is a half-open range [From, To) of sequence numbers that must each
// move by By to make room for (or close the gap left by) a block.
type Shift struct {
	From int
	To   int
	By   int
}

// Plan is the outcome of a renumbering computation: the new number of the
// block's first element, plus the range shifts that must be applied first.
type Plan struct {
	Start  int
	Shifts []Shift
}

// ResolveInsert turns a target number and a relative position into the
// insertion point: the number the block's first element lands on.
func ResolveInsert(target int, pos Position) int {
	if pos == After {
		return target + 1
	}
	return target
}

// Insert plans making room for a new block of blockLen elements at the given
// insertion point. Every existing number >= at shifts up by blockLen.
func Insert(at, blockLen int) Plan {
	return Plan{
		Start:  at,
		Shifts: []Shift{{From: at, To: NoBound, By: blockLen}},
	}
}

// Append plans adding a block past the current extent. No shift is needed.
func Append(last, blockLen int) Plan {
	return Plan{Start: last + 1}
}

// Move plans relocating the block starting at srcStart (blockLen elements)
// so that its first element lands on the pre-shift insertion point at.
// The second return is false when the move resolves to the block's current
// position: callers must treat that as a successful no-op.
func Move(srcStart, blockLen, at int) (Plan, bool) {
	srcEnd := srcStart + blockLen // one past the block

	// Inserting anywhere from the block's own start to just past its end
	// leaves the sequence as it is.
	if at >= srcStart && at <= srcEnd {
		return Plan{Start: srcStart}, false
	}

	if at < srcStart {
		// Moving up: the displaced range slides down the sequence.
		return Plan{
			Start:  at,
			Shifts: []Shift{{From: at, To: srcStart, By: blockLen}},
		}, true
	}

	// Moving down: everything between the block and the insertion point
	// slides up, and the block lands just before the insertion point.
	return Plan{
		Start:  at - blockLen,
		Shifts: []Shift{{From: srcEnd, To: at, By: -blockLen}},
	}, true
}

// Remove plans closing the gap left by deleting the block starting at
// srcStart. Every number past the block shifts down by blockLen.
func Remove(srcStart, blockLen int) Plan {
	return Plan{
		Start:  srcStart,
		Shifts: []Shift{{From: srcStart + blockLen, To: NoBound, By: -blockLen}},
	}
}
