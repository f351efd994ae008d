package rga

import (
	"github.com/cshekharsharma/collabrga/crypto"
)

// applyResult distinguishes the three outcomes ApplyOp's dependency-gated
// algorithm (spec.md §4.2.4) can reach, so the pending-op retry loop can
// tell "try again later" apart from "already seen, drop it".
type applyResult int

const (
	resultApplied applyResult = iota
	resultDuplicate
	resultBuffered
)

// ApplyOp absorbs a remote operation. It buffers ops whose dependencies
// (origins, or an author's earlier content) haven't arrived yet and
// retries every buffered op after each successful apply, so operations
// delivered in any order — not just Lamport order — still converge.
func (d *Doc) ApplyOp(op Op) (bool, error) {
	res, err := d.apply(op)
	if err != nil {
		return false, err
	}
	switch res {
	case resultApplied:
		d.retryPending()
		return true, nil
	case resultBuffered:
		d.pending = append(d.pending, op)
		return false, nil
	default:
		return false, nil
	}
}

func (d *Doc) apply(op Op) (applyResult, error) {
	switch op.Kind {
	case OpInsert:
		return d.applyInsertOp(op)
	case OpDelete:
		return d.applyDeleteOp(op)
	default:
		return resultDuplicate, ErrMalformedOp
	}
}

func (d *Doc) retryPending() {
	for {
		progressed := false
		var stillPending []Op
		for _, op := range d.pending {
			res, err := d.apply(op)
			if err != nil {
				continue
			}
			switch res {
			case resultApplied:
				progressed = true
			case resultBuffered:
				stillPending = append(stillPending, op)
			}
		}
		d.pending = stillPending
		if !progressed {
			return
		}
	}
}

func (d *Doc) applyInsertOp(op Op) (applyResult, error) {
	if op.Len == 0 || uint64(len(op.Content)) != op.Len {
		return resultDuplicate, ErrMalformedOp
	}
	authorIdx, err := d.authors.getOrInsert(op.Author)
	if err != nil {
		return resultDuplicate, err
	}

	var leftRef, rightRef itemRef
	if op.HasLeft {
		lIdx, ok := d.authors.idx(op.LeftOrigin.Author)
		if !ok {
			return resultBuffered, nil
		}
		leftRef = itemRef{author: lIdx, seq: op.LeftOrigin.Seq}
		if _, ok := d.originIndex[leftRef]; !ok {
			return resultBuffered, nil
		}
	} else {
		leftRef = noneRef
	}
	if op.HasRight {
		rIdx, ok := d.authors.idx(op.RightOrigin.Author)
		if !ok {
			return resultBuffered, nil
		}
		rightRef = itemRef{author: rIdx, seq: op.RightOrigin.Seq}
		if _, ok := d.originIndex[rightRef]; !ok {
			return resultBuffered, nil
		}
	} else {
		rightRef = noneRef
	}

	current := d.contentLen[authorIdx]
	if op.SeqStart > current {
		return resultBuffered, nil
	}
	if op.SeqStart < current {
		return resultDuplicate, nil
	}

	insertOrd := d.findInsertionOrdinal(leftRef, op.HasLeft, rightRef, op.HasRight, authorIdx)

	d.content[authorIdx] = append(d.content[authorIdx], op.Content...)
	d.contentLen[authorIdx] = current + op.Len

	newSpan := &span{
		author:        authorIdx,
		seqStart:      op.SeqStart,
		length:        op.Len,
		contentOffset: op.SeqStart,
		leftOrigin:    leftRef,
		rightOrigin:   rightRef,
		deleted:       false,
	}

	if !d.tryCoalesceLeft(insertOrd, newSpan) {
		d.spans.Insert(insertOrd, newSpan, newSpan.visibleWeight())
		for k := uint64(0); k < newSpan.length; k++ {
			d.originIndex[itemRef{author: authorIdx, seq: op.SeqStart + k}] = newSpan
		}
	}

	d.clock.observe(op.SeqStart + op.Len - 1)
	d.cursor.invalidate()
	return resultApplied, nil
}

func (d *Doc) applyDeleteOp(op Op) (applyResult, error) {
	if op.Len == 0 {
		return resultDuplicate, ErrMalformedOp
	}
	authorIdx, ok := d.authors.idx(op.Author)
	if !ok {
		return resultBuffered, nil
	}
	end := op.SeqStart + op.Len
	if end > d.contentLen[authorIdx] {
		return resultBuffered, nil
	}

	d.clock.observe(end - 1)

	applied := false
	for seq := op.SeqStart; seq < end; {
		ord := d.ensureBoundary(authorIdx, seq)
		s := *d.spans.Get(ord)
		if s.seqStart+s.length > end {
			d.splitSpanAt(ord, end-s.seqStart)
		}
		if _, ok := d.tombstoneSpan(ord); ok {
			applied = true
		}
		seq = s.seqStart + s.length
	}
	if !applied {
		return resultDuplicate, nil
	}
	d.cursor.invalidate()
	return resultApplied, nil
}

// findInsertionOrdinal runs the YATA-style dual-origin conflict-window scan
// of spec.md §4.2.4 step 4: starting just after left's containing span
// (splitting it if left isn't already its last character), walk forward
// skipping spans whose own left origin sorts strictly before `left`, or
// ties with it and carries a smaller author id, stopping at the first span
// that doesn't. The scan never looks past right's own span: everything at
// or beyond it sits outside the conflict window by construction.
func (d *Doc) findInsertionOrdinal(left itemRef, hasLeft bool, right itemRef, hasRight bool, newAuthor AuthorIdx) int {
	startOrd := 0
	if hasLeft {
		sp, offset, _ := d.locate(left)
		ord := d.spans.IndexOf(sp.handle)
		if offset+1 < sp.length {
			d.splitSpanAt(ord, offset+1)
		}
		startOrd = ord + 1
	}

	endOrd := d.spans.Len()
	if hasRight {
		sp, offset, _ := d.locate(right)
		ord := d.spans.IndexOf(sp.handle)
		if offset > 0 {
			d.splitSpanAt(ord, offset)
			ord++
		}
		endOrd = ord
	}

	leftOrd, leftOff := d.rankAsLeft(left, hasLeft)
	newAuthorKey, _ := d.authors.key(newAuthor)

	j := startOrd
	for j < endOrd {
		e := *d.spans.Get(j)
		eOrd, eOff := d.rankAsLeft(e.leftOrigin, !e.leftOrigin.isNone())

		if lessRank(eOrd, eOff, leftOrd, leftOff) {
			j++
			continue
		}
		if lessRank(leftOrd, leftOff, eOrd, eOff) {
			break
		}
		eAuthorKey, _ := d.authors.key(e.author)
		if crypto.Less(eAuthorKey, newAuthorKey) {
			j++
			continue
		}
		break
	}
	return j
}

// rankAsLeft gives an itemRef a total-order rank (span ordinal, offset) for
// the scan above, treating the virtual START boundary as sorting before
// every concrete position.
func (d *Doc) rankAsLeft(ref itemRef, has bool) (int, uint64) {
	if !has {
		return -1, 0
	}
	sp, off, _ := d.locate(ref)
	return d.spans.IndexOf(sp.handle), off
}

func lessRank(aOrd int, aOff uint64, bOrd int, bOff uint64) bool {
	if aOrd != bOrd {
		return aOrd < bOrd
	}
	return aOff < bOff
}
