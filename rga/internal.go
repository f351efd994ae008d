package rga

// deleteRecord remembers one tombstoning event for historical reads: the
// run it covered and the Lamport time at which this replica applied it.
// spec.md's wire Delete block carries no delete-op identity of its own
// (§6.2 lists only target author/seq/length), so "was this visible at
// version v" is answered by comparing v.LamportTime against the applying
// replica's own clock at the moment it processed the tombstone rather than
// against a delete-op's own seq — see DESIGN.md for the full rationale.
type deleteRecord struct {
	length         uint64
	lamportAtApply uint64
}

// cursorCache tracks the last visible position touched by a local edit
// (spec.md §3.5/§9). Local edits set and invalidate it, but no lookup
// consults it: every position lookup goes through the B-tree, and there is
// no sequential-edit fast path.
type cursorCache struct {
	valid bool
	pos   uint64
}

func (c *cursorCache) invalidate() { c.valid = false }

func (c *cursorCache) invalidateIfAtOrAfter(pos uint64) {
	if c.valid && c.pos >= pos {
		c.valid = false
	}
}

func (c *cursorCache) set(pos uint64) {
	c.valid = true
	c.pos = pos
}

// locate returns the span currently containing ref and ref's offset within
// it, consulting the origin index.
func (d *Doc) locate(ref itemRef) (*span, uint64, bool) {
	sp, ok := d.originIndex[ref]
	if !ok {
		return nil, 0, false
	}
	return sp, ref.seq - sp.seqStart, true
}

// splitSpanAt splits the span at ordinal ord into two spans at local
// offset: the original object is truncated in place to become the left
// part (so anyone already holding a *span to it keeps pointing at the
// right data), and a new span for the right part is inserted immediately
// after it. Origin-index entries for the seqs that moved into the right
// part are repointed.
func (d *Doc) splitSpanAt(ord int, offset uint64) (*span, *span) {
	left := *d.spans.Get(ord)
	if offset == 0 || offset >= left.length {
		panic("rga: splitSpanAt offset out of range")
	}

	right := &span{
		author:        left.author,
		seqStart:      left.seqStart + offset,
		length:        left.length - offset,
		contentOffset: left.contentOffset + offset,
		leftOrigin:    itemRef{author: left.author, seq: left.seqStart + offset - 1},
		rightOrigin:   left.rightOrigin,
		deleted:       left.deleted,
	}

	left.length = offset
	d.spans.UpdateWeight(ord, left.visibleWeight())
	d.spans.Insert(ord+1, right, right.visibleWeight())

	for k := uint64(0); k < right.length; k++ {
		d.originIndex[itemRef{author: right.author, seq: right.seqStart + k}] = right
	}
	return left, right
}

// tryCoalesceLeft absorbs candidate into the span immediately before
// ordinal ord if spec.md §3.2's physical-coalescing predicate holds,
// repointing the origin index for candidate's seq range onto the grown
// span. candidate must not already be in the B-tree. Reports whether it
// coalesced.
func (d *Doc) tryCoalesceLeft(ord int, candidate *span) bool {
	if ord == 0 {
		return false
	}
	left := *d.spans.Get(ord - 1)
	if !canCoalesce(left, candidate) {
		return false
	}
	oldWeight := left.visibleWeight()
	left.length += candidate.length
	if newWeight := left.visibleWeight(); newWeight != oldWeight {
		d.spans.UpdateWeight(ord-1, newWeight)
	}
	for k := uint64(0); k < candidate.length; k++ {
		seq := candidate.seqStart + k
		d.originIndex[itemRef{author: candidate.author, seq: seq}] = left
	}
	return true
}

// ensureBoundary guarantees a span boundary exists exactly at seq within
// authorIdx's content (splitting the straddling span if needed) and
// returns the ordinal of the span beginning there. seq == the author's
// current content length is a valid "one past the end" boundary.
func (d *Doc) ensureBoundary(authorIdx AuthorIdx, seq uint64) int {
	contentLen := d.contentLen[authorIdx]
	if seq == contentLen {
		if seq == 0 {
			return d.spans.Len()
		}
		lastRef := itemRef{author: authorIdx, seq: seq - 1}
		sp := d.originIndex[lastRef]
		return d.spans.IndexOf(sp.handle) + 1
	}
	ref := itemRef{author: authorIdx, seq: seq}
	sp := d.originIndex[ref]
	offset := seq - sp.seqStart
	ord := d.spans.IndexOf(sp.handle)
	if offset == 0 {
		return ord
	}
	d.splitSpanAt(ord, offset)
	return ord + 1
}

// tombstoneSpan marks the span at ordinal ord deleted, propagates the
// weight change, records it for historical reads, and returns the Delete
// Op describing it. ok is false if the span was already deleted.
func (d *Doc) tombstoneSpan(ord int) (Op, bool) {
	s := *d.spans.Get(ord)
	if s.deleted {
		return Op{}, false
	}
	s.deleted = true
	d.spans.UpdateWeight(ord, 0)
	authorKey, _ := d.authors.key(s.author)
	d.deleteLog[itemRef{author: s.author, seq: s.seqStart}] = deleteRecord{
		length:         s.length,
		lamportAtApply: d.clock.Time(),
	}
	return Op{Kind: OpDelete, Author: authorKey, SeqStart: s.seqStart, Len: s.length}, true
}

// isDeletedAt reports whether the character at (authorIdx, seq) was
// already tombstoned as of Lamport time v.LamportTime.
func (d *Doc) isDeletedAt(authorIdx AuthorIdx, seq uint64, lamportTime uint64) bool {
	for ref, rec := range d.deleteLog {
		if ref.author != authorIdx || seq < ref.seq || seq >= ref.seq+rec.length {
			continue
		}
		if rec.lamportAtApply <= lamportTime {
			return true
		}
	}
	return false
}
