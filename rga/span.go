package rga

import "github.com/cshekharsharma/collabrga/btree"

// span is a maximal contiguous run of characters from one author: same
// author, consecutive seqs, consecutive content-buffer offsets, uniform
// tombstone state. Spans are the items the weighted B-tree orders; a
// span's visible weight is its length when live and zero when deleted.
type span struct {
	author        AuthorIdx
	seqStart      uint64
	length        uint64
	contentOffset uint64
	leftOrigin    itemRef
	rightOrigin   itemRef
	deleted       bool

	// handle is kept in sync by the B-tree's onMove callback (see
	// Doc.spans construction) so the origin index's (span, offset)
	// entries can still answer "where does this span sit today" in
	// O(log n) without a document-wide search.
	handle btree.Handle
}

func (s *span) visibleWeight() uint64 {
	if s.deleted {
		return 0
	}
	return s.length
}

func (s *span) firstItem() itemRef {
	return itemRef{author: s.author, seq: s.seqStart}
}

func (s *span) lastItem() itemRef {
	return itemRef{author: s.author, seq: s.seqStart + s.length - 1}
}

func (s *span) containsSeq(seq uint64) bool {
	return seq >= s.seqStart && seq < s.seqStart+s.length
}

// canCoalesce implements the physical-coalescing predicate of spec.md §3.2:
// same author, seq-contiguous, content-contiguous, equal tombstone state.
// Origins are deliberately not compared — coalescing is purely physical.
func canCoalesce(prev, next *span) bool {
	return prev.author == next.author &&
		next.seqStart == prev.seqStart+prev.length &&
		next.contentOffset == prev.contentOffset+prev.length &&
		prev.deleted == next.deleted
}
