// Package rga implements the replicated growable array sequence CRDT: a
// YATA-style dual-origin insert rule over spans kept in a weighted B-tree,
// giving O(log n) position lookups and convergent concurrent edits without
// a central coordinator.
package rga

import (
	"fmt"
	"math"

	"github.com/cshekharsharma/collabrga/btree"
	"github.com/cshekharsharma/collabrga/crypto"
)

// Config tunes the underlying B-tree. Zero values take spec.md's
// recommended defaults.
type Config struct {
	LeafSize int
	FanOut   int
}

func (c Config) withDefaults() Config {
	if c.LeafSize <= 0 {
		c.LeafSize = btree.DefaultLeafSize
	}
	if c.FanOut <= 0 {
		c.FanOut = btree.DefaultFanOut
	}
	return c
}

// Doc is a single replica's view of a collaboratively edited sequence of
// bytes. It is not safe for concurrent use by multiple goroutines; callers
// needing that guard it themselves (the root collabrga.Document does, with
// a sync.RWMutex).
type Doc struct {
	authors *authorTable
	clock   lamportClock

	spans       *btree.List[*span]
	originIndex map[itemRef]*span

	content    map[AuthorIdx][]byte
	contentLen map[AuthorIdx]uint64

	deleteLog map[itemRef]deleteRecord
	pending   []Op

	cursor cursorCache
}

// NewDoc creates an empty document.
func NewDoc(cfg Config) *Doc {
	cfg = cfg.withDefaults()
	d := &Doc{
		authors:     newAuthorTable(),
		originIndex: make(map[itemRef]*span),
		content:     make(map[AuthorIdx][]byte),
		contentLen:  make(map[AuthorIdx]uint64),
		deleteLog:   make(map[itemRef]deleteRecord),
	}
	d.spans = btree.NewWithLocator[*span](cfg.LeafSize, cfg.FanOut, func(v **span, h btree.Handle) {
		(*v).handle = h
	})
	return d
}

// Len returns the number of currently visible (non-tombstoned) characters.
func (d *Doc) Len() uint64 { return d.spans.TotalWeight() }

// ToString returns the document's current visible content.
func (d *Doc) ToString() []byte { return d.Slice(0, d.Len()) }

// Slice returns the visible content in [start, end), clamped to the
// document's current length.
func (d *Doc) Slice(start, end uint64) []byte {
	total := d.Len()
	if end > total {
		end = total
	}
	if start >= end {
		return nil
	}
	out := make([]byte, 0, end-start)
	pos := uint64(0)
	d.spans.Iterate(func(_ int, spp **span) bool {
		s := *spp
		w := s.visibleWeight()
		if w == 0 {
			return true
		}
		spanStart := pos
		spanEnd := pos + w
		pos = spanEnd
		if spanEnd <= start || spanStart >= end {
			return spanStart < end
		}
		lo := uint64(0)
		if start > spanStart {
			lo = start - spanStart
		}
		hi := w
		if end < spanEnd {
			hi = end - spanStart
		}
		buf := d.content[s.author]
		out = append(out, buf[s.contentOffset+lo:s.contentOffset+hi]...)
		return spanEnd < end
	})
	return out
}

// Insert produces author's len(content) new characters at visible
// position pos, computes their dual origins, splits an existing span if
// pos falls inside one, coalesces into the preceding span where spec.md
// §3.2 permits, and returns the Insert Op for the caller to log. Panics if
// pos is out of range, matching the B-tree's own bounds-checking style.
func (d *Doc) Insert(author crypto.AuthorID, pos uint64, content []byte) (Op, error) {
	total := d.spans.TotalWeight()
	if pos > total {
		panic(fmt.Sprintf("rga: Insert pos %d out of range [0, %d]", pos, total))
	}
	if len(content) == 0 {
		return Op{}, nil
	}
	authorIdx, err := d.authors.getOrInsert(author)
	if err != nil {
		return Op{}, err
	}
	seqStart := d.contentLen[authorIdx]

	var left itemRef
	hasLeft := false
	var insertOrd int

	if pos == total {
		insertOrd = d.spans.Len()
		for idx := d.spans.Len() - 1; idx >= 0; idx-- {
			s := *d.spans.Get(idx)
			if !s.deleted {
				left = s.lastItem()
				hasLeft = true
				break
			}
		}
	} else {
		j, residual, ok := d.spans.FindByWeight(pos)
		if !ok {
			panic("rga: inconsistent document state")
		}
		if residual == 0 {
			insertOrd = j
			for idx := j - 1; idx >= 0; idx-- {
				s := *d.spans.Get(idx)
				if !s.deleted {
					left = s.lastItem()
					hasLeft = true
					break
				}
			}
		} else {
			l, _ := d.splitSpanAt(j, residual)
			left = l.lastItem()
			hasLeft = true
			insertOrd = j + 1
		}
	}

	d.content[authorIdx] = append(d.content[authorIdx], content...)
	d.contentLen[authorIdx] = seqStart + uint64(len(content))

	newSpan := &span{
		author:        authorIdx,
		seqStart:      seqStart,
		length:        uint64(len(content)),
		contentOffset: seqStart,
		deleted:       false,
	}
	if hasLeft {
		newSpan.leftOrigin = left
	} else {
		newSpan.leftOrigin = noneRef
	}
	if pos == total || insertOrd >= d.spans.Len() {
		newSpan.rightOrigin = noneRef
	} else {
		rs := *d.spans.Get(insertOrd)
		newSpan.rightOrigin = rs.firstItem()
	}

	if !d.tryCoalesceLeft(insertOrd, newSpan) {
		d.spans.Insert(insertOrd, newSpan, newSpan.visibleWeight())
		for k := uint64(0); k < newSpan.length; k++ {
			d.originIndex[itemRef{author: authorIdx, seq: seqStart + k}] = newSpan
		}
	}

	d.clock.tick()
	d.cursor.invalidateIfAtOrAfter(pos)
	d.cursor.set(pos + uint64(len(content)))

	right := newSpan.rightOrigin
	hasRight := !right.isNone()
	op := Op{
		Kind:     OpInsert,
		Author:   author,
		SeqStart: seqStart,
		Len:      uint64(len(content)),
		Content:  content,
		HasLeft:  hasLeft,
		HasRight: hasRight,
	}
	if hasLeft {
		leftKey, _ := d.authors.key(left.author)
		op.LeftOrigin = ItemID{Author: leftKey, Seq: left.seq}
	}
	if hasRight {
		rightKey, _ := d.authors.key(right.author)
		op.RightOrigin = ItemID{Author: rightKey, Seq: right.seq}
	}
	return op, nil
}

// Delete tombstones length visible characters starting at pos, splitting
// spans at the boundaries as needed, and returns one Delete Op per span it
// tombstoned (never coalescing across the deletion, per spec.md §4.2.3).
// Panics if start is beyond the document; a length reaching past the end
// is silently clamped.
func (d *Doc) Delete(start, length uint64) []Op {
	total := d.spans.TotalWeight()
	if start > total {
		panic(fmt.Sprintf("rga: Delete start %d out of range [0, %d]", start, total))
	}
	end := start + length
	if end > total {
		end = total
	}
	if start >= end {
		return nil
	}

	ord, residual, ok := d.spans.FindByWeight(start)
	if !ok {
		panic("rga: inconsistent document state")
	}
	if residual > 0 {
		d.splitSpanAt(ord, residual)
		ord++
	}

	d.clock.tick()
	var ops []Op
	remaining := end - start
	for remaining > 0 {
		s := *d.spans.Get(ord)
		if s.deleted {
			ord++
			continue
		}
		take := s.length
		if take > remaining {
			d.splitSpanAt(ord, remaining)
			take = remaining
		}
		if op, applied := d.tombstoneSpan(ord); applied {
			ops = append(ops, op)
		}
		remaining -= take
		ord++
	}

	d.cursor.invalidateIfAtOrAfter(start)
	return ops
}

// Version returns a stamp of the document's current causal progress.
func (d *Doc) Version() VersionStamp {
	hw := make(map[crypto.AuthorID]uint64, d.authors.count())
	for idx := 0; idx < d.authors.count(); idx++ {
		authorIdx := AuthorIdx(idx)
		n := d.contentLen[authorIdx]
		if n == 0 {
			continue
		}
		key, _ := d.authors.key(authorIdx)
		hw[key] = n - 1
	}
	return VersionStamp{LamportTime: d.clock.Time(), highWater: hw}
}

// SliceAt returns the content visible in [start, end) as of version v: a
// character counts only if its author had already produced it at v and no
// delete this replica had applied by v.LamportTime covered it.
func (d *Doc) SliceAt(start, end uint64, v VersionStamp) []byte {
	var out []byte
	pos := uint64(0)
	d.spans.Iterate(func(_ int, spp **span) bool {
		s := *spp
		key, ok := d.authors.key(s.author)
		if !ok {
			return true
		}
		hw, seen := v.highWater[key]
		if !seen {
			return true
		}
		hiExclusive := s.seqStart + s.length
		if hw+1 < hiExclusive {
			hiExclusive = hw + 1
		}
		if hiExclusive <= s.seqStart {
			return true
		}
		buf := d.content[s.author]
		for seq := s.seqStart; seq < hiExclusive; seq++ {
			if d.isDeletedAt(s.author, seq, v.LamportTime) {
				continue
			}
			if pos >= start && pos < end {
				out = append(out, buf[s.contentOffset+(seq-s.seqStart)])
			}
			pos++
			if pos >= end {
				return false
			}
		}
		return true
	})
	return out
}

// LenAt returns the visible length of the document as of version v.
func (d *Doc) LenAt(v VersionStamp) uint64 {
	return uint64(len(d.SliceAt(0, math.MaxUint64, v)))
}

// ToStringAt returns the full visible content as of version v.
func (d *Doc) ToStringAt(v VersionStamp) []byte {
	return d.SliceAt(0, math.MaxUint64, v)
}

// Anchor captures a durable reference to the character currently at pos
// (or the document end, if pos == Len()), biased toward bias once that
// character is tombstoned.
func (d *Doc) Anchor(pos uint64, bias AnchorBias) Anchor {
	if pos >= d.Len() {
		return Anchor{item: noneRef, bias: bias}
	}
	j, residual, ok := d.spans.FindByWeight(pos)
	if !ok {
		return Anchor{item: noneRef, bias: bias}
	}
	s := *d.spans.Get(j)
	return Anchor{item: itemRef{author: s.author, seq: s.seqStart + residual}, bias: bias}
}

// Resolve maps an Anchor back to its current visible position, walking
// toward the anchor's bias if its character has since been tombstoned.
func (d *Doc) Resolve(a Anchor) uint64 {
	if a.item.isNone() {
		return d.Len()
	}
	sp, ok := d.originIndex[a.item]
	if !ok {
		return d.Len()
	}
	if !sp.deleted {
		return d.spans.WeightBefore(sp.handle) + (a.item.seq - sp.seqStart)
	}

	ord := d.spans.IndexOf(sp.handle)
	if a.bias == AnchorRight {
		for idx := ord; idx < d.spans.Len(); idx++ {
			s := *d.spans.Get(idx)
			if !s.deleted {
				return d.spans.WeightBefore(s.handle)
			}
		}
		return d.Len()
	}
	for idx := ord - 1; idx >= 0; idx-- {
		s := *d.spans.Get(idx)
		if !s.deleted {
			return d.spans.WeightBefore(s.handle) + s.length - 1
		}
	}
	return 0
}
