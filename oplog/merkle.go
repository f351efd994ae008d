// Package oplog implements a signed, append-only block log backed by a
// 16-ary Merkle forest: blocks can be appended, the whole log signed as a
// snapshot, and individual blocks proven to belong to a snapshot without
// shipping the rest of the log.
package oplog

import (
	"encoding/binary"

	"github.com/cshekharsharma/collabrga/crypto"
)

// Domain-separation prefixes for the three hash roles, preventing a leaf
// hash from ever colliding with a parent or root-signable hash.
const (
	typeLeaf   byte = 0x00
	typeParent byte = 0x01
	typeRoot   byte = 0x02
)

// branching is the tree's fan-out: 16 siblings collapse into one parent.
const branching = 16

// hashLeaf hashes one block with leaf domain separation.
func hashLeaf(data []byte) crypto.Hash {
	buf := make([]byte, 0, 1+8+len(data))
	buf = append(buf, typeLeaf)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(data)))
	buf = append(buf, data...)
	return crypto.HashBytes(buf)
}

// hashParent hashes a full group of 16 children with parent domain
// separation.
func hashParent(children []crypto.Hash) crypto.Hash {
	buf := make([]byte, 0, 1+8+32*len(children))
	buf = append(buf, typeParent)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(children)))
	for _, c := range children {
		buf = append(buf, c[:]...)
	}
	return crypto.HashBytes(buf)
}

// signable computes the message a SignedLog's signature covers: the root
// set and length, with root domain separation.
func signable(roots []crypto.Hash, length uint64) []byte {
	buf := make([]byte, 0, 1+8+8+32*len(roots))
	buf = append(buf, typeRoot)
	buf = binary.LittleEndian.AppendUint64(buf, length)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(roots)))
	for _, r := range roots {
		buf = append(buf, r[:]...)
	}
	return buf
}

// collapseLevel collapses every contiguous full group of branching hashes
// into one parent hash, leaving any trailing partial group untouched, and
// returns the next level up. It does not report which index ranges were
// collapsed; proof construction redoes the grouping with its own index
// bookkeeping.
func collapseLevel(level []crypto.Hash) []crypto.Hash {
	if len(level)/branching == 0 {
		return level
	}
	next := make([]crypto.Hash, 0, len(level)/branching+1)
	i := 0
	for i < len(level) {
		end := i + branching
		if end > len(level) {
			end = len(level)
		}
		group := level[i:end]
		if len(group) == branching {
			next = append(next, hashParent(group))
		} else {
			next = append(next, group...)
		}
		i += branching
	}
	return next
}

// computeRoots repeatedly collapses leaf hashes until no full group of
// branching remains, yielding the log's current Merkle root set.
func computeRoots(blocks [][]byte) []crypto.Hash {
	if len(blocks) == 0 {
		return nil
	}
	current := make([]crypto.Hash, len(blocks))
	for i, b := range blocks {
		current[i] = hashLeaf(b)
	}
	for len(current)/branching > 0 {
		current = collapseLevel(current)
	}
	return current
}
