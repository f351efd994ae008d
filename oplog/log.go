package oplog

import "github.com/cshekharsharma/collabrga/crypto"

// Log is a single author's append-only block log, grounded on
// original_source/src/log.rs's Log type. It owns the signing key; only the
// author who holds the private key can produce a SignedLog over it.
type Log struct {
	keypair crypto.KeyPair
	blocks  [][]byte
}

// NewLog creates an empty log signed by keypair.
func NewLog(keypair crypto.KeyPair) *Log {
	return &Log{keypair: keypair}
}

// Author returns the log's signing identity.
func (l *Log) Author() crypto.AuthorID { return l.keypair.Public }

// Len returns the number of blocks appended so far.
func (l *Log) Len() uint64 { return uint64(len(l.blocks)) }

// Append stores data as the next block.
func (l *Log) Append(data []byte) {
	stored := make([]byte, len(data))
	copy(stored, data)
	l.blocks = append(l.blocks, stored)
}

// Block returns block index, or false if index is out of range.
func (l *Log) Block(index uint64) ([]byte, bool) {
	if index >= uint64(len(l.blocks)) {
		return nil, false
	}
	return l.blocks[index], true
}

// Sign produces a SignedLog snapshot of the log's current state, verifiable
// by anyone holding the author's public key without access to the private
// key or the blocks themselves.
func (l *Log) Sign() SignedLog {
	roots := computeRoots(l.blocks)
	message := signable(roots, l.Len())
	return SignedLog{
		Author:    l.keypair.Public,
		Length:    l.Len(),
		Roots:     roots,
		Signature: l.keypair.Sign(message),
	}
}

// Proof generates an inclusion proof for block index, or false if index is
// out of range. Walking from the leaf level up, a level is only recorded
// when index falls in a full group of branching siblings at that level;
// partial trailing groups are already roots and contribute nothing further
// to prove.
func (l *Log) Proof(index uint64) (Proof, bool) {
	if index >= uint64(len(l.blocks)) {
		return Proof{}, false
	}

	current := make([]crypto.Hash, len(l.blocks))
	for i, b := range l.blocks {
		current[i] = hashLeaf(b)
	}
	currentIndex := int(index)

	var levels []ProofLevel
	for len(current)/branching > 0 {
		groupIndex := currentIndex / branching
		groupStart := groupIndex * branching
		groupEnd := groupStart + branching
		if groupEnd > len(current) {
			groupEnd = len(current)
		}
		position := currentIndex % branching

		if groupEnd-groupStart == branching {
			siblings := make([]crypto.Hash, 0, branching-1)
			for i := groupStart; i < groupEnd; i++ {
				if i != currentIndex {
					siblings = append(siblings, current[i])
				}
			}
			levels = append(levels, ProofLevel{Siblings: siblings, Position: position})
		}

		current = collapseLevel(current)
		currentIndex = groupIndex
	}

	return Proof{Levels: levels}, true
}
