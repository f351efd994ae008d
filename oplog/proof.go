package oplog

import (
	"encoding/binary"
	"errors"

	"github.com/cshekharsharma/collabrga/crypto"
)

// ErrShortBuffer is returned when decoding a SignedLog or Proof from a byte
// slice that ends before its declared field widths are satisfied.
var ErrShortBuffer = errors.New("oplog: buffer too short")

// SignedLog is a signed snapshot of a Log: verifiable by anyone holding the
// author's public key, without the private key or the underlying blocks.
type SignedLog struct {
	Author    crypto.AuthorID
	Length    uint64
	Roots     []crypto.Hash
	Signature crypto.Signature
}

// Verify reports whether the snapshot's signature is valid over its own
// length and root set. Never panics; any tampering simply yields false.
func (s SignedLog) Verify() bool {
	message := signable(s.Roots, s.Length)
	return crypto.Verify(s.Author, message, s.Signature)
}

// VerifyProof reports whether data is the block at index in the log this
// snapshot describes. Reconstructs the leaf hash from data, walks the proof
// levels rebuilding each parent by reinserting the running hash at its
// recorded position, and requires both that the final hash lands in the
// snapshot's root set and that every recorded position matches the index
// implied by index's own base-16 digits.
func (s SignedLog) VerifyProof(index uint64, data []byte, proof Proof) bool {
	if index >= s.Length {
		return false
	}

	current := hashLeaf(data)
	currentIndex := index

	for _, level := range proof.Levels {
		expectedPosition := int(currentIndex % branching)
		if level.Position != expectedPosition {
			return false
		}
		if len(level.Siblings) != branching-1 {
			return false
		}

		children := make([]crypto.Hash, 0, branching)
		siblingIdx := 0
		for i := 0; i < branching; i++ {
			if i == level.Position {
				children = append(children, current)
			} else {
				children = append(children, level.Siblings[siblingIdx])
				siblingIdx++
			}
		}

		current = hashParent(children)
		currentIndex /= branching
	}

	for _, root := range s.Roots {
		if root == current {
			return true
		}
	}
	return false
}

// Proof is an inclusion proof for one block of a log, good only against the
// SignedLog it was generated from.
type Proof struct {
	// Levels holds one entry per collapse level the proved block passed
	// through on a full group of branching siblings; a block that only ever
	// sat in partial trailing groups has no levels at all (its leaf hash is
	// already one of the roots).
	Levels []ProofLevel
}

// ProofLevel is the sibling set and position needed to recompute one parent
// hash on the path from a leaf to its root.
type ProofLevel struct {
	Siblings []crypto.Hash
	Position int
}

// EncodeSignedLog serializes s per spec.md §6.3: AuthorId(32), length,
// root_count, roots, then the 64-byte signature.
func EncodeSignedLog(s SignedLog) []byte {
	buf := make([]byte, 0, 32+8+8+32*len(s.Roots)+64)
	buf = append(buf, s.Author[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, s.Length)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(s.Roots)))
	for _, r := range s.Roots {
		buf = append(buf, r[:]...)
	}
	buf = append(buf, s.Signature[:]...)
	return buf
}

// DecodeSignedLog parses the wire format produced by EncodeSignedLog.
func DecodeSignedLog(buf []byte) (SignedLog, error) {
	if len(buf) < 32+8+8 {
		return SignedLog{}, ErrShortBuffer
	}
	var s SignedLog
	copy(s.Author[:], buf[:32])
	buf = buf[32:]
	s.Length = binary.LittleEndian.Uint64(buf[:8])
	buf = buf[8:]
	rootCount := binary.LittleEndian.Uint64(buf[:8])
	buf = buf[8:]

	if uint64(len(buf)) < rootCount*32+64 {
		return SignedLog{}, ErrShortBuffer
	}
	s.Roots = make([]crypto.Hash, rootCount)
	for i := range s.Roots {
		copy(s.Roots[i][:], buf[:32])
		buf = buf[32:]
	}
	copy(s.Signature[:], buf[:64])
	return s, nil
}

// EncodeProof serializes a Proof per spec.md §6.4: level_count, then for
// each level a position byte, a sibling_count byte (always branching-1),
// and the sibling hashes.
func EncodeProof(p Proof) []byte {
	buf := make([]byte, 0, 8+len(p.Levels)*(1+1+32*(branching-1)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(p.Levels)))
	for _, lvl := range p.Levels {
		buf = append(buf, byte(lvl.Position), byte(len(lvl.Siblings)))
		for _, s := range lvl.Siblings {
			buf = append(buf, s[:]...)
		}
	}
	return buf
}

// DecodeProof parses the wire format produced by EncodeProof.
func DecodeProof(buf []byte) (Proof, error) {
	if len(buf) < 8 {
		return Proof{}, ErrShortBuffer
	}
	levelCount := binary.LittleEndian.Uint64(buf[:8])
	buf = buf[8:]

	levels := make([]ProofLevel, 0, levelCount)
	for i := uint64(0); i < levelCount; i++ {
		if len(buf) < 2 {
			return Proof{}, ErrShortBuffer
		}
		position := int(buf[0])
		siblingCount := int(buf[1])
		buf = buf[2:]
		if len(buf) < siblingCount*32 {
			return Proof{}, ErrShortBuffer
		}
		siblings := make([]crypto.Hash, siblingCount)
		for j := range siblings {
			copy(siblings[j][:], buf[:32])
			buf = buf[32:]
		}
		levels = append(levels, ProofLevel{Siblings: siblings, Position: position})
	}
	return Proof{Levels: levels}, nil
}
