package rga

import (
	"encoding/binary"
	"sort"

	"github.com/cshekharsharma/collabrga/crypto"
)

// VersionStamp is a compact snapshot of causal progress: the Lamport clock
// value at the moment it was taken, plus the highest seq observed per
// author. Historical reads (*_at) filter characters by comparing their
// seq against the stamp's per-author high-water mark.
type VersionStamp struct {
	LamportTime uint64
	highWater   map[crypto.AuthorID]uint64
}

// Observed reports the highest seq of author visible at this version, and
// whether that author had been seen at all.
func (v VersionStamp) Observed(author crypto.AuthorID) (uint64, bool) {
	hw, ok := v.highWater[author]
	return hw, ok
}

// Equal reports whether two stamps carry the same lamport time and the
// same per-author high-water marks.
func (v VersionStamp) Equal(other VersionStamp) bool {
	if v.LamportTime != other.LamportTime {
		return false
	}
	if len(v.highWater) != len(other.highWater) {
		return false
	}
	for a, hw := range v.highWater {
		if other.highWater[a] != hw {
			return false
		}
	}
	return true
}

// Encode serializes a VersionStamp per spec.md §6.5: lamport time, author
// count, then (AuthorId, high_water) pairs sorted by AuthorId byte order.
func (v VersionStamp) Encode() []byte {
	authors := make([]crypto.AuthorID, 0, len(v.highWater))
	for a := range v.highWater {
		authors = append(authors, a)
	}
	sort.Slice(authors, func(i, j int) bool { return crypto.Less(authors[i], authors[j]) })

	buf := make([]byte, 0, 16+len(authors)*40)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v.LamportTime)
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint64(tmp[:], uint64(len(authors)))
	buf = append(buf, tmp[:]...)
	for _, a := range authors {
		buf = append(buf, a[:]...)
		binary.LittleEndian.PutUint64(tmp[:], v.highWater[a])
		buf = append(buf, tmp[:]...)
	}
	return buf
}

// DecodeVersionStamp parses the wire format Encode produces.
func DecodeVersionStamp(data []byte) (VersionStamp, error) {
	if len(data) < 16 {
		return VersionStamp{}, ErrMalformedOp
	}
	lamport := binary.LittleEndian.Uint64(data[0:8])
	count := binary.LittleEndian.Uint64(data[8:16])
	rest := data[16:]
	v := VersionStamp{LamportTime: lamport, highWater: make(map[crypto.AuthorID]uint64, count)}
	for i := uint64(0); i < count; i++ {
		if len(rest) < 40 {
			return VersionStamp{}, ErrMalformedOp
		}
		var a crypto.AuthorID
		copy(a[:], rest[:32])
		hw := binary.LittleEndian.Uint64(rest[32:40])
		v.highWater[a] = hw
		rest = rest[40:]
	}
	return v, nil
}
