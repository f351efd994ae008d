package rga

import "github.com/cshekharsharma/collabrga/crypto"

// AuthorIdx is a compact 16-bit index assigned to an AuthorId on first
// local mention, so spans and origins can store two bytes instead of 32.
type AuthorIdx uint16

// NoAuthor is the sentinel AuthorIdx meaning "no author" — used to encode
// the virtual START/END boundaries (spec.md §3.3) as an itemRef.
const NoAuthor AuthorIdx = 0xFFFF

// MaxAuthors is the hard ceiling on distinct authors a single replica's
// 16-bit AuthorIdx space can address. Crossing it is a fatal programming
// error per spec.md §4.2.8 / §9.
const MaxAuthors = 65534

// ItemID identifies a single character: the AuthorId that produced it and
// its zero-based sequence number in that author's content buffer. It is
// globally unique and immutable for the life of the document.
type ItemID struct {
	Author crypto.AuthorID
	Seq    uint64
}

// OpID is the ItemID of the first character an operation produced.
type OpID = ItemID

// itemRef is the internal, AuthorIdx-keyed counterpart to ItemID, used
// inside spans and the origin index where the replica-local compact index
// is enough and 32 bytes per reference would be wasteful.
type itemRef struct {
	author AuthorIdx
	seq    uint64
}

// noneRef encodes the virtual START (as a left origin) or END (as a right
// origin) boundary.
var noneRef = itemRef{author: NoAuthor}

func (r itemRef) isNone() bool { return r.author == NoAuthor }

// authorTable is a bidirectional AuthorId <-> AuthorIdx map, compacting
// full 32-byte keys into a dense index on first mention. Shaped as two
// parallel structures (map + slice) rather than one, mirroring
// original_source's UserTable (key_to_idx / idx_to_key).
type authorTable struct {
	keyToIdx map[crypto.AuthorID]AuthorIdx
	idxToKey []crypto.AuthorID
}

func newAuthorTable() *authorTable {
	return &authorTable{
		keyToIdx: make(map[crypto.AuthorID]AuthorIdx),
	}
}

// getOrInsert returns key's AuthorIdx, assigning the next free index on
// first mention. Returns ErrAuthorTableFull once MaxAuthors is reached.
func (t *authorTable) getOrInsert(key crypto.AuthorID) (AuthorIdx, error) {
	if idx, ok := t.keyToIdx[key]; ok {
		return idx, nil
	}
	if len(t.idxToKey) >= MaxAuthors {
		return NoAuthor, ErrAuthorTableFull
	}
	idx := AuthorIdx(len(t.idxToKey))
	t.idxToKey = append(t.idxToKey, key)
	t.keyToIdx[key] = idx
	return idx, nil
}

// idx looks up key's AuthorIdx without inserting it.
func (t *authorTable) idx(key crypto.AuthorID) (AuthorIdx, bool) {
	idx, ok := t.keyToIdx[key]
	return idx, ok
}

// key resolves an AuthorIdx back to its full AuthorId.
func (t *authorTable) key(idx AuthorIdx) (crypto.AuthorID, bool) {
	if int(idx) >= len(t.idxToKey) {
		return crypto.AuthorID{}, false
	}
	return t.idxToKey[idx], true
}

func (t *authorTable) count() int { return len(t.idxToKey) }
