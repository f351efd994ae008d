package rga

import "github.com/cshekharsharma/collabrga/crypto"

// OpKind distinguishes the two operation shapes spec.md's wire format
// defines (§6.2): Insert and Delete.
type OpKind uint8

const (
	OpInsert OpKind = 1
	OpDelete OpKind = 2
)

// Op is a decoded operation, the boundary type between the byte-level codec
// (owned by the root collabrga package) and the RGA engine. Insert and
// Delete both produce and consume Op values; which fields are meaningful
// depends on Kind.
type Op struct {
	Kind OpKind

	// Insert only: the dual origins used for the conflict-window tiebreak.
	// HasLeft/HasRight false encodes the virtual START/END boundary.
	LeftOrigin  ItemID
	HasLeft     bool
	RightOrigin ItemID
	HasRight    bool

	// Insert: the author that produced SeqStart..SeqStart+Len.
	// Delete: the author whose content is being tombstoned.
	Author   crypto.AuthorID
	SeqStart uint64
	Len      uint64

	// Insert only: the Len bytes of content being inserted.
	Content []byte
}
