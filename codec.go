package collabrga

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cshekharsharma/collabrga/crypto"
	"github.com/cshekharsharma/collabrga/rga"
)

// ErrUnknownTag is returned by DecodeOp when a block's leading byte isn't
// one of the known operation tags.
var ErrUnknownTag = errors.New("collabrga: unknown operation tag")

// ErrTruncatedBlock is returned by DecodeOp when a block ends before its
// declared field widths are satisfied.
var ErrTruncatedBlock = errors.New("collabrga: truncated operation block")

const (
	tagInsert byte = 0x01
	tagDelete byte = 0x02
)

// EncodeOp serializes op as one log block per spec.md §6.2.
func EncodeOp(op rga.Op) []byte {
	switch op.Kind {
	case rga.OpInsert:
		return encodeInsert(op)
	case rga.OpDelete:
		return encodeDelete(op)
	default:
		panic("collabrga: EncodeOp: invalid op kind")
	}
}

func encodeInsert(op rga.Op) []byte {
	buf := make([]byte, 0, 1+41+41+8+8+len(op.Content))
	buf = append(buf, tagInsert)
	buf = appendItemIDOption(buf, op.LeftOrigin, op.HasLeft)
	buf = appendItemIDOption(buf, op.RightOrigin, op.HasRight)
	buf = binary.LittleEndian.AppendUint64(buf, op.SeqStart)
	buf = binary.LittleEndian.AppendUint64(buf, op.Len)
	buf = append(buf, op.Content...)
	return buf
}

func encodeDelete(op rga.Op) []byte {
	buf := make([]byte, 0, 1+32+8+8)
	buf = append(buf, tagDelete)
	buf = append(buf, op.Author[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, op.SeqStart)
	buf = binary.LittleEndian.AppendUint64(buf, op.Len)
	return buf
}

func appendItemIDOption(buf []byte, id rga.ItemID, has bool) []byte {
	if !has {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	buf = append(buf, id.Author[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, id.Seq)
	return buf
}

// DecodeOp decodes a wire block. An Insert block does not carry its own
// author on the wire (spec.md §6.2): its content always belongs to
// insertAuthor, the identity of the log the block was read from. A Delete
// block names its target author explicitly, since a delete can tombstone
// content authored by anyone, and ignores insertAuthor.
func DecodeOp(block []byte, insertAuthor crypto.AuthorID) (rga.Op, error) {
	if len(block) < 1 {
		return rga.Op{}, ErrTruncatedBlock
	}
	switch block[0] {
	case tagInsert:
		return decodeInsert(block[1:], insertAuthor)
	case tagDelete:
		return decodeDelete(block[1:])
	default:
		return rga.Op{}, ErrUnknownTag
	}
}

func decodeInsert(buf []byte, author crypto.AuthorID) (rga.Op, error) {
	op := rga.Op{Kind: rga.OpInsert, Author: author}

	left, hasLeft, rest, err := readItemIDOption(buf)
	if err != nil {
		return rga.Op{}, err
	}
	op.LeftOrigin, op.HasLeft = left, hasLeft

	right, hasRight, rest, err := readItemIDOption(rest)
	if err != nil {
		return rga.Op{}, err
	}
	op.RightOrigin, op.HasRight = right, hasRight

	if len(rest) < 16 {
		return rga.Op{}, ErrTruncatedBlock
	}
	op.SeqStart = binary.LittleEndian.Uint64(rest[:8])
	rest = rest[8:]
	op.Len = binary.LittleEndian.Uint64(rest[:8])
	rest = rest[8:]

	if err := checkSeqRange(op.SeqStart, op.Len); err != nil {
		return rga.Op{}, err
	}
	if uint64(len(rest)) < op.Len {
		return rga.Op{}, ErrTruncatedBlock
	}
	op.Content = append([]byte(nil), rest[:op.Len]...)
	return op, nil
}

func decodeDelete(buf []byte) (rga.Op, error) {
	if len(buf) < 32+8+8 {
		return rga.Op{}, ErrTruncatedBlock
	}
	op := rga.Op{Kind: rga.OpDelete}
	copy(op.Author[:], buf[:32])
	buf = buf[32:]
	op.SeqStart = binary.LittleEndian.Uint64(buf[:8])
	buf = buf[8:]
	op.Len = binary.LittleEndian.Uint64(buf[:8])
	if err := checkSeqRange(op.SeqStart, op.Len); err != nil {
		return rga.Op{}, err
	}
	return op, nil
}

// checkSeqRange rejects a decoded (seq_start, len) pair that no real
// document could ever produce: a seq range wrapping past the top of the
// uint64 space. This is the one range check decode can make without
// consulting document state; everything else a corrupt wire value could
// misrepresent (an origin that doesn't exist, a seq range past the
// document's actual length) surfaces later as a buffered or malformed op
// per spec.md §7, not here.
func checkSeqRange(seqStart, length uint64) error {
	if length > math.MaxUint64-seqStart {
		return fmt.Errorf("collabrga: decode: seq_start %d + len %d overflows: %w", seqStart, length, rga.ErrOutOfRange)
	}
	return nil
}

func readItemIDOption(buf []byte) (rga.ItemID, bool, []byte, error) {
	if len(buf) < 1 {
		return rga.ItemID{}, false, nil, ErrTruncatedBlock
	}
	present := buf[0]
	buf = buf[1:]
	if present == 0 {
		return rga.ItemID{}, false, buf, nil
	}
	if len(buf) < 40 {
		return rga.ItemID{}, false, nil, ErrTruncatedBlock
	}
	var id rga.ItemID
	copy(id.Author[:], buf[:32])
	buf = buf[32:]
	id.Seq = binary.LittleEndian.Uint64(buf[:8])
	buf = buf[8:]
	return id, true, buf, nil
}
