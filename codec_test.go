package collabrga

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/cshekharsharma/collabrga/crypto"
	"github.com/cshekharsharma/collabrga/rga"
)

func authorWithFirstByte(b byte) crypto.AuthorID {
	var a crypto.AuthorID
	a[0] = b
	return a
}

func TestEncodeDecodeInsertRoundTrip(t *testing.T) {
	left := rga.ItemID{Author: authorWithFirstByte(0x01), Seq: 4}
	right := rga.ItemID{Author: authorWithFirstByte(0x02), Seq: 9}
	author := authorWithFirstByte(0x03)

	op := rga.Op{
		Kind:        rga.OpInsert,
		LeftOrigin:  left,
		HasLeft:     true,
		RightOrigin: right,
		HasRight:    true,
		SeqStart:    7,
		Len:         5,
		Content:     []byte("hello"),
	}

	block := EncodeOp(op)
	decoded, err := DecodeOp(block, author)
	if err != nil {
		t.Fatalf("DecodeOp: %v", err)
	}
	if decoded.Kind != rga.OpInsert || !decoded.HasLeft || !decoded.HasRight {
		t.Fatalf("decoded flags wrong: %+v", decoded)
	}
	if decoded.LeftOrigin != left || decoded.RightOrigin != right {
		t.Fatalf("decoded origins wrong: %+v", decoded)
	}
	if decoded.Author != author {
		t.Fatalf("decoded author = %x, want %x (insert author comes from the log, not the wire)", decoded.Author, author)
	}
	if decoded.SeqStart != 7 || decoded.Len != 5 || !bytes.Equal(decoded.Content, []byte("hello")) {
		t.Fatalf("decoded payload wrong: %+v", decoded)
	}
}

func TestEncodeDecodeInsertWithNoOrigins(t *testing.T) {
	op := rga.Op{Kind: rga.OpInsert, SeqStart: 0, Len: 3, Content: []byte("abc")}
	block := EncodeOp(op)
	decoded, err := DecodeOp(block, authorWithFirstByte(0x09))
	if err != nil {
		t.Fatalf("DecodeOp: %v", err)
	}
	if decoded.HasLeft || decoded.HasRight {
		t.Fatalf("expected no origins, got %+v", decoded)
	}
}

func TestEncodeDecodeDeleteRoundTrip(t *testing.T) {
	author := authorWithFirstByte(0x05)
	op := rga.Op{Kind: rga.OpDelete, Author: author, SeqStart: 3, Len: 4}
	block := EncodeOp(op)

	decoded, err := DecodeOp(block, authorWithFirstByte(0xFF))
	if err != nil {
		t.Fatalf("DecodeOp: %v", err)
	}
	if decoded.Kind != rga.OpDelete {
		t.Fatalf("expected OpDelete, got %v", decoded.Kind)
	}
	if decoded.Author != author {
		t.Fatalf("delete author = %x, want %x (delete carries its own target author on the wire)", decoded.Author, author)
	}
	if decoded.SeqStart != 3 || decoded.Len != 4 {
		t.Fatalf("decoded delete payload wrong: %+v", decoded)
	}
}

func TestDecodeOpRejectsUnknownTag(t *testing.T) {
	_, err := DecodeOp([]byte{0xAA, 0, 0, 0}, crypto.AuthorID{})
	if err != ErrUnknownTag {
		t.Fatalf("got %v, want ErrUnknownTag", err)
	}
}

func TestDecodeOpRejectsTruncatedInsert(t *testing.T) {
	op := rga.Op{Kind: rga.OpInsert, SeqStart: 0, Len: 3, Content: []byte("abc")}
	block := EncodeOp(op)
	_, err := DecodeOp(block[:len(block)-1], crypto.AuthorID{})
	if err != ErrTruncatedBlock {
		t.Fatalf("got %v, want ErrTruncatedBlock", err)
	}
}

func TestDecodeOpRejectsTruncatedDelete(t *testing.T) {
	op := rga.Op{Kind: rga.OpDelete, Author: authorWithFirstByte(0x01), SeqStart: 0, Len: 1}
	block := EncodeOp(op)
	_, err := DecodeOp(block[:len(block)-1], crypto.AuthorID{})
	if err != ErrTruncatedBlock {
		t.Fatalf("got %v, want ErrTruncatedBlock", err)
	}
}

func TestDecodeOpRejectsOutOfRangeInsertSeqRange(t *testing.T) {
	block := []byte{tagInsert, 0, 0}
	block = binary.LittleEndian.AppendUint64(block, math.MaxUint64)
	block = binary.LittleEndian.AppendUint64(block, 1)

	_, err := DecodeOp(block, crypto.AuthorID{})
	if !errors.Is(err, rga.ErrOutOfRange) {
		t.Fatalf("got %v, want an error wrapping rga.ErrOutOfRange", err)
	}
}

func TestDecodeOpRejectsOutOfRangeDeleteSeqRange(t *testing.T) {
	author := authorWithFirstByte(0x01)
	block := []byte{tagDelete}
	block = append(block, author[:]...)
	block = binary.LittleEndian.AppendUint64(block, math.MaxUint64)
	block = binary.LittleEndian.AppendUint64(block, 1)

	_, err := DecodeOp(block, crypto.AuthorID{})
	if !errors.Is(err, rga.ErrOutOfRange) {
		t.Fatalf("got %v, want an error wrapping rga.ErrOutOfRange", err)
	}
}

func TestDecodeOpRejectsEmptyBlock(t *testing.T) {
	_, err := DecodeOp(nil, crypto.AuthorID{})
	if err != ErrTruncatedBlock {
		t.Fatalf("got %v, want ErrTruncatedBlock", err)
	}
}
