package rga

import "errors"

// ErrOutOfRange is returned by decode-time validation when a wire value
// describes a seq range no real document could have produced (the codec
// wraps this around a seq_start/len pair that overflows past the top of
// the uint64 space). The RGA itself panics on bad local-call positions per
// spec.md §4.2.8; this sentinel is for the codec's fallible decode path
// instead.
var ErrOutOfRange = errors.New("rga: value out of range")

// ErrAuthorTableFull is returned when a 65,535th distinct author would be
// admitted into a replica's author table. The 16-bit AuthorIdx space caps
// a replica at 65,534 distinct authors (0xFFFF is the NoAuthor sentinel).
var ErrAuthorTableFull = errors.New("rga: author table full")

// ErrMalformedOp is returned by ApplyOp when a decoded operation's fields
// are internally inconsistent (zero length, or an Insert whose content
// length differs from Len) rather than simply referencing unseen content.
var ErrMalformedOp = errors.New("rga: malformed operation")
