// Package collabrga wires the rga sequence CRDT to a signed oplog: the
// "glue" that turns the bare engine into something two replicas can
// actually synchronize, described in spec.md as the remaining ~13% atop
// the core data structures.
package collabrga

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cshekharsharma/collabrga/crypto"
	"github.com/cshekharsharma/collabrga/oplog"
	"github.com/cshekharsharma/collabrga/rga"
)

// Config tunes the underlying B-tree. Zero values take spec.md's
// recommended defaults (LeafSize 64, FanOut 32). MaxAuthors documents the
// hard ceiling spec.md §4.2.8 places on a replica's author table (65,534);
// it is not independently configurable below that ceiling, since rga's
// 16-bit AuthorIdx space is fixed, so the field exists for parity with
// spec.md's described Config shape rather than to change behavior.
type Config struct {
	LeafSize   int
	FanOut     int
	MaxAuthors int
}

func (c Config) toRGAConfig() rga.Config {
	return rga.Config{LeafSize: c.LeafSize, FanOut: c.FanOut}
}

// Document is a single replica's editable view of a document: an rga.Doc
// for the merged content plus an oplog.Log recording every operation this
// replica has locally originated, signable and shareable with peers.
//
// A *Document is safe for concurrent use by multiple goroutines, guarded by
// a single sync.RWMutex — matching the teacher's per-type locking
// convention — even though the underlying rga.Doc and oplog.Log are not.
type Document struct {
	mu sync.RWMutex

	local crypto.AuthorID
	doc   *rga.Doc
	log   *oplog.Log

	mergedThrough map[crypto.AuthorID]uint64
	logger        *slog.Logger
}

// Option configures optional Document behavior at construction time.
type Option func(*Document)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// NewDocument creates an empty document. local is this replica's author
// identity; keypair signs this replica's own oplog.Log and must correspond
// to local.
func NewDocument(local crypto.AuthorID, keypair crypto.KeyPair, cfg Config, opts ...Option) *Document {
	d := &Document{
		local:         local,
		doc:           rga.NewDoc(cfg.toRGAConfig()),
		log:           oplog.NewLog(keypair),
		mergedThrough: make(map[crypto.AuthorID]uint64),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Insert inserts content at visible position pos, authored locally, and
// appends the resulting operation to this replica's own log.
func (d *Document) Insert(pos uint64, content []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	op, err := d.doc.Insert(d.local, pos, content)
	if err != nil {
		return fmt.Errorf("collabrga: insert: %w", err)
	}
	if len(content) == 0 {
		return nil
	}
	d.log.Append(EncodeOp(op))
	return nil
}

// Delete tombstones length visible characters starting at pos, and appends
// one log block per span it tombstoned.
func (d *Document) Delete(pos, length uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, op := range d.doc.Delete(pos, length) {
		d.log.Append(EncodeOp(op))
	}
}

// Len returns the document's current visible length.
func (d *Document) Len() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Len()
}

// ToString returns the document's current visible content.
func (d *Document) ToString() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.ToString()
}

// Slice returns the visible content in [start, end).
func (d *Document) Slice(start, end uint64) []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Slice(start, end)
}

// Version returns a stamp of the document's current causal progress.
func (d *Document) Version() rga.VersionStamp {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Version()
}

// ToStringAt returns the content visible as of version v.
func (d *Document) ToStringAt(v rga.VersionStamp) []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.ToStringAt(v)
}

// EncodeVersion returns the wire-format encoding (spec.md §6.5) of the
// document's current VersionStamp, for sharing with a peer so it can later
// request a historical read against a version both sides agree on.
func (d *Document) EncodeVersion() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Version().Encode()
}

// ToStringAtWire decodes a peer-supplied VersionStamp (as produced by
// EncodeVersion, possibly by a different replica) and returns the content
// this replica sees as of that version.
func (d *Document) ToStringAtWire(wire []byte) ([]byte, error) {
	v, err := rga.DecodeVersionStamp(wire)
	if err != nil {
		return nil, fmt.Errorf("collabrga: decode version: %w", err)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.ToStringAt(v), nil
}

// Anchor captures a durable reference to the character at pos.
func (d *Document) Anchor(pos uint64, bias rga.AnchorBias) rga.Anchor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Anchor(pos, bias)
}

// Resolve maps an Anchor back to its current visible position.
func (d *Document) Resolve(a rga.Anchor) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Resolve(a)
}

// Log returns this replica's own oplog.Log, for a transport layer to read
// blocks from and ship to peers. The returned log is append-only from this
// replica's perspective; callers must not mutate it.
func (d *Document) Log() *oplog.Log {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.log
}

// Sign returns a signed snapshot of this replica's own log, shareable with
// peers and verifiable with d's public key alone.
func (d *Document) Sign() oplog.SignedLog {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.log.Sign()
}

// Merge absorbs every block of peerLog this replica hasn't already merged,
// decoding and applying each in log order. peerAuthor is peerLog's signing
// identity, supplied by the caller (peerLog is an oplog.Log, not a
// SignedLog — the transport that fetched it is responsible for having
// already verified peerAuthor owns it; that verification is out of scope
// here, matching spec.md's "transport/networking protocol" non-goal).
//
// A malformed block is logged and skipped rather than aborting the merge —
// one bad block from a peer shouldn't block every other block from
// applying. Returns the number of operations actually applied (buffered or
// duplicate ops are not counted, but are not errors either).
func (d *Document) Merge(peerAuthor crypto.AuthorID, peerLog *oplog.Log) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := d.mergedThrough[peerAuthor]
	applied := 0
	for i := start; i < peerLog.Len(); i++ {
		block, ok := peerLog.Block(i)
		if !ok {
			break
		}
		op, err := DecodeOp(block, peerAuthor)
		if err != nil {
			d.logger.Warn("collabrga: rejecting malformed block", "author", peerAuthor, "index", i, "err", err)
			continue
		}
		ok, err = d.doc.ApplyOp(op)
		if err != nil {
			d.logger.Warn("collabrga: rejecting malformed op", "author", peerAuthor, "index", i, "err", err)
			continue
		}
		if ok {
			applied++
		} else {
			d.logger.Debug("collabrga: op buffered pending dependency", "author", peerAuthor, "index", i)
		}
	}
	d.mergedThrough[peerAuthor] = peerLog.Len()
	return applied, nil
}
