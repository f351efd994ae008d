package oplog

import (
	"fmt"
	"testing"

	"github.com/cshekharsharma/collabrga/crypto"
)

func mustKeyPair(t *testing.T) crypto.KeyPair {
	t.Helper()
	kp, err := crypto.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return kp
}

func TestEmptyLogHasZeroLength(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	if log.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", log.Len())
	}
}

func TestAppendIncreasesLength(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	log.Append([]byte("block 0"))
	if log.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", log.Len())
	}
	log.Append([]byte("block 1"))
	if log.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", log.Len())
	}
}

func TestCanRetrieveAppendedBlocks(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	log.Append([]byte("hello"))
	log.Append([]byte("world"))
	if b, ok := log.Block(0); !ok || string(b) != "hello" {
		t.Fatalf("Block(0) = %q, %v", b, ok)
	}
	if b, ok := log.Block(1); !ok || string(b) != "world" {
		t.Fatalf("Block(1) = %q, %v", b, ok)
	}
	if _, ok := log.Block(2); ok {
		t.Fatalf("Block(2) should not exist")
	}
}

func TestSignProducesValidSignature(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	log.Append([]byte("block 0"))
	log.Append([]byte("block 1"))
	signed := log.Sign()
	if !signed.Verify() {
		t.Fatalf("expected signed log to verify")
	}
}

func TestSignatureCoversLength(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	log.Append([]byte("block 0"))
	signed1 := log.Sign()
	log.Append([]byte("block 1"))
	signed2 := log.Sign()
	if signed1.Signature == signed2.Signature {
		t.Fatalf("expected different signatures for different lengths")
	}
}

func TestVerificationFailsWithWrongKey(t *testing.T) {
	alice := NewLog(mustKeyPair(t))
	bob := mustKeyPair(t)
	alice.Append([]byte("data"))
	signed := alice.Sign()

	forged := SignedLog{
		Author:    bob.Public,
		Length:    signed.Length,
		Roots:     signed.Roots,
		Signature: signed.Signature,
	}
	if forged.Verify() {
		t.Fatalf("expected verification to fail with substituted key")
	}
}

func TestVerificationFailsWithTamperedLength(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	log.Append([]byte("data"))
	signed := log.Sign()
	signed.Length++
	if signed.Verify() {
		t.Fatalf("expected verification to fail with tampered length")
	}
}

func TestVerificationFailsWithTamperedRoots(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	log.Append([]byte("data"))
	signed := log.Sign()
	if len(signed.Roots) == 0 {
		t.Fatalf("expected at least one root")
	}
	signed.Roots[0][0] ^= 0xff
	if signed.Verify() {
		t.Fatalf("expected verification to fail with tampered roots")
	}
}

func TestLeafHashUsesDomainSeparation(t *testing.T) {
	data := []byte("block data")
	leaf := hashLeaf(data)
	plain := crypto.HashBytes(data)
	if leaf == plain {
		t.Fatalf("leaf hash collided with undifferentiated hash")
	}
}

func TestParentHashUsesDomainSeparation(t *testing.T) {
	child1 := crypto.Hash{1}
	child2 := crypto.Hash{2}
	parent := hashParent([]crypto.Hash{child1, child2})

	direct := crypto.HashBytes(append(append([]byte{}, child1[:]...), child2[:]...))
	if parent == direct {
		t.Fatalf("parent hash collided with undifferentiated concatenation hash")
	}
}

func TestSingleBlockHasOneRoot(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	log.Append([]byte("only block"))
	signed := log.Sign()
	if len(signed.Roots) != 1 {
		t.Fatalf("got %d roots, want 1", len(signed.Roots))
	}
}

func TestSixteenBlocksHaveOneRoot(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	for i := 0; i < 16; i++ {
		log.Append([]byte(fmt.Sprintf("block %d", i)))
	}
	signed := log.Sign()
	if len(signed.Roots) != 1 {
		t.Fatalf("got %d roots, want 1", len(signed.Roots))
	}
}

func TestSeventeenBlocksHaveTwoRoots(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	for i := 0; i < 17; i++ {
		log.Append([]byte(fmt.Sprintf("block %d", i)))
	}
	signed := log.Sign()
	if len(signed.Roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(signed.Roots))
	}
}

func TestProofVerifiesBlockMembership(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	for i := 0; i < 20; i++ {
		log.Append([]byte(fmt.Sprintf("block %d", i)))
	}
	signed := log.Sign()
	proof, ok := log.Proof(7)
	if !ok {
		t.Fatalf("expected proof for existing block")
	}
	if !signed.VerifyProof(7, []byte("block 7"), proof) {
		t.Fatalf("expected proof to verify")
	}
}

func TestProofRejectsWrongData(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	for i := 0; i < 20; i++ {
		log.Append([]byte(fmt.Sprintf("block %d", i)))
	}
	signed := log.Sign()
	proof, _ := log.Proof(7)
	if signed.VerifyProof(7, []byte("wrong data"), proof) {
		t.Fatalf("expected proof to reject wrong data")
	}
}

func TestProofRejectsWrongIndex(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	for i := 0; i < 20; i++ {
		log.Append([]byte(fmt.Sprintf("block %d", i)))
	}
	signed := log.Sign()
	proof, _ := log.Proof(7)
	if signed.VerifyProof(8, []byte("block 7"), proof) {
		t.Fatalf("expected proof to reject wrong index")
	}
}

func TestRootsBoundedByBranchingFactor(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	for i := 0; i < 1000; i++ {
		log.Append([]byte(fmt.Sprintf("block %d", i)))
	}
	signed := log.Sign()
	if len(signed.Roots) > branching {
		t.Fatalf("got %d roots, want <= %d", len(signed.Roots), branching)
	}
}

func TestSignedLogRoundTripsOnWire(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	for i := 0; i < 20; i++ {
		log.Append([]byte(fmt.Sprintf("block %d", i)))
	}
	signed := log.Sign()

	decoded, err := DecodeSignedLog(EncodeSignedLog(signed))
	if err != nil {
		t.Fatalf("DecodeSignedLog: %v", err)
	}
	if !decoded.Verify() {
		t.Fatalf("expected decoded signed log to verify")
	}
	if decoded.Author != signed.Author || decoded.Length != signed.Length {
		t.Fatalf("decoded fields mismatch")
	}
}

func TestProofRoundTripsOnWire(t *testing.T) {
	log := NewLog(mustKeyPair(t))
	for i := 0; i < 20; i++ {
		log.Append([]byte(fmt.Sprintf("block %d", i)))
	}
	signed := log.Sign()
	proof, _ := log.Proof(7)

	decoded, err := DecodeProof(EncodeProof(proof))
	if err != nil {
		t.Fatalf("DecodeProof: %v", err)
	}
	if !signed.VerifyProof(7, []byte("block 7"), decoded) {
		t.Fatalf("expected decoded proof to verify")
	}
}

func TestDecodeSignedLogRejectsShortBuffer(t *testing.T) {
	if _, err := DecodeSignedLog([]byte{1, 2, 3}); err != ErrShortBuffer {
		t.Fatalf("got %v, want ErrShortBuffer", err)
	}
}

func TestDecodeProofRejectsShortBuffer(t *testing.T) {
	if _, err := DecodeProof([]byte{1, 2, 3}); err != ErrShortBuffer {
		t.Fatalf("got %v, want ErrShortBuffer", err)
	}
}
