package crypto

import "testing"

func TestSignAndVerify(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	message := []byte("hello world")
	sig := kp.Sign(message)
	if !Verify(kp.Public, message, sig) {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	sig := kp.Sign([]byte("hello world"))
	if Verify(kp.Public, []byte("wrong message"), sig) {
		t.Fatalf("expected verification to fail for wrong message")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	a, _ := Generate()
	b, _ := Generate()
	sig := a.Sign([]byte("hello world"))
	if Verify(b.Public, []byte("hello world"), sig) {
		t.Fatalf("expected verification to fail for wrong key")
	}
}

func TestECDHProducesSameSharedSecret(t *testing.T) {
	alice, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	bob, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	sharedA, err := alice.ECDH(bob.Public)
	if err != nil {
		t.Fatalf("alice ECDH: %v", err)
	}
	sharedB, err := bob.ECDH(alice.Public)
	if err != nil {
		t.Fatalf("bob ECDH: %v", err)
	}
	if sharedA != sharedB {
		t.Fatalf("shared secrets diverged: %x vs %x", sharedA, sharedB)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	a := HashBytes([]byte("hello world"))
	b := HashBytes([]byte("hello world"))
	if a != b {
		t.Fatalf("expected equal hashes")
	}
}

func TestHashDiffersForDifferentInput(t *testing.T) {
	a := HashBytes([]byte("hello world"))
	b := HashBytes([]byte("hello world!"))
	if a == b {
		t.Fatalf("expected different hashes")
	}
}

func TestSealAndOpen(t *testing.T) {
	alice, _ := Generate()
	bob, _ := Generate()
	shared, err := alice.ECDH(bob.Public)
	if err != nil {
		t.Fatalf("ECDH: %v", err)
	}
	message := []byte("secret message")
	payload, err := shared.Seal(message)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	plain, err := shared.Open(payload)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(plain) != string(message) {
		t.Fatalf("got %q, want %q", plain, message)
	}
}

func TestOpenFailsWithWrongKey(t *testing.T) {
	alice, _ := Generate()
	bob, _ := Generate()
	eve, _ := Generate()
	sharedAB, err := alice.ECDH(bob.Public)
	if err != nil {
		t.Fatalf("ECDH: %v", err)
	}
	sharedAE, err := alice.ECDH(eve.Public)
	if err != nil {
		t.Fatalf("ECDH: %v", err)
	}
	payload, err := sharedAB.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := sharedAE.Open(payload); err == nil {
		t.Fatalf("expected decrypt to fail with wrong key")
	}
}

func TestOpenFailsWithTamperedCiphertext(t *testing.T) {
	alice, _ := Generate()
	bob, _ := Generate()
	shared, err := alice.ECDH(bob.Public)
	if err != nil {
		t.Fatalf("ECDH: %v", err)
	}
	payload, err := shared.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	payload[len(payload)-1] ^= 0xff
	if _, err := shared.Open(payload); err == nil {
		t.Fatalf("expected decrypt to fail with tampered ciphertext")
	}
}

func TestLessIsByteLexicographic(t *testing.T) {
	a := AuthorID{0x00}
	b := AuthorID{0xFF}
	if !Less(a, b) {
		t.Fatalf("expected 0x00... < 0xFF...")
	}
	if Less(b, a) {
		t.Fatalf("expected 0xFF... not < 0x00...")
	}
	if Less(a, a) {
		t.Fatalf("expected equal ids not to be Less")
	}
}
