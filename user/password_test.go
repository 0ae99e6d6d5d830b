package user

import (
	"testing"
)

func TestHashPasswordAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}

	verifier := BcryptVerifier{}
	if !verifier.Verify(hash, "correct horse battery staple") {
		t.Error("correct password must verify")
	}
	if verifier.Verify(hash, "wrong password") {
		t.Error("wrong password must not verify")
	}
}

func TestVerify_GarbageHash(t *testing.T) {
	if (BcryptVerifier{}).Verify("not-a-bcrypt-hash", "password") {
		t.Error("garbage hash must not verify")
	}
}
