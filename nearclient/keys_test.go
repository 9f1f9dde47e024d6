package nearclient

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
)

func TestParseKeyPair(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	t.Run("test_1", func(t *testing.T) {
		// Full 64 byte private key, the near-cli export format.
		kp, err := ParseKeyPair("ed25519:" + base58.Encode(priv))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !kp.PublicKey.Equal(pub) {
			t.Fatalf("public key mismatch")
		}
		if kp.PublicKeyString() != "ed25519:"+base58.Encode(pub) {
			t.Fatalf("unexpected public key string %v", kp.PublicKeyString())
		}
	})

	t.Run("test_2", func(t *testing.T) {
		// Bare 32 byte seed.
		kp, err := ParseKeyPair("ed25519:" + base58.Encode(priv.Seed()))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !kp.PublicKey.Equal(pub) {
			t.Fatalf("public key mismatch")
		}
	})

	t.Run("test_3", func(t *testing.T) {
		if _, err := ParseKeyPair(base58.Encode(priv)); err == nil {
			t.Fatalf("expected error for missing prefix")
		}
		if _, err := ParseKeyPair("ed25519:0OIl"); err == nil {
			t.Fatalf("expected error for invalid base58")
		}
		if _, err := ParseKeyPair("ed25519:" + base58.Encode([]byte{1, 2, 3})); err == nil {
			t.Fatalf("expected error for short key")
		}
	})
}

func TestPublicKeyData(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	kp, err := ParseKeyPair("ed25519:" + base58.Encode(priv))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	data := kp.publicKeyData()
	for i := range data {
		if data[i] != kp.PublicKey[i] {
			t.Fatalf("byte %v mismatch", i)
		}
	}
}
