package nearclient

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const ed25519Prefix = "ed25519:"

// KeyPair holds the ed25519 key the faucet signs transactions with.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// ParseKeyPair parses a NEAR encoded private key of the form
// "ed25519:<base58>". The base58 payload is the 64 byte expanded private key
// as exported by near-cli; a bare 32 byte seed is accepted as well.
func ParseKeyPair(encoded string) (*KeyPair, error) {
	if !strings.HasPrefix(encoded, ed25519Prefix) {
		return nil, fmt.Errorf("unsupported key type, expect %v prefix", ed25519Prefix)
	}

	raw, err := base58.Decode(strings.TrimPrefix(encoded, ed25519Prefix))
	if err != nil {
		return nil, fmt.Errorf("invalid base58 in private key: %v", err)
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("invalid private key length %v", len(raw))
	}

	return &KeyPair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, nil
}

// PublicKeyString returns the public key in the "ed25519:<base58>" encoding
// expected by the RPC interface.
func (k *KeyPair) PublicKeyString() string {
	return ed25519Prefix + base58.Encode(k.PublicKey)
}

// publicKeyData returns the raw 32 public key bytes for borsh serialization.
func (k *KeyPair) publicKeyData() [32]byte {
	var data [32]byte
	copy(data[:], k.PublicKey)
	return data
}
