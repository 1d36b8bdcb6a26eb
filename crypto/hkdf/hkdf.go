package hkdf

import (
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/cyph3rasi/Synapsis-sub003/crypto"
)

// Derive runs a full HKDF extract-and-expand over ikm and fills buffer.
// info is a domain-separation string; two calls with different info values
// over the same ikm are computationally unrelated.
func Derive(hash func() hash.Hash, ikm, salt, info, buffer []byte) (int, error) {
	hkdfReader := hkdf.New(hash, ikm, salt, info)
	return io.ReadFull(hkdfReader, buffer)
}

// DeriveSecret derives a 32-byte key from ikm with a zero salt.
func DeriveSecret(ikm, info []byte) ([]byte, error) {
	key := make([]byte, crypto.SecretSize)
	if _, err := Derive(crypto.DefaultHashFunc, ikm, nil, info, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Expand runs HKDF-expand only, treating prk as an already-uniform key.
// Used by the symmetric ratchet, which feeds it chain keys.
func Expand(prk, info, buffer []byte) (int, error) {
	hkdfReader := hkdf.Expand(crypto.DefaultHashFunc, prk, info)
	return io.ReadFull(hkdfReader, buffer)
}
