package bob

import (
	"github.com/cyph3rasi/Synapsis-sub003/crypto/dh25519"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/hkdf"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/memzero"
)

// https://signal.org/docs/specifications/x3dh/
// Terminology:
// - Alice: sender
// - Bob: receiver

// PerformKeyAgreement runs the receiver side of X3DH. Given matching inputs it
// yields the byte-identical secret to the sender's derivation; that equality
// is the correctness property of the whole handshake.
func PerformKeyAgreement(bob *BobPrekeyBundle, alice *ReceivedAliceKeyBundle, info []byte) (key []byte, err error) {
	// 1. Bob recomputes the DH legs with the key roles swapped
	dh1, err := dh25519.SharedSecret(bob.Prekey, alice.IdentityKey)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(dh1)
	dh2, err := dh25519.SharedSecret(bob.IdentityKey, alice.EphemeralKey)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(dh2)
	dh3, err := dh25519.SharedSecret(bob.Prekey, alice.EphemeralKey)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(dh3)

	var dh4 []byte
	if alice.OneTimePrekeyID != nil {
		if bob.OneTimePrekey == nil || bob.OneTimePrekeyID != *alice.OneTimePrekeyID {
			return nil, ErrMissingPrekey
		}
		if dh4, err = dh25519.SharedSecret(*bob.OneTimePrekey, alice.EphemeralKey); err != nil {
			return nil, err
		}
		defer memzero.Zero(dh4)
	}

	sk := make([]byte, 0, len(dh1)+len(dh2)+len(dh3)+len(dh4))
	sk = append(sk, dh1...)
	sk = append(sk, dh2...)
	sk = append(sk, dh3...)
	sk = append(sk, dh4...)
	defer memzero.Zero(sk)

	// 2. Bob derives the key
	return hkdf.DeriveSecret(sk, info)
}
