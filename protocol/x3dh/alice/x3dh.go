package alice

import (
	"github.com/cyph3rasi/Synapsis-sub003/crypto/dh25519"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/hkdf"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/memzero"
)

// https://signal.org/docs/specifications/x3dh/
// Terminology:
// - Alice: sender
// - Bob: receiver

// PerformKeyAgreement runs the sender side of X3DH against Bob's published
// bundle and returns the 32-byte session secret together with the ephemeral
// public key, which must travel with the first message so Bob can recompute
// the same secret. info domain-separates the derivation.
func PerformKeyAgreement(bob *BobPublicPrekeyBundle, aliceIdKey key25519.PrivateKey, info []byte) (sharedKey []byte, ephPubKey key25519.PublicKey, err error) {
	// 1. Alice verifies Bob's signature
	if err = bob.Verify(); err != nil {
		return nil, nil, err
	}

	// 2. Alice generates an ephemeral key pair
	ephKey, err := key25519.New()
	if err != nil {
		return nil, nil, err
	}
	alice := aliceKeyBundle{
		IdentityKey:  aliceIdKey,
		EphemeralKey: ephKey,
	}
	defer memzero.Zero(alice.EphemeralKey)

	ephPubKey, err = alice.EphemeralKey.Public()
	if err != nil {
		return nil, nil, err
	}

	// 3. Alice computes the shared secret
	dh1, err := dh25519.SharedSecret(alice.IdentityKey, bob.Prekey.Key)
	if err != nil {
		return nil, nil, err
	}
	defer memzero.Zero(dh1)
	dh2, err := dh25519.SharedSecret(alice.EphemeralKey, bob.IdentityKey)
	if err != nil {
		return nil, nil, err
	}
	defer memzero.Zero(dh2)
	dh3, err := dh25519.SharedSecret(alice.EphemeralKey, bob.Prekey.Key)
	if err != nil {
		return nil, nil, err
	}
	defer memzero.Zero(dh3)

	var dh4 []byte
	if bob.OneTimePrekey != nil {
		if dh4, err = dh25519.SharedSecret(alice.EphemeralKey, bob.OneTimePrekey.Key); err != nil {
			return nil, nil, err
		}
		defer memzero.Zero(dh4)
	}

	sk := make([]byte, 0, len(dh1)+len(dh2)+len(dh3)+len(dh4))
	sk = append(sk, dh1...)
	sk = append(sk, dh2...)
	sk = append(sk, dh3...)
	sk = append(sk, dh4...)
	defer memzero.Zero(sk)

	// 4. Alice derives the key
	sharedKey, err = hkdf.DeriveSecret(sk, info)
	if err != nil {
		return nil, nil, err
	}

	return sharedKey, ephPubKey, nil
}
