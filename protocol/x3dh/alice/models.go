package alice

import (
	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/signer"
)

// PreKeyBundle is one published prekey: its directory id, the raw public key
// and, for signed prekeys, a detached signature proving provenance.
type PreKeyBundle struct {
	ID        uint32             `json:"id"`
	Key       key25519.PublicKey `json:"key"`
	Signature []byte             `json:"signature,omitempty"`
}

// BobPublicPrekeyBundle is the published bundle Alice fetches before she can
// open a session with an offline Bob. Immutable once published; the one-time
// prekey, when present, is consumed at most once and deleted by its owner.
type BobPublicPrekeyBundle struct {
	IdentityKey   key25519.PublicKey `json:"identity_key"`
	Prekey        PreKeyBundle       `json:"prekey"`
	OneTimePrekey *PreKeyBundle      `json:"one_time_prekey,omitempty"`
}

type aliceKeyBundle struct {
	IdentityKey  key25519.PrivateKey
	EphemeralKey key25519.PrivateKey
}

// Verify checks the signed prekey's provenance against the bundle's identity key.
func (bob *BobPublicPrekeyBundle) Verify() error {
	return signer.Verify(bob.IdentityKey, bob.Prekey.Key, bob.Prekey.Signature)
}
