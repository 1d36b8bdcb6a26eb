package bob

import (
	"errors"
	"fmt"

	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/signer"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/alice"
)

var (
	// ErrMissingPrekey is returned when Alice consumed a one-time prekey that
	// this bundle no longer holds.
	ErrMissingPrekey = errors.New("one-time prekey expected but missing from bundle")
)

// BobPrekeyBundle is Bob's private key material: long-term identity key,
// medium-term signed prekey and an optional one-time prekey. The one-time
// prekey must be deleted by the owner once a handshake consumed it; the core
// only uses whatever it is handed.
type BobPrekeyBundle struct {
	IdentityKey     key25519.PrivateKey
	Prekey          key25519.PrivateKey
	PrekeyID        uint32
	OneTimePrekey   *key25519.PrivateKey // optional
	OneTimePrekeyID uint32
}

// ReceivedAliceKeyBundle holds the public halves Alice sends with her first
// message.
type ReceivedAliceKeyBundle struct {
	IdentityKey  key25519.PublicKey
	EphemeralKey key25519.PublicKey
	// OneTimePrekeyID names the one-time prekey Alice's derivation consumed,
	// nil when her DH chain stopped at DH3.
	OneTimePrekeyID *uint32
}

// ToPublicBundle derives the publishable counterpart of the private bundle,
// signing the prekey with the identity key.
func (bob *BobPrekeyBundle) ToPublicBundle() (alice.BobPublicPrekeyBundle, error) {
	identityKeyPub, err := bob.IdentityKey.Public()
	if err != nil {
		return alice.BobPublicPrekeyBundle{}, fmt.Errorf("failed to get public identity key: %w", err)
	}

	prekeyPub, err := bob.Prekey.Public()
	if err != nil {
		return alice.BobPublicPrekeyBundle{}, fmt.Errorf("failed to get public prekey: %w", err)
	}

	var oneTimePrekeyPub *alice.PreKeyBundle
	if bob.OneTimePrekey != nil {
		pub, err := bob.OneTimePrekey.Public()
		if err != nil {
			return alice.BobPublicPrekeyBundle{}, fmt.Errorf("failed to get public one-time prekey: %w", err)
		}
		oneTimePrekeyPub = &alice.PreKeyBundle{ID: bob.OneTimePrekeyID, Key: pub}
	}

	prekeySig, err := signer.Sign(bob.IdentityKey, prekeyPub)
	if err != nil {
		return alice.BobPublicPrekeyBundle{}, fmt.Errorf("failed to sign prekey: %w", err)
	}

	return alice.BobPublicPrekeyBundle{
		IdentityKey:   identityKeyPub,
		Prekey:        alice.PreKeyBundle{ID: bob.PrekeyID, Key: prekeyPub, Signature: prekeySig},
		OneTimePrekey: oneTimePrekeyPub,
	}, nil
}
