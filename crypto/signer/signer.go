// Package signer provides Schnorr signatures over the suite's curve,
// used to prove signed-prekey provenance in published bundles.
package signer

import (
	"go.dedis.ch/kyber/v4/sign/schnorr"

	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
)

func Sign(privKey key25519.PrivateKey, msg []byte) ([]byte, error) {
	privScalar, err := privKey.ToScalar()
	if err != nil {
		return nil, err
	}
	return schnorr.Sign(key25519.Suite, privScalar, msg)
}

func Verify(pubKey key25519.PublicKey, msg, sig []byte) error {
	pubPoint, err := pubKey.ToPoint()
	if err != nil {
		return err
	}
	return schnorr.Verify(key25519.Suite, pubPoint, msg, sig)
}
