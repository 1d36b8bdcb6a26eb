package dh25519

import (
	"errors"

	"github.com/cyph3rasi/Synapsis-sub003/crypto"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
)

var (
	ErrInvalid             = errors.New("invalid input")
	ErrInvalidSecretLength = errors.New("invalid secret length")
)

// SharedSecret returns the fixed 32-byte Diffie-Hellman output between a
// private scalar and a public point. Constant-time behaviour is delegated to
// the underlying curve implementation.
func SharedSecret(privKey key25519.PrivateKey, pubKey key25519.PublicKey) ([]byte, error) {
	if privKey == nil || pubKey == nil {
		return nil, ErrInvalid
	}
	privScalar, err := privKey.ToScalar()
	if err != nil {
		return nil, err
	}
	pubPoint, err := pubKey.ToPoint()
	if err != nil {
		return nil, err
	}
	secretPoint := key25519.Suite.Point().Mul(privScalar, pubPoint)
	secret, err := secretPoint.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if len(secret) != crypto.SecretSize {
		return nil, ErrInvalidSecretLength
	}
	return secret, nil
}
