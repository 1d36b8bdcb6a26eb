// Package key25519 holds the key-agreement key pairs used by the session core.
// Keys are scoped to Diffie-Hellman agreement; signing lives in crypto/signer.
package key25519

import (
	"bytes"
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"
)

const (
	// KeySize is the byte length of both the raw public and private encodings.
	KeySize = 32
)

var (
	Suite = suites.MustFind("Ed25519") // Use the edwards25519-curve

	ErrInvalidKeyMaterial = errors.New("invalid key material")
)

type (
	// PrivateKey is a 32-byte private scalar.
	PrivateKey []byte
	// PublicKey is a 32-byte public point.
	PublicKey []byte
	Pair      struct {
		Priv PrivateKey
		Pub  PublicKey
	}
)

// New generates a fresh private key from the suite's random stream.
func New() (PrivateKey, error) {
	privK := Suite.Scalar().Pick(Suite.RandomStream())
	return privK.MarshalBinary()
}

// NewPair generates a fresh key pair.
func NewPair() (*Pair, error) {
	priv, err := New()
	if err != nil {
		return nil, err
	}
	pub, err := priv.Public()
	if err != nil {
		return nil, err
	}
	return &Pair{Priv: priv, Pub: pub}, nil
}

// ImportPublic validates bytes as a curve point and returns it as a PublicKey.
// Malformed or wrong-length input is rejected, never coerced.
func ImportPublic(b []byte) (PublicKey, error) {
	if len(b) != KeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes, want %d", ErrInvalidKeyMaterial, len(b), KeySize)
	}
	pub := PublicKey(bytes.Clone(b))
	point, err := pub.ToPoint()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	// The curve accepts some out-of-range encodings by reducing them; the
	// round trip catches the coercion.
	canonical, err := point.MarshalBinary()
	if err != nil || !bytes.Equal(canonical, pub) {
		return nil, fmt.Errorf("%w: non-canonical point encoding", ErrInvalidKeyMaterial)
	}
	return pub, nil
}

// ImportPrivate validates bytes as a scalar and returns it as a PrivateKey.
func ImportPrivate(b []byte) (PrivateKey, error) {
	if len(b) != KeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes, want %d", ErrInvalidKeyMaterial, len(b), KeySize)
	}
	priv := PrivateKey(bytes.Clone(b))
	scalar, err := priv.ToScalar()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	// Unmarshalling reduces out-of-range scalars mod the group order instead
	// of failing; the round trip catches the coercion.
	canonical, err := scalar.MarshalBinary()
	if err != nil || !bytes.Equal(canonical, priv) {
		return nil, fmt.Errorf("%w: non-canonical scalar", ErrInvalidKeyMaterial)
	}
	return priv, nil
}

func (privB PrivateKey) Public() (PublicKey, error) {
	privK, err := privB.ToScalar()
	if err != nil {
		return nil, err
	}
	pubK := Suite.Point().Mul(privK, nil)
	return pubK.MarshalBinary()
}

func (privB PrivateKey) ToScalar() (kyber.Scalar, error) {
	privK := Suite.Scalar()
	if err := privK.UnmarshalBinary(privB); err != nil {
		return nil, err
	}
	return privK, nil
}

func (pubB PublicKey) ToPoint() (kyber.Point, error) {
	pubK := Suite.Point()
	if err := pubK.UnmarshalBinary(pubB); err != nil {
		return nil, err
	}
	return pubK, nil
}

// Export returns the canonical raw encoding. The same bytes are used on the
// wire and for equality comparisons between header keys and stored keys.
func (pubB PublicKey) Export() []byte {
	return bytes.Clone(pubB)
}

func (pubB PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(pubB, other)
}
