package doubleratchet

import (
	"github.com/cyph3rasi/Synapsis-sub003/crypto"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/aead"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/dh25519"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/hkdf"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/memzero"
)

var (
	// Domain-separation constants. The root and chain derivations must never
	// collide, and within the chain the message key and the next chain key
	// use distinct constants so neither reveals the other.
	hkdfInfoRootKey  = []byte("SynapsisRootKey")
	kdfChainMsgByte  = []byte{0x01}
	kdfChainNextByte = []byte{0x02}
)

// ratchetCrypto supplies the external functions of
// https://signal.org/docs/specifications/doubleratchet/#external-functions.
// Each session owns its provider; there is no package-global instance.
type ratchetCrypto interface {
	// generateDH returns a new Diffie-Hellman key pair
	generateDH() (*key25519.Pair, error)

	// dh returns the output from the Diffie-Hellman calculation
	dh(privKey key25519.PrivateKey, pubKey key25519.PublicKey) (*RatchetKey, error)

	// kdfRoot returns a pair (32-byte root key, 32-byte chain key) as the output
	// of a single KDF keyed by root key rk over a Diffie-Hellman output dhOut.
	kdfRoot(rk RatchetKey, dhOut RatchetKey) (rootKey *RatchetKey, chainKey *RatchetKey, err error)

	// kdfChain returns a pair (32-byte next chain key, 32-byte message key)
	// from the current chain key. One-way: neither output reveals ck.
	kdfChain(ck RatchetKey) (chainKey *RatchetKey, messageKey *MsgKey, err error)

	// encrypt returns the AEAD encryption of plaintext with message key mk,
	// plus the fresh random IV it used
	encrypt(mk MsgKey, plaintext, associatedData []byte) (ciphertext, iv []byte, err error)

	// decrypt returns the AEAD decryption of ciphertext with message key mk
	decrypt(mk MsgKey, ciphertext, iv, associatedData []byte) (plaintext []byte, err error)

	// concat encodes a message header into a parseable byte sequence, prepending ad
	concat(ad []byte, header Header) ([]byte, error)
}

type ratchetCryptoImpl struct{}

func newRatchetCrypto() ratchetCrypto {
	return &ratchetCryptoImpl{}
}

func (rc *ratchetCryptoImpl) generateDH() (*key25519.Pair, error) {
	return key25519.NewPair()
}

func (rc *ratchetCryptoImpl) dh(privKey key25519.PrivateKey, pubKey key25519.PublicKey) (*RatchetKey, error) {
	secret, err := dh25519.SharedSecret(privKey, pubKey)
	if err != nil {
		return nil, err
	}
	var out RatchetKey
	copy(out[:], secret)
	memzero.Zero(secret)
	return &out, nil
}

func (rc *ratchetCryptoImpl) kdfRoot(rk RatchetKey, dhOut RatchetKey) (*RatchetKey, *RatchetKey, error) {
	buffer := make([]byte, 64)
	if n, err := hkdf.Derive(crypto.DefaultHashFunc, dhOut[:], rk[:], hkdfInfoRootKey, buffer); err != nil {
		return nil, nil, err
	} else if n != 64 {
		return nil, nil, ErrInvalidSecretLength
	}
	var rootKey, chainKey RatchetKey
	copy(rootKey[:], buffer[:32])
	copy(chainKey[:], buffer[32:])
	memzero.Zero(buffer)
	return &rootKey, &chainKey, nil
}

func (rc *ratchetCryptoImpl) kdfChain(ck RatchetKey) (*RatchetKey, *MsgKey, error) {
	var messageKey MsgKey
	if n, err := hkdf.Expand(ck[:], kdfChainMsgByte, messageKey[:]); err != nil {
		return nil, nil, err
	} else if n != len(messageKey) {
		return nil, nil, ErrInvalidSecretLength
	}
	var chainKey RatchetKey
	if n, err := hkdf.Expand(ck[:], kdfChainNextByte, chainKey[:]); err != nil {
		return nil, nil, err
	} else if n != len(chainKey) {
		return nil, nil, ErrInvalidSecretLength
	}
	return &chainKey, &messageKey, nil
}

func (rc *ratchetCryptoImpl) encrypt(mk MsgKey, plaintext, associatedData []byte) ([]byte, []byte, error) {
	return aead.Seal(mk[:], plaintext, associatedData)
}

func (rc *ratchetCryptoImpl) decrypt(mk MsgKey, ciphertext, iv, associatedData []byte) ([]byte, error) {
	return aead.Open(mk[:], ciphertext, iv, associatedData)
}

func (rc *ratchetCryptoImpl) concat(ad []byte, header Header) ([]byte, error) {
	headerBytes, err := header.Marshal()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ad)+len(headerBytes))
	out = append(out, ad...)
	return append(out, headerBytes...), nil
}
