// Package aead provides the authenticated encryption used for every ratchet
// message: AES-256-GCM with a random 96-bit nonce and a 128-bit tag.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

const (
	KeySize = 32
	// NonceSize is the 96-bit IV length. A fresh nonce is drawn per call and
	// never reused under the same key; message keys are single-use anyway.
	NonceSize = 12
	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

var (
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidKeySize   = errors.New("invalid key size")
)

// Seal encrypts plaintext under key, authenticating associatedData alongside.
// It returns the ciphertext (tag appended) and the random IV used.
func Seal(key, plaintext, associatedData []byte) (ciphertext, iv []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, iv, plaintext, associatedData), iv, nil
}

// Open decrypts ciphertext and verifies the tag over ciphertext and
// associatedData. It fails closed: any mismatch yields the same generic
// ErrDecryptionFailed with no indication of which byte or field broke.
func Open(key, ciphertext, iv, associatedData []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != NonceSize {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := aead.Open(nil, iv, ciphertext, associatedData)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
