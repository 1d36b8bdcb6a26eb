// Package doubleratchet implements the self-healing symmetric-key ratchet that
// protects a conversation after X3DH agreed on its first secret.
//
// Delivery order is a precondition: the core performs exactly one symmetric
// ratchet step per decrypt and keeps no skipped-message keys, so the transport
// must hand over each conversation's messages in sending order. The relay in
// this repository guarantees that with per-conversation FIFO queues.
package doubleratchet

import (
	"bytes"
	"sync"

	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/memzero"
)

// https://signal.org/docs/specifications/doubleratchet/#encrypting-messages and
// https://signal.org/docs/specifications/doubleratchet/#decrypting-messages
//
// DoubleRatchet owns the State of exactly one conversation. Ratchet
// steps are not commutative, so all operations are serialized by an internal
// mutex; distinct conversations run fully in parallel.
type DoubleRatchet struct {
	mu     sync.Mutex
	state  State
	crypto ratchetCrypto
}

func newDoubleRatchet(st State) *DoubleRatchet {
	return &DoubleRatchet{
		state:  st,
		crypto: newRatchetCrypto(),
	}
}

// InitSender initializes the ratchet for the party that ran the sender side of
// X3DH. It performs the first send-direction DH ratchet step against the
// remote ratchet public key, so the session can encrypt immediately.
func InitSender(sk RatchetKey, remoteRatchetPub key25519.PublicKey) (*DoubleRatchet, error) {
	c := newRatchetCrypto()

	dhs, err := c.generateDH()
	if err != nil {
		return nil, err
	}

	dhOut, err := c.dh(dhs.Priv, remoteRatchetPub)
	if err != nil {
		return nil, err
	}
	rk, cks, err := c.kdfRoot(sk, *dhOut)
	memzero.Zero(dhOut[:])
	if err != nil {
		return nil, err
	}

	dr := newDoubleRatchet(State{
		Dhs: *dhs,
		Dhr: remoteRatchetPub,
		Rk:  *rk,
		Cks: cks,
		// Ckr, Ns, Nr, Pn start as zero values
	})
	dr.crypto = c
	return dr, nil
}

// InitReceiver initializes the ratchet for the party whose prekey bundle was
// consumed. Both chains stay empty until the first inbound message triggers a
// DH ratchet step; encrypting before that returns ErrSendChainEmpty.
func InitReceiver(sk RatchetKey, dhPair key25519.Pair) *DoubleRatchet {
	return newDoubleRatchet(State{
		// The session owns its buffers: the ratchet key is wiped when a DH
		// ratchet step replaces it, and the caller's prekey pair must survive.
		Dhs: key25519.Pair{
			Priv: key25519.PrivateKey(bytes.Clone(dhPair.Priv)),
			Pub:  key25519.PublicKey(bytes.Clone(dhPair.Pub)),
		},
		Rk: sk,
		// Dhr, Cks, Ckr, Ns, Nr, Pn start as zero values
	})
}

// Resume restores a session from state previously written by MarshalState.
func Resume(data []byte) (*DoubleRatchet, error) {
	st, err := UnmarshalState(data)
	if err != nil {
		return nil, err
	}
	return newDoubleRatchet(*st), nil
}

// Encrypt performs one symmetric-key ratchet step on the sending chain and
// AEAD-encrypts plaintext with the derived message key. associatedData is
// prepended to the header bytes to form the AEAD associated data.
func (dr *DoubleRatchet) Encrypt(plaintext, associatedData []byte) (*Message, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if dr.state.Cks == nil {
		return nil, ErrSendChainEmpty
	}

	// 1. Advance the sending chain
	nextCk, mk, err := dr.crypto.kdfChain(*dr.state.Cks)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(mk[:])

	// 2. Build the header for the current position
	header := Header{
		RatchetPub: dr.state.Dhs.Pub.Export(),
		Pn:         dr.state.Pn,
		N:          dr.state.Ns,
	}

	// 3. Encrypt with the header bound as associated data
	ad, err := dr.crypto.concat(associatedData, header)
	if err != nil {
		return nil, err
	}
	ciphertext, iv, err := dr.crypto.encrypt(*mk, plaintext, ad)
	if err != nil {
		return nil, err
	}

	// 4. Commit: the old chain key is gone for good
	memzero.Zero(dr.state.Cks[:])
	dr.state.Cks = nextCk
	dr.state.Ns++

	return &Message{
		Version:    MessageVersion,
		Header:     header,
		Ciphertext: ciphertext,
		IV:         iv,
	}, nil
}

// Decrypt verifies and decrypts a message. When the header carries a ratchet
// public key that differs from the last-known remote key, a full DH ratchet
// step rotates the root and both chain keys first.
//
// All work happens on a copy of the state; the live state advances only after
// the authentication tag verified. A tampered or corrupted message therefore
// returns ErrDecryptionFailed and leaves the session exactly as it was.
func (dr *DoubleRatchet) Decrypt(msg *Message, associatedData []byte) ([]byte, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	remotePub, err := key25519.ImportPublic(msg.Header.RatchetPub)
	if err != nil {
		return nil, err
	}

	newState := dr.state.clone()

	// 1. New remote ratchet key: rotate root and chain keys before deriving
	if newState.Dhr == nil || !remotePub.Equals(newState.Dhr) {
		if err := dr.dhRatchet(&newState, remotePub); err != nil {
			return nil, err
		}
	}
	if newState.Ckr == nil {
		return nil, ErrRecvChainEmpty
	}

	// 2. Advance the receiving chain to get the message key
	nextCk, mk, err := dr.crypto.kdfChain(*newState.Ckr)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(mk[:])

	// 3. Decrypt with the header bound as associated data
	ad, err := dr.crypto.concat(associatedData, msg.Header)
	if err != nil {
		return nil, err
	}
	plaintext, err := dr.crypto.decrypt(*mk, msg.Ciphertext, msg.IV, ad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	// 4. Tag verified: commit the advanced state. The clone owns distinct
	// buffers, so the superseded secrets are wiped before the swap.
	memzero.Zero(newState.Ckr[:])
	newState.Ckr = nextCk
	newState.Nr++
	memzero.Zero(dr.state.Dhs.Priv)
	if dr.state.Cks != nil {
		memzero.Zero(dr.state.Cks[:])
	}
	if dr.state.Ckr != nil {
		memzero.Zero(dr.state.Ckr[:])
	}
	dr.state = newState

	return plaintext, nil
}

// dhRatchet performs the full rotation triggered by a new remote ratchet key:
// a receive-direction root step with the current local key, counter
// bookkeeping, a fresh local key pair, a send-direction root step, and finally
// adoption of the new remote key.
func (dr *DoubleRatchet) dhRatchet(st *State, remotePub key25519.PublicKey) error {
	dhOut, err := dr.crypto.dh(st.Dhs.Priv, remotePub)
	if err != nil {
		return err
	}
	rk, ckr, err := dr.crypto.kdfRoot(st.Rk, *dhOut)
	memzero.Zero(dhOut[:])
	if err != nil {
		return err
	}

	st.Pn = st.Ns
	st.Ns = 0
	st.Nr = 0

	dhs, err := dr.crypto.generateDH()
	if err != nil {
		return err
	}
	memzero.Zero(st.Dhs.Priv)
	st.Dhs = *dhs

	dhOut, err = dr.crypto.dh(st.Dhs.Priv, remotePub)
	if err != nil {
		return err
	}
	newRk, cks, err := dr.crypto.kdfRoot(*rk, *dhOut)
	memzero.Zero(dhOut[:])
	memzero.Zero(rk[:])
	if err != nil {
		return err
	}

	st.Rk = *newRk
	if st.Ckr != nil {
		memzero.Zero(st.Ckr[:])
	}
	st.Ckr = ckr
	if st.Cks != nil {
		memzero.Zero(st.Cks[:])
	}
	st.Cks = cks
	st.Dhr = remotePub
	return nil
}

// PublicKey returns the session's current ratchet public key.
func (dr *DoubleRatchet) PublicKey() key25519.PublicKey {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.state.Dhs.Pub.Export()
}

// RemotePublicKey returns the last-known remote ratchet key, nil before the
// first inbound message on a receiver-initialised session.
func (dr *DoubleRatchet) RemotePublicKey() key25519.PublicKey {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	if dr.state.Dhr == nil {
		return nil
	}
	return dr.state.Dhr.Export()
}

// MarshalState snapshots the session for an external encrypted store.
func (dr *DoubleRatchet) MarshalState() ([]byte, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.state.Marshal()
}

// Wipe securely erases the session's secrets. The session is unusable after.
func (dr *DoubleRatchet) Wipe() {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	dr.state.Wipe()
}
