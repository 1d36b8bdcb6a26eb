package doubleratchet

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/memzero"
)

// State ref: https://signal.org/docs/specifications/doubleratchet/#state-variables
//
// One State exists per conversation per device pair. Every field is a byte
// buffer or an integer, so an external encrypted store can persist it via
// Marshal/UnmarshalState.
type State struct {
	// Dhs is the DH Ratchet key pair (the "sending" or "self" ratchet key),
	// replaced on every DH ratchet step
	Dhs key25519.Pair
	// Dhr is the last-known remote ratchet public key.
	// Not initialized at the beginning for the receiver.
	Dhr key25519.PublicKey
	// Rk is the 32-byte Root Key, overwritten on every root derivation
	Rk RatchetKey
	// Cks and Ckr are 32-byte Chain Keys for sending and receiving.
	// Cks is nil until this party has ratcheted as initiator of the sending
	// direction; Ckr is nil until a message arrived in the current chain.
	Cks, Ckr *RatchetKey
	// Ns and Nr are message numbers for sending and receiving
	Ns, Nr MsgIndex
	// Pn is the number of messages in the previous sending chain
	Pn MsgIndex
}

// clone deep-copies the state so a failed decrypt can discard every change.
func (s *State) clone() State {
	c := *s
	c.Dhs = key25519.Pair{
		Priv: key25519.PrivateKey(bytes.Clone(s.Dhs.Priv)),
		Pub:  key25519.PublicKey(bytes.Clone(s.Dhs.Pub)),
	}
	c.Dhr = key25519.PublicKey(bytes.Clone(s.Dhr))
	if s.Cks != nil {
		ck := *s.Cks
		c.Cks = &ck
	}
	if s.Ckr != nil {
		ck := *s.Ckr
		c.Ckr = &ck
	}
	return c
}

// Wipe erases all secret material. Call when the conversation is deleted.
func (s *State) Wipe() {
	memzero.Zero(s.Dhs.Priv)
	memzero.Zero(s.Rk[:])
	if s.Cks != nil {
		memzero.Zero(s.Cks[:])
		s.Cks = nil
	}
	if s.Ckr != nil {
		memzero.Zero(s.Ckr[:])
		s.Ckr = nil
	}
	s.Ns, s.Nr, s.Pn = 0, 0, 0
}

// StateVersion tags persisted ratchet state.
const StateVersion byte = 1

type persistedState struct {
	V       byte     `json:"v"`
	DhsPriv []byte   `json:"dhs_priv"`
	DhsPub  []byte   `json:"dhs_pub"`
	Dhr     []byte   `json:"dhr,omitempty"`
	Rk      []byte   `json:"rk"`
	Cks     []byte   `json:"cks,omitempty"`
	Ckr     []byte   `json:"ckr,omitempty"`
	Ns      MsgIndex `json:"ns"`
	Nr      MsgIndex `json:"nr"`
	Pn      MsgIndex `json:"pn"`
}

// Marshal serializes the state for an external encrypted store. The output
// contains raw secrets; the caller owns wrapping it in storage encryption.
func (s *State) Marshal() ([]byte, error) {
	p := persistedState{
		V:       StateVersion,
		DhsPriv: s.Dhs.Priv,
		DhsPub:  s.Dhs.Pub,
		Dhr:     s.Dhr,
		Rk:      s.Rk[:],
		Ns:      s.Ns,
		Nr:      s.Nr,
		Pn:      s.Pn,
	}
	if s.Cks != nil {
		p.Cks = s.Cks[:]
	}
	if s.Ckr != nil {
		p.Ckr = s.Ckr[:]
	}
	return json.Marshal(p)
}

// UnmarshalState restores a persisted state, rejecting unknown versions.
func UnmarshalState(data []byte) (*State, error) {
	var p persistedState
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if p.V != StateVersion {
		return nil, fmt.Errorf("%w: unsupported state version %d", ErrSerialization, p.V)
	}
	priv, err := key25519.ImportPrivate(p.DhsPriv)
	if err != nil {
		return nil, err
	}
	pub, err := key25519.ImportPublic(p.DhsPub)
	if err != nil {
		return nil, err
	}
	s := &State{
		Dhs: key25519.Pair{Priv: priv, Pub: pub},
		Ns:  p.Ns,
		Nr:  p.Nr,
		Pn:  p.Pn,
	}
	if p.Dhr != nil {
		if s.Dhr, err = key25519.ImportPublic(p.Dhr); err != nil {
			return nil, err
		}
	}
	if len(p.Rk) != len(s.Rk) {
		return nil, fmt.Errorf("%w: root key is %d bytes", ErrSerialization, len(p.Rk))
	}
	copy(s.Rk[:], p.Rk)
	if p.Cks != nil {
		if len(p.Cks) != len(s.Rk) {
			return nil, fmt.Errorf("%w: send chain key is %d bytes", ErrSerialization, len(p.Cks))
		}
		var ck RatchetKey
		copy(ck[:], p.Cks)
		s.Cks = &ck
	}
	if p.Ckr != nil {
		if len(p.Ckr) != len(s.Rk) {
			return nil, fmt.Errorf("%w: recv chain key is %d bytes", ErrSerialization, len(p.Ckr))
		}
		var ck RatchetKey
		copy(ck[:], p.Ckr)
		s.Ckr = &ck
	}
	return s, nil
}
