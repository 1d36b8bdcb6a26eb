package common

import (
	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/doubleratchet"
)

// MessageBundle is the JSON frame the relay routes between users. The relay
// never sees plaintext; Message is the session core's sealed envelope.
// Both parties derive the associated data locally from the two identity keys,
// so it never travels with the bundle.
type MessageBundle struct {
	From      string                `json:"from" validate:"required"`
	To        string                `json:"to" validate:"required"`
	Message   doubleratchet.Message `json:"message" validate:"required"`
	Handshake *X3DHHandshakeBundle  `json:"handshake,omitempty"`
}

// X3DHHandshakeBundle is sent with the sender's first message so the receiver
// can recompute the session secret.
type X3DHHandshakeBundle struct {
	EphPubKey       key25519.PublicKey `json:"eph_pub_key" validate:"required"`
	OneTimePrekeyID *uint32            `json:"one_time_prekey_id,omitempty"`
}
