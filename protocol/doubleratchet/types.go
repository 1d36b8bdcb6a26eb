package doubleratchet

import (
	"encoding/json"
	"fmt"

	"github.com/cyph3rasi/Synapsis-sub003/crypto/aead"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
)

type (
	MsgIndex   uint32
	MsgKey     [32]byte
	RatchetKey [32]byte
)

// MessageVersion tags the wire envelope. Unmarshalling rejects anything newer
// so a format change fails loudly instead of corrupting deserialization.
const MessageVersion byte = 1

// Header travels with every ciphertext. It is never secret, but it is bound
// into the AEAD associated data, so tampering with any field fails the tag.
type Header struct {
	// RatchetPub is the sender's current ratchet public key, raw encoding.
	RatchetPub key25519.PublicKey `json:"dh"`
	// Pn is the number of messages in previous chain
	Pn MsgIndex `json:"pn"`
	// N is the message number
	N MsgIndex `json:"n"`
}

func (h *Header) Marshal() ([]byte, error) {
	return json.Marshal(h)
}

func (h *Header) Equals(other *Header) bool {
	if h == nil || other == nil {
		return false
	}
	return h.RatchetPub.Equals(other.RatchetPub) && h.Pn == other.Pn && h.N == other.N
}

// Message is the only artifact that crosses the trust boundary to the
// transport layer: header, ciphertext and the per-message IV.
type Message struct {
	Version    byte   `json:"v"`
	Header     Header `json:"header"`
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
}

func (m *Message) Marshal() ([]byte, error) {
	m.Version = MessageVersion
	return json.Marshal(m)
}

// Validate checks the envelope's version and field shapes. It must run on
// every inbound message, whether it arrived as a bare envelope or embedded in
// a larger frame. The ratchet public key is validated later, on use.
func (m *Message) Validate() error {
	if m.Version != MessageVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrSerialization, m.Version)
	}
	if len(m.IV) != aead.NonceSize {
		return fmt.Errorf("%w: iv is %d bytes, want %d", ErrSerialization, len(m.IV), aead.NonceSize)
	}
	if len(m.Ciphertext) < aead.TagSize {
		return fmt.Errorf("%w: ciphertext shorter than its tag", ErrSerialization)
	}
	return nil
}

// UnmarshalMessage parses and validates a wire envelope.
func UnmarshalMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
