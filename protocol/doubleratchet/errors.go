package doubleratchet

import "errors"

var (
	// ErrDecryptionFailed covers every authentication failure. It is
	// deliberately generic; callers learn nothing about which field broke.
	ErrDecryptionFailed = errors.New("decryption failed")

	ErrInvalidSecretLength = errors.New("invalid secret length")

	// ErrSendChainEmpty is returned when a receiver-initialised session tries
	// to encrypt before its first inbound message has seeded the chains.
	ErrSendChainEmpty = errors.New("sending chain not initialised")
	ErrRecvChainEmpty = errors.New("receiving chain not initialised")

	ErrSerialization = errors.New("malformed envelope")
)
