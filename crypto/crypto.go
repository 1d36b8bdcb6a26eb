package crypto

import "crypto/sha256"

var (
	DefaultHashFunc = sha256.New
)

const (
	// SecretSize is the byte length of every derived secret in the session core:
	// shared secrets, root keys, chain keys and message keys.
	SecretSize = 32
)
