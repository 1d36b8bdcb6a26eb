package memzero

import "crypto/subtle"

// Zero overwrites b with zeros. Secret buffers are wiped after their last use
// so key material does not outlive the derivation that consumed it.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}
