package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
)

func TestSignAndVerify(t *testing.T) {
	pair, err := key25519.NewPair()
	assert.NoError(t, err)

	tests := []struct {
		name string
		msg  []byte
	}{
		{"Valid message", []byte("test message")},
		{"Empty message", []byte("")},
		{"Another valid message", []byte("another test message")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Sign(pair.Priv, tt.msg)
			assert.NoError(t, err)
			assert.NotNil(t, sig)

			err = Verify(pair.Pub, tt.msg, sig)
			assert.NoError(t, err)

			// Wrong message must not verify
			err = Verify(pair.Pub, []byte("wrong message"), sig)
			assert.Error(t, err)

			// Signature from a different message must not verify
			wrongSig, _ := Sign(pair.Priv, []byte("wrong message"))
			err = Verify(pair.Pub, tt.msg, wrongSig)
			assert.Error(t, err)
		})
	}
}

func TestVerifyWrongKey(t *testing.T) {
	pair, err := key25519.NewPair()
	assert.NoError(t, err)
	other, err := key25519.NewPair()
	assert.NoError(t, err)

	sig, err := Sign(pair.Priv, []byte("bundle prekey"))
	assert.NoError(t, err)
	assert.Error(t, Verify(other.Pub, []byte("bundle prekey"), sig))
}
