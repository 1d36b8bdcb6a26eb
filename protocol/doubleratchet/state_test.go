package doubleratchet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	aliceRatchet, bobRatchet := newSessionPair(t)

	// Advance past the initial state so every field carries real data
	msg, err := aliceRatchet.Encrypt([]byte("before snapshot"), nil)
	require.NoError(t, err)
	_, err = bobRatchet.Decrypt(msg, nil)
	require.NoError(t, err)

	data, err := bobRatchet.MarshalState()
	require.NoError(t, err)

	restored, err := UnmarshalState(data)
	require.NoError(t, err)
	assert.Equal(t, bobRatchet.state.Dhs.Pub, restored.Dhs.Pub)
	assert.Equal(t, bobRatchet.state.Dhr, restored.Dhr)
	assert.Equal(t, bobRatchet.state.Rk, restored.Rk)
	assert.Equal(t, bobRatchet.state.Ns, restored.Ns)
	assert.Equal(t, bobRatchet.state.Nr, restored.Nr)
	require.NotNil(t, restored.Cks)
	require.NotNil(t, restored.Ckr)
	assert.Equal(t, *bobRatchet.state.Cks, *restored.Cks)
	assert.Equal(t, *bobRatchet.state.Ckr, *restored.Ckr)
}

func TestResumeContinuesConversation(t *testing.T) {
	aliceRatchet, bobRatchet := newSessionPair(t)

	msg, err := aliceRatchet.Encrypt([]byte("first"), nil)
	require.NoError(t, err)
	_, err = bobRatchet.Decrypt(msg, nil)
	require.NoError(t, err)

	data, err := bobRatchet.MarshalState()
	require.NoError(t, err)
	bobRatchet.Wipe()

	resumed, err := Resume(data)
	require.NoError(t, err)

	// The restored session decrypts Alice's next message and can reply
	msg2, err := aliceRatchet.Encrypt([]byte("after restart"), nil)
	require.NoError(t, err)
	plaintext, err := resumed.Decrypt(msg2, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("after restart"), plaintext)

	reply, err := resumed.Encrypt([]byte("still here"), nil)
	require.NoError(t, err)
	plaintext, err = aliceRatchet.Decrypt(reply, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("still here"), plaintext)
}

func TestUnmarshalStateRejects(t *testing.T) {
	aliceRatchet, _ := newSessionPair(t)
	data, err := aliceRatchet.MarshalState()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mangle func(p *persistedState)
	}{
		{"unknown version", func(p *persistedState) { p.V = StateVersion + 1 }},
		{"short root key", func(p *persistedState) { p.Rk = p.Rk[:16] }},
		{"short send chain key", func(p *persistedState) { p.Cks = p.Cks[:8] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p persistedState
			require.NoError(t, json.Unmarshal(data, &p))
			tt.mangle(&p)
			mangled, err := json.Marshal(p)
			require.NoError(t, err)

			_, err = UnmarshalState(mangled)
			assert.ErrorIs(t, err, ErrSerialization)
		})
	}

	t.Run("not json", func(t *testing.T) {
		_, err := UnmarshalState([]byte("not a state"))
		assert.ErrorIs(t, err, ErrSerialization)
	})
}

func TestWipe(t *testing.T) {
	aliceRatchet, _ := newSessionPair(t)
	require.NotNil(t, aliceRatchet.state.Cks)

	aliceRatchet.Wipe()

	assert.Equal(t, RatchetKey{}, aliceRatchet.state.Rk)
	assert.Nil(t, aliceRatchet.state.Cks)
	assert.Nil(t, aliceRatchet.state.Ckr)
	for _, b := range aliceRatchet.state.Dhs.Priv {
		require.Zero(t, b)
	}
}

func TestMessageEnvelope(t *testing.T) {
	aliceRatchet, bobRatchet := newSessionPair(t)

	msg, err := aliceRatchet.Encrypt([]byte("over the wire"), nil)
	require.NoError(t, err)

	data, err := msg.Marshal()
	require.NoError(t, err)

	parsed, err := UnmarshalMessage(data)
	require.NoError(t, err)
	assert.True(t, parsed.Header.Equals(&msg.Header))

	plaintext, err := bobRatchet.Decrypt(parsed, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("over the wire"), plaintext)
}

func TestUnmarshalMessageRejects(t *testing.T) {
	aliceRatchet, _ := newSessionPair(t)
	msg, err := aliceRatchet.Encrypt([]byte("payload"), nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mangle func(m *Message)
	}{
		{"unknown version", func(m *Message) { m.Version = MessageVersion + 1 }},
		{"short iv", func(m *Message) { m.IV = m.IV[:4] }},
		{"ciphertext below tag size", func(m *Message) { m.Ciphertext = m.Ciphertext[:3] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mangled := *msg
			tt.mangle(&mangled)
			data, err := json.Marshal(&mangled)
			require.NoError(t, err)

			_, err = UnmarshalMessage(data)
			assert.ErrorIs(t, err, ErrSerialization)
		})
	}

	t.Run("not json", func(t *testing.T) {
		_, err := UnmarshalMessage([]byte("{broken"))
		assert.ErrorIs(t, err, ErrSerialization)
	})
}
