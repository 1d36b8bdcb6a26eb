package doubleratchet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/doubleratchet"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/alice"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/bob"
)

// TestHandshakeToConversation walks the full session lifecycle: Bob publishes
// a prekey bundle, Alice runs the key agreement against it, both sides seed a
// ratchet from the shared secret and then chat in both directions.
func TestHandshakeToConversation(t *testing.T) {
	info := []byte("synapsis-e2ee-x3dh")

	aliceIdentity, err := key25519.NewPair()
	require.NoError(t, err)

	bobIdentity, err := key25519.NewPair()
	require.NoError(t, err)
	bobPrekey, err := key25519.NewPair()
	require.NoError(t, err)
	bobBundle := bob.BobPrekeyBundle{
		IdentityKey: bobIdentity.Priv,
		Prekey:      bobPrekey.Priv,
		PrekeyID:    7,
	}
	published, err := bobBundle.ToPublicBundle()
	require.NoError(t, err)

	// Alice: agree on a secret, seed the sending side of the ratchet
	sharedKey, ephPubKey, err := alice.PerformKeyAgreement(&published, aliceIdentity.Priv, info)
	require.NoError(t, err)
	var sk doubleratchet.RatchetKey
	copy(sk[:], sharedKey)
	aliceRatchet, err := doubleratchet.InitSender(sk, published.Prekey.Key)
	require.NoError(t, err)

	first, err := aliceRatchet.Encrypt([]byte("hello Bob"), nil)
	require.NoError(t, err)

	// Bob: recompute the secret from the handshake material, seed the
	// receiving side against his own prekey pair
	bobShared, err := bob.PerformKeyAgreement(&bobBundle, &bob.ReceivedAliceKeyBundle{
		IdentityKey:  aliceIdentity.Pub,
		EphemeralKey: ephPubKey,
	}, info)
	require.NoError(t, err)
	require.Equal(t, sharedKey, bobShared)

	var bobSk doubleratchet.RatchetKey
	copy(bobSk[:], bobShared)
	bobRatchet := doubleratchet.InitReceiver(bobSk, *bobPrekey)

	plaintext, err := bobRatchet.Decrypt(first, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello Bob"), plaintext)

	reply, err := bobRatchet.Encrypt([]byte("hi Alice"), nil)
	require.NoError(t, err)
	plaintext, err = aliceRatchet.Decrypt(reply, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi Alice"), plaintext)

	assert.Equal(t, bobRatchet.PublicKey(), aliceRatchet.RemotePublicKey())
}
