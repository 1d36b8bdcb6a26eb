package client

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyph3rasi/Synapsis-sub003/common"
	"github.com/cyph3rasi/Synapsis-sub003/configs"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/doubleratchet"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/bob"
)

func newTestApp(t *testing.T, userID string) *ChatApp {
	t.Helper()

	identityKey, err := key25519.New()
	require.NoError(t, err)
	prekey, err := key25519.New()
	require.NoError(t, err)
	oneTime, err := key25519.New()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app, err := NewChatApp(configs.Load(), logger, userID, &bob.BobPrekeyBundle{
		IdentityKey:     identityKey,
		Prekey:          prekey,
		PrekeyID:        1,
		OneTimePrekey:   &oneTime,
		OneTimePrekeyID: 1,
	})
	require.NoError(t, err)
	return app
}

// pairApps wires two apps to each other as if both had fetched the peer's
// published bundle from the relay directory.
func pairApps(t *testing.T) (*ChatApp, *ChatApp) {
	t.Helper()

	aliceApp := newTestApp(t, "alice")
	bobApp := newTestApp(t, "bob")
	aliceApp.recipientID = "bob"
	bobApp.recipientID = "alice"

	bobPublic, err := bobApp.userPrivKeyBundle.ToPublicBundle()
	require.NoError(t, err)
	aliceApp.otherKeyBundle = &bobPublic

	alicePublic, err := aliceApp.userPrivKeyBundle.ToPublicBundle()
	require.NoError(t, err)
	bobApp.otherKeyBundle = &alicePublic

	return aliceApp, bobApp
}

func TestMessageBundleRoundTrip(t *testing.T) {
	aliceApp, bobApp := pairApps(t)

	bundle, err := aliceApp.encryptMessage("hello over the relay")
	require.NoError(t, err)
	require.NotNil(t, bundle.Handshake, "first message must carry the handshake")

	plaintext, err := bobApp.decryptMessage(bundle)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello over the relay"), plaintext)

	// And back: Bob's reply rides the same session
	reply, err := bobApp.encryptMessage("hi alice")
	require.NoError(t, err)
	plaintext, err = aliceApp.decryptMessage(reply)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi alice"), plaintext)
}

func TestConcurrentEncryptSharesOneSession(t *testing.T) {
	aliceApp, bobApp := pairApps(t)

	// Concurrent sends must race for exactly one handshake; if a second
	// session clobbered the first, its messages could never decrypt
	const n = 8
	bundles := make([]*common.MessageBundle, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bundle, err := aliceApp.encryptMessage(fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
			bundles[i] = bundle
		}(i)
	}
	wg.Wait()

	sort.Slice(bundles, func(i, j int) bool {
		return bundles[i].Message.Header.N < bundles[j].Message.Header.N
	})
	for i, bundle := range bundles {
		require.NotNil(t, bundle)
		assert.Equal(t, doubleratchet.MsgIndex(i), bundle.Message.Header.N)
		_, err := bobApp.decryptMessage(bundle)
		require.NoError(t, err)
	}
}

func TestDecryptRejectsUnknownEnvelopeVersion(t *testing.T) {
	aliceApp, bobApp := pairApps(t)

	bundle, err := aliceApp.encryptMessage("versioned")
	require.NoError(t, err)
	bundle.Message.Version = doubleratchet.MessageVersion + 1

	_, err = bobApp.decryptMessage(bundle)
	assert.ErrorIs(t, err, doubleratchet.ErrSerialization)
	assert.Nil(t, bobApp.ratchet, "a rejected envelope must not establish a session")
}
