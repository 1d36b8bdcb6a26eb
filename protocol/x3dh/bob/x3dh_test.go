package bob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/alice"
)

var testInfo = []byte("synapsis-e2ee-x3dh")

func newBobBundle(t *testing.T, withOneTime bool) *BobPrekeyBundle {
	t.Helper()

	identityKey, err := key25519.New()
	require.NoError(t, err)
	prekey, err := key25519.New()
	require.NoError(t, err)

	bundle := &BobPrekeyBundle{
		IdentityKey: identityKey,
		Prekey:      prekey,
		PrekeyID:    1,
	}
	if withOneTime {
		oneTime, err := key25519.New()
		require.NoError(t, err)
		bundle.OneTimePrekey = &oneTime
		bundle.OneTimePrekeyID = 7
	}
	return bundle
}

func TestKeyAgreementSymmetry(t *testing.T) {
	tests := []struct {
		name        string
		withOneTime bool
	}{
		{"with one-time prekey", true},
		{"without one-time prekey", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bobBundle := newBobBundle(t, tt.withOneTime)
			publicBundle, err := bobBundle.ToPublicBundle()
			require.NoError(t, err)

			aliceIdKey, err := key25519.New()
			require.NoError(t, err)
			aliceIdPub, err := aliceIdKey.Public()
			require.NoError(t, err)

			// Alice's side
			aliceSecret, ephPubKey, err := alice.PerformKeyAgreement(&publicBundle, aliceIdKey, testInfo)
			require.NoError(t, err)

			// Bob's side, with the key roles swapped
			var oneTimeID *uint32
			if tt.withOneTime {
				id := publicBundle.OneTimePrekey.ID
				oneTimeID = &id
			}
			bobSecret, err := PerformKeyAgreement(bobBundle, &ReceivedAliceKeyBundle{
				IdentityKey:     aliceIdPub,
				EphemeralKey:    ephPubKey,
				OneTimePrekeyID: oneTimeID,
			}, testInfo)
			require.NoError(t, err)

			assert.Equal(t, aliceSecret, bobSecret, "sender and receiver must derive byte-identical secrets")
			assert.Len(t, bobSecret, 32)
		})
	}
}

func TestKeyAgreementMissingPrekey(t *testing.T) {
	// Alice consumed a one-time prekey Bob no longer holds
	bobBundle := newBobBundle(t, false)

	aliceIdPub, err := key25519.NewPair()
	require.NoError(t, err)
	aliceEph, err := key25519.NewPair()
	require.NoError(t, err)

	id := uint32(7)
	_, err = PerformKeyAgreement(bobBundle, &ReceivedAliceKeyBundle{
		IdentityKey:     aliceIdPub.Pub,
		EphemeralKey:    aliceEph.Pub,
		OneTimePrekeyID: &id,
	}, testInfo)
	assert.ErrorIs(t, err, ErrMissingPrekey)
}

func TestKeyAgreementWrongPrekeyID(t *testing.T) {
	bobBundle := newBobBundle(t, true)

	aliceIdPub, err := key25519.NewPair()
	require.NoError(t, err)
	aliceEph, err := key25519.NewPair()
	require.NoError(t, err)

	wrongID := bobBundle.OneTimePrekeyID + 1
	_, err = PerformKeyAgreement(bobBundle, &ReceivedAliceKeyBundle{
		IdentityKey:     aliceIdPub.Pub,
		EphemeralKey:    aliceEph.Pub,
		OneTimePrekeyID: &wrongID,
	}, testInfo)
	assert.ErrorIs(t, err, ErrMissingPrekey)
}

func TestToPublicBundleSignature(t *testing.T) {
	bobBundle := newBobBundle(t, true)
	publicBundle, err := bobBundle.ToPublicBundle()
	require.NoError(t, err)

	assert.NoError(t, publicBundle.Verify())
	assert.NotNil(t, publicBundle.OneTimePrekey)
	assert.Equal(t, bobBundle.OneTimePrekeyID, publicBundle.OneTimePrekey.ID)

	// A swapped prekey must not verify
	other, err := key25519.NewPair()
	require.NoError(t, err)
	publicBundle.Prekey.Key = other.Pub
	assert.Error(t, publicBundle.Verify())
}
