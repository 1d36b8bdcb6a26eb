package client

import (
	"fmt"

	"github.com/cyph3rasi/Synapsis-sub003/common"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/memzero"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/doubleratchet"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/alice"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/bob"
)

// senderHandshake runs X3DH against the recipient's published bundle and
// seeds the ratchet as sender.
// Postcondition: app.ratchet can encrypt; app.initHandshake is set.
func (app *ChatApp) senderHandshake() error {
	sharedKey, ephPubKey, err := alice.PerformKeyAgreement(app.otherKeyBundle, app.userPrivKeyBundle.IdentityKey, app.cfg.HKDFInfo)
	if err != nil {
		return fmt.Errorf("failed to perform key agreement: %w", err)
	}
	var rootKey doubleratchet.RatchetKey
	copy(rootKey[:], sharedKey)
	memzero.Zero(sharedKey)

	app.ratchet, err = doubleratchet.InitSender(rootKey, app.otherKeyBundle.Prekey.Key)
	memzero.Zero(rootKey[:])
	if err != nil {
		return fmt.Errorf("failed to init ratchet: %w", err)
	}

	var oneTimeID *uint32
	if app.otherKeyBundle.OneTimePrekey != nil {
		id := app.otherKeyBundle.OneTimePrekey.ID
		oneTimeID = &id
	}
	app.initHandshake = &common.X3DHHandshakeBundle{
		EphPubKey:       ephPubKey,
		OneTimePrekeyID: oneTimeID,
	}
	return nil
}

// receiverHandshake recomputes the X3DH secret from the handshake bundle that
// rode with the sender's first message and seeds the ratchet as receiver. The
// consumed one-time prekey is wiped; it must never serve a second handshake.
func (app *ChatApp) receiverHandshake(handshake *common.X3DHHandshakeBundle, senderIDKey key25519.PublicKey) error {
	sharedKey, err := bob.PerformKeyAgreement(&app.userPrivKeyBundle, &bob.ReceivedAliceKeyBundle{
		IdentityKey:     senderIDKey,
		EphemeralKey:    handshake.EphPubKey,
		OneTimePrekeyID: handshake.OneTimePrekeyID,
	}, app.cfg.HKDFInfo)
	if err != nil {
		return fmt.Errorf("failed to perform key agreement: %w", err)
	}
	var rootKey doubleratchet.RatchetKey
	copy(rootKey[:], sharedKey)
	memzero.Zero(sharedKey)

	prekeyPub, err := app.userPrivKeyBundle.Prekey.Public()
	if err != nil {
		return fmt.Errorf("failed to get prekey public key: %w", err)
	}
	app.ratchet = doubleratchet.InitReceiver(rootKey, key25519.Pair{
		Priv: app.userPrivKeyBundle.Prekey,
		Pub:  prekeyPub,
	})
	memzero.Zero(rootKey[:])

	if handshake.OneTimePrekeyID != nil && app.userPrivKeyBundle.OneTimePrekey != nil {
		memzero.Zero(*app.userPrivKeyBundle.OneTimePrekey)
		app.userPrivKeyBundle.OneTimePrekey = nil
	}
	return nil
}

// encryptMessage seals one outgoing message, running the sender handshake on
// the first call.
func (app *ChatApp) encryptMessage(msg string) (*common.MessageBundle, error) {
	app.sessionLock.Lock()
	defer app.sessionLock.Unlock()

	if app.ratchet == nil {
		if err := app.senderHandshake(); err != nil {
			return nil, fmt.Errorf("failed to perform handshake: %w", err)
		}
	}

	ad := identityAD(app.userIDPubKey, app.otherKeyBundle.IdentityKey)
	sealed, err := app.ratchet.Encrypt([]byte(msg), ad[:])
	if err != nil {
		return nil, fmt.Errorf("error encrypting message: %w", err)
	}

	return &common.MessageBundle{
		From:      app.userID,
		To:        app.recipientID,
		Message:   *sealed,
		Handshake: app.initHandshake,
	}, nil
}

// decryptMessage opens one incoming bundle, running the receiver handshake if
// this is the first message of a new conversation.
func (app *ChatApp) decryptMessage(msg *common.MessageBundle) ([]byte, error) {
	if err := msg.Message.Validate(); err != nil {
		return nil, fmt.Errorf("rejecting message from %s: %w", msg.From, err)
	}

	app.sessionLock.Lock()
	defer app.sessionLock.Unlock()

	if app.ratchet == nil {
		if msg.Handshake == nil {
			return nil, fmt.Errorf("no session and no handshake bundle from %s", msg.From)
		}
		if err := app.receiverHandshake(msg.Handshake, app.otherKeyBundle.IdentityKey); err != nil {
			return nil, fmt.Errorf("error performing handshake: %w", err)
		}
	}

	ad := identityAD(app.otherKeyBundle.IdentityKey, app.userIDPubKey)
	plaintext, err := app.ratchet.Decrypt(&msg.Message, ad[:])
	if err != nil {
		return nil, fmt.Errorf("error decrypting message: %w", err)
	}
	return plaintext, nil
}

// identityAD binds both identity public keys, sender first, into the AEAD
// associated data of every message.
func identityAD(senderIDPub, recipientIDPub key25519.PublicKey) [64]byte {
	var ad [64]byte
	copy(ad[:32], senderIDPub)
	copy(ad[32:], recipientIDPub)
	return ad
}
