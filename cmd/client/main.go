package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/jroimartin/gocui"
	"github.com/sirupsen/logrus"

	"github.com/cyph3rasi/Synapsis-sub003/client"
	"github.com/cyph3rasi/Synapsis-sub003/configs"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/bob"
)

func main() {
	logger := logrus.New()

	if len(os.Args) < 2 {
		fmt.Println("Usage: client <userID>")
		return
	}
	userID := os.Args[1]

	// Per-user env file first, shared one as fallback
	cfg := configs.Load(fmt.Sprintf(".env.%s", userID), ".env")

	identityKey, err := decodeHexKey(os.Getenv("IDENTITY_KEY"))
	if err != nil {
		logger.Fatalf("Failed to decode IDENTITY_KEY: %v", err)
	}
	prekey, err := decodeHexKey(os.Getenv("PREKEY"))
	if err != nil {
		logger.Fatalf("Failed to decode PREKEY: %v", err)
	}

	bundle := &bob.BobPrekeyBundle{
		IdentityKey: identityKey,
		Prekey:      prekey,
		PrekeyID:    1,
	}
	if raw := os.Getenv("ONE_TIME_PREKEY"); raw != "" {
		oneTime, err := decodeHexKey(raw)
		if err != nil {
			logger.Fatalf("Failed to decode ONE_TIME_PREKEY: %v", err)
		}
		bundle.OneTimePrekey = &oneTime
		bundle.OneTimePrekeyID = 1
	}

	chatApp, err := client.NewChatApp(cfg, logger, userID, bundle)
	if err != nil {
		logger.Fatalf("Error initializing chat app: %v", err)
	}

	if err := chatApp.InitGui(); err != nil {
		logger.Fatalf("Error initializing gocui interface: %v", err)
	}
	defer chatApp.Gui.Close()

	if err := chatApp.PostKeys(); err != nil {
		logger.Fatalf("Error publishing keys: %v", err)
	}

	if err := chatApp.PromptRecipientID(); err != nil {
		logger.Fatalf("Error prompting recipient ID: %v", err)
	}

	if err := chatApp.Gui.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		logger.Fatalf("Error in gocui main loop: %v", err)
	}

	logger.Info("Application exited.")
}

func decodeHexKey(hexStr string) (key25519.PrivateKey, error) {
	if hexStr == "" {
		return nil, fmt.Errorf("hex string is empty")
	}
	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, err
	}
	return key25519.ImportPrivate(decoded)
}
