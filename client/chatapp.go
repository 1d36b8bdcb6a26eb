package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jroimartin/gocui"
	"github.com/sirupsen/logrus"

	"github.com/cyph3rasi/Synapsis-sub003/common"
	"github.com/cyph3rasi/Synapsis-sub003/configs"
	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/doubleratchet"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/alice"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/bob"
)

type ChatApp struct {
	Gui         *gocui.Gui
	cfg         *configs.Config
	logger      *logrus.Logger
	recipientID string
	messages    []string
	wsConn      *websocket.Conn
	messageLock sync.Mutex
	userID      string
	wg          sync.WaitGroup

	// crypto stuff. sessionLock guards the lazy handshake: the websocket
	// reader and the UI goroutine both reach for app.ratchet, and exactly one
	// of them may establish the session.
	sessionLock       sync.Mutex
	userPrivKeyBundle bob.BobPrekeyBundle
	userIDPubKey      key25519.PublicKey
	otherKeyBundle    *alice.BobPublicPrekeyBundle
	ratchet           *doubleratchet.DoubleRatchet
	initHandshake     *common.X3DHHandshakeBundle
}

// NewChatApp initializes a new ChatApp
func NewChatApp(cfg *configs.Config, logger *logrus.Logger, userID string, userKeyBundle *bob.BobPrekeyBundle) (*ChatApp, error) {
	idPub, err := userKeyBundle.IdentityKey.Public()
	if err != nil {
		return nil, fmt.Errorf("failed to derive identity public key: %w", err)
	}
	return &ChatApp{
		cfg:               cfg,
		logger:            logger,
		userID:            userID,
		userPrivKeyBundle: *userKeyBundle,
		userIDPubKey:      idPub,
	}, nil
}

// connectToWebSocket connects to the relay and fetches the recipient's
// published bundle. Must already have recipientID set.
func (app *ChatApp) connectToWebSocket() error {
	theirKeys, err := app.GetKeys(app.recipientID)
	if err != nil {
		return fmt.Errorf("failed to get recipient keys: %w", err)
	}
	app.otherKeyBundle = theirKeys

	serverURL := fmt.Sprintf("ws://%s%s?from=%s&to=%s", app.cfg.ServerAddress, app.cfg.WebSocketPath, app.userID, app.recipientID)
	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket server: %w", err)
	}
	app.wsConn = conn

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.listenForMessages()
	}()

	return nil
}

// listenForMessages listens for incoming WebSocket messages
func (app *ChatApp) listenForMessages() {
	for {
		_, msgBytes, err := app.wsConn.ReadMessage()
		if err != nil {
			app.logger.Errorf("Error reading message: %v", err)
			return
		}

		var msg common.MessageBundle
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			app.logger.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		plaintext, err := app.decryptMessage(&msg)
		if err != nil {
			app.logger.Errorf("Error decrypting message from %s: %v", msg.From, err)
			continue
		}

		app.messageLock.Lock()
		app.messages = append(app.messages, fmt.Sprintf("[%s] %s", msg.From, plaintext))
		app.messageLock.Unlock()

		app.Gui.Update(func(g *gocui.Gui) error {
			return app.UpdateMessages(g)
		})
	}
}

// sendMessage seals and sends one message to the relay in JSON format
func (app *ChatApp) sendMessage(message string) error {
	if app.wsConn == nil {
		return fmt.Errorf("WebSocket connection not established")
	}

	bundle, err := app.encryptMessage(message)
	if err != nil {
		return err
	}

	msgJSON, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}

	if err := app.wsConn.WriteMessage(websocket.TextMessage, msgJSON); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// quit handles quitting the application
func (app *ChatApp) quit(_ *gocui.Gui, _ *gocui.View) error {
	app.logger.Info("Shutting down gracefully...")
	if app.wsConn != nil {
		app.wsConn.Close()
	}
	app.wg.Wait()
	app.sessionLock.Lock()
	if app.ratchet != nil {
		app.ratchet.Wipe()
	}
	app.sessionLock.Unlock()
	return gocui.ErrQuit
}

// PostKeys publishes this user's prekey bundle to the relay directory
func (app *ChatApp) PostKeys() error {
	serverURL := fmt.Sprintf("http://%s%s/%s", app.cfg.ServerAddress, app.cfg.PublishKeysPath, app.userID)

	payload, err := app.userPrivKeyBundle.ToPublicBundle()
	if err != nil {
		return fmt.Errorf("failed to convert keys to public bundle: %w", err)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := http.Post(serverURL, "application/json", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned non-OK status: %v", resp.Status)
	}

	return nil
}

// GetKeys fetches a user's published prekey bundle from the relay directory
func (app *ChatApp) GetKeys(recipientID string) (*alice.BobPublicPrekeyBundle, error) {
	serverURL := fmt.Sprintf("http://%s%s/%s", app.cfg.ServerAddress, app.cfg.PublishKeysPath, recipientID)

	resp, err := http.Get(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned non-OK status: %v", resp.Status)
	}

	var bundle alice.BobPublicPrekeyBundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &bundle, nil
}
