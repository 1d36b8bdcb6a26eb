// Package server implements the delivery relay. It forwards sealed
// MessageBundles between connected users, queues for offline ones and serves
// the prekey directory. Per-conversation queues are strict FIFO; the session
// core relies on in-order delivery.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cyph3rasi/Synapsis-sub003/common"
	"github.com/cyph3rasi/Synapsis-sub003/configs"
	"github.com/cyph3rasi/Synapsis-sub003/protocol/x3dh/alice"
)

type Server struct {
	ctx       context.Context
	cancelCtx context.CancelFunc

	cfg            *configs.Config
	redisClient    *redis.Client
	connectedUsers map[connKey]*websocket.Conn
	mutex          *sync.Mutex
	logger         *logrus.Logger

	// WebSocket upgrader settings
	upgrader *websocket.Upgrader
}

type connKey struct {
	from string
	to   string
}

func NewServer(ctx context.Context, cfg *configs.Config, redisClient *redis.Client, logger *logrus.Logger) *Server {
	ctx, cancelCtx := context.WithCancel(ctx)
	return &Server{
		ctx:            ctx,
		cancelCtx:      cancelCtx,
		cfg:            cfg,
		redisClient:    redisClient,
		connectedUsers: make(map[connKey]*websocket.Conn),
		mutex:          &sync.Mutex{},
		logger:         logger,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnections upgrades to WebSocket and pumps messages for one
// conversation direction.
func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("Error upgrading to WebSocket: %v", err)
		return
	}
	defer ws.Close()

	fromID := r.URL.Query().Get("from")
	if fromID == "" {
		s.logger.Error("No fromID provided in the query")
		return
	}
	toID := r.URL.Query().Get("to")
	if toID == "" {
		s.logger.Error("No toID provided in the query")
		return
	}

	s.mutex.Lock()
	s.connectedUsers[connKey{from: fromID, to: toID}] = ws
	s.mutex.Unlock()
	s.logger.Infof("User %s connected, talking to %s", fromID, toID)

	// Drain anything queued while this user was offline, in send order
	s.deliverQueuedMessages(toID, fromID, ws)

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			s.logger.Errorf("Error reading message from user %s: %v", fromID, err)
			break
		}

		var msgObj common.MessageBundle
		if err := json.Unmarshal(message, &msgObj); err != nil {
			s.logger.Errorf("Invalid message format from user %s: %v", fromID, err)
			continue
		}

		msgObj.From = fromID
		s.routeMessage(&msgObj)
	}

	s.mutex.Lock()
	delete(s.connectedUsers, connKey{from: fromID, to: toID})
	s.mutex.Unlock()
	s.logger.Infof("User %s disconnected", fromID)
}

func (s *Server) Close() {
	s.cancelCtx()
	s.mutex.Lock()
	for _, conn := range s.connectedUsers {
		conn.Close()
	}
	s.mutex.Unlock()
	s.redisClient.Close()
}

// routeMessage forwards to a connected recipient or queues for an offline one.
// A write failure falls back to the queue so the bundle is never dropped or
// reordered ahead of later traffic.
func (s *Server) routeMessage(msg *common.MessageBundle) {
	s.mutex.Lock()
	recipientConn, online := s.connectedUsers[connKey{from: msg.To, to: msg.From}]
	s.mutex.Unlock()

	if !online {
		s.queueMessage(msg)
		return
	}
	messageJSON, err := json.Marshal(msg)
	if err != nil {
		s.logger.Errorf("Error marshalling message from %s to %s: %v", msg.From, msg.To, err)
		return
	}
	if err := recipientConn.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
		s.logger.Errorf("Error sending message to user %s: %v", msg.To, err)
		s.queueMessage(msg)
	}
}

// queueMessage appends to the conversation's FIFO queue in Redis.
func (s *Server) queueMessage(msg *common.MessageBundle) {
	messageJSON, err := json.Marshal(msg)
	if err != nil {
		s.logger.Errorf("Error marshalling message from %s to %s: %v", msg.From, msg.To, err)
		return
	}
	if err := s.redisClient.RPush(s.ctx, fmt.Sprintf(configs.ServerMessageQueueKey, msg.From, msg.To), messageJSON).Err(); err != nil {
		s.logger.Errorf("Error queuing message from %s to %s: %v", msg.From, msg.To, err)
	}
}

// deliverQueuedMessages replays a conversation's queue to a reconnecting user.
func (s *Server) deliverQueuedMessages(from string, to string, ws *websocket.Conn) {
	key := fmt.Sprintf(configs.ServerMessageQueueKey, from, to)
	messages, err := s.redisClient.LRange(s.ctx, key, 0, -1).Result()
	if err != nil {
		s.logger.Errorf("Error retrieving queued messages from %s to %s: %v", from, to, err)
		return
	}

	for _, message := range messages {
		if err := ws.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
			s.logger.Errorf("Error sending queued message from %s to %s: %v", from, to, err)
			return
		}
	}

	// Clear the queue only after every message went out
	s.redisClient.Del(s.ctx, key)
}

// HandlePostKeys stores a user's published prekey bundle in the directory.
func (s *Server) HandlePostKeys(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, ok := vars["userID"]
	if !ok {
		s.logger.Error("No userID provided in the query")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var bundle alice.BobPublicPrekeyBundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		s.logger.Errorf("Error decoding keys for user %s: %v", userID, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		s.logger.Errorf("Error serializing keys for user %s: %v", userID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := s.redisClient.Set(s.ctx, fmt.Sprintf(configs.ServerUserPubKey, userID), data, 0).Err(); err != nil {
		s.logger.Errorf("Error publishing keys for user %s: %v", userID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.logger.Infof("Prekey bundle published for user %s", userID)
	w.WriteHeader(http.StatusOK)
}

// HandleGetKeys serves a user's published prekey bundle.
func (s *Server) HandleGetKeys(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, ok := vars["userID"]
	if !ok {
		s.logger.Error("No userID provided in the query")
		http.Error(w, "No userID provided", http.StatusBadRequest)
		return
	}

	data, err := s.redisClient.Get(s.ctx, fmt.Sprintf(configs.ServerUserPubKey, userID)).Result()
	if err != nil {
		s.logger.Errorf("Error retrieving keys for user %s: %v", userID, err)
		http.Error(w, "Error retrieving keys", http.StatusInternalServerError)
		return
	}

	var bundle alice.BobPublicPrekeyBundle
	if err := json.Unmarshal([]byte(data), &bundle); err != nil {
		s.logger.Errorf("Error decoding keys for user %s: %v", userID, err)
		http.Error(w, "Error decoding response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(bundle); err != nil {
		s.logger.Errorf("Error encoding keys for user %s: %v", userID, err)
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
		return
	}

	s.logger.Infof("Prekey bundle retrieved for user %s", userID)
}
