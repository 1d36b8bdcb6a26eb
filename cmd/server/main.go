package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cyph3rasi/Synapsis-sub003/configs"
	"github.com/cyph3rasi/Synapsis-sub003/server"
)

func main() {
	logger := logrus.New()
	cfg := configs.Load()

	s := server.NewServer(
		context.Background(),
		cfg,
		redis.NewClient(&redis.Options{Addr: cfg.RedisAddress}),
		logger,
	)
	defer s.Close()

	r := mux.NewRouter()
	r.HandleFunc(cfg.WebSocketPath, s.HandleConnections)
	r.HandleFunc(cfg.PublishKeysPath+"/{userID}", s.HandlePostKeys).Methods(http.MethodPost)
	r.HandleFunc(cfg.PublishKeysPath+"/{userID}", s.HandleGetKeys).Methods(http.MethodGet)

	logger.Infof("Relay running on ws://%s%s", cfg.ServerAddress, cfg.WebSocketPath)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		logger.Fatalf("Error starting server: %v", err)
	}
}
