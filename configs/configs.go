package configs

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries the addresses and protocol constants shared by the relay and
// the chat client. It is built once by Load and passed explicitly; nothing in
// the repo reads configuration through package globals.
type Config struct {
	ServerAddress   string
	RedisAddress    string
	PublishKeysPath string
	WebSocketPath   string

	// HKDFInfo is the domain-separation string fed to the X3DH derivation.
	// Both parties must agree on it or the handshake secrets diverge.
	HKDFInfo []byte
}

// Redis key formats used by the relay.
const (
	ServerMessageQueueKey = "server:messages:%s:%s"
	ServerUserPubKey      = "publicKey:%s"
)

// Load reads the optional .env files and builds a Config from the environment,
// falling back to local defaults.
func Load(envFiles ...string) *Config {
	// Missing .env files are fine; the environment may already be set.
	_ = godotenv.Load(envFiles...)

	return &Config{
		ServerAddress:   getenv("SYNAPSIS_SERVER_ADDRESS", "localhost:8080"),
		RedisAddress:    getenv("SYNAPSIS_REDIS_ADDRESS", "localhost:6379"),
		PublishKeysPath: getenv("SYNAPSIS_KEYS_PATH", "/keys"),
		WebSocketPath:   getenv("SYNAPSIS_WS_PATH", "/ws"),
		HKDFInfo:        []byte(getenv("SYNAPSIS_HKDF_INFO", "synapsis-e2ee-x3dh")),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
