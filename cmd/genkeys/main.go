package main

import (
	"fmt"
	"log"

	"github.com/cyph3rasi/Synapsis-sub003/crypto/key25519"
)

// Prints a fresh identity key, signed prekey and one-time prekey in hex,
// ready to paste into a client .env file.
func main() {
	for _, name := range []string{"IDENTITY_KEY", "PREKEY", "ONE_TIME_PREKEY"} {
		pair, err := key25519.NewPair()
		if err != nil {
			log.Fatalf("Failed to generate %s: %v", name, err)
		}
		fmt.Printf("%s=%x\n", name, pair.Priv)
		fmt.Printf("# %s public: %x\n", name, pair.Pub)
	}
}
