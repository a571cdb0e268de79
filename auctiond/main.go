// Command auctiond serves the escrow auction engine over vsock (inside a Nitro enclave)
// or TCP. Each connection carries one JSON request and receives one JSON response.
package main

import (
	"log"

	"github.com/cloudx-io/escrowauction/core"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	server, err := NewServer(cfg, core.SystemClock)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	log.Fatal(server.Start())
}
