package main

import (
	"log"

	"github.com/joho/godotenv"

	"tableflip.dev/pinmap/pkg/commands"
)

func main() {
	// Optional: upload and auth endpoints can live in a local .env file.
	_ = godotenv.Load()

	if err := commands.New().Execute(); err != nil {
		log.Fatalf("error during command execution: %v", err)
	}
}
