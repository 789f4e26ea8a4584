package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/turnforge/grimdark/cmd/grimdark/cmd"
)

func main() {
	// Load environment variables from .env if present; flags and real env
	// still apply without one.
	godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
