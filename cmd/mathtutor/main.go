package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/brightpath-ai/mathtutor/internal/adapters/driving/cli"
)

func main() {
	// Best effort: a .env in the working directory supplies GEMINI_API_KEY
	// during development.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
