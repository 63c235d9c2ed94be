package main

import (
	"github.com/joho/godotenv"

	"github.com/yarlson/autodev/cmd"
)

func main() {
	// Load .env if present; real environment variables win.
	_ = godotenv.Load()

	cmd.Execute()
}
