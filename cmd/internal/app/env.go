package app

import (
	"github.com/joho/godotenv"
)

// dotEnvFiles are loaded in order when present. Earlier files win, and
// variables already set in the process environment are never overridden.
var dotEnvFiles = []string{".env.local", ".env"}

func loadDotEnv() {
	for _, f := range dotEnvFiles {
		// Missing files are expected outside local development.
		_ = godotenv.Load(f)
	}
}
