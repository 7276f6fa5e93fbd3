package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const secretFileName = ".outpost_secret"

// LoadOrGenerateSecret returns the session-signing secret. The environment
// variable wins; otherwise a persisted secret is reused, or a new one is
// generated and written next to the database.
func LoadOrGenerateSecret(dataDir string) string {
	if envSecret := os.Getenv("OUTPOST_SECRET_KEY"); envSecret != "" {
		return envSecret
	}

	secretPath := filepath.Join(dataDir, secretFileName)

	if data, err := os.ReadFile(secretPath); err == nil {
		secret := strings.TrimSpace(string(data))
		if secret != "" {
			return secret
		}
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("Fatal: could not generate session secret: %v", err)
	}
	secret := hex.EncodeToString(buf)

	if err := os.WriteFile(secretPath, []byte(secret), 0600); err != nil {
		log.Printf("Warning: could not persist session secret: %v", err)
	}

	return secret
}
