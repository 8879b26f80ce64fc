package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the API server configuration read from the environment.
type Config struct {
	HTTPAddr           string
	SessionSecret      []byte
	EphemeralSecret    bool
	SessionTTL         time.Duration
	GoogleClientID     string
	GoogleTimeout      time.Duration
	DefaultProfessorID string
	BcryptCost         int
}

// FromEnv reads HTTP_ADDR, SESSION_SECRET, SESSION_TTL, GOOGLE_CLIENT_ID,
// DEFAULT_PROFESSOR_ID and BCRYPT_COST. Without SESSION_SECRET a random
// secret is generated, so tokens do not survive a restart.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:           getenv("HTTP_ADDR", "0.0.0.0:4000"),
		SessionTTL:         720 * time.Hour,
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleTimeout:      10 * time.Second,
		DefaultProfessorID: getenv("DEFAULT_PROFESSOR_ID", "68e8b75f0ccde9fbb554f234"),
		BcryptCost:         12,
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid SESSION_TTL %q", v)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 4 || n > 31 {
			return cfg, fmt.Errorf("invalid BCRYPT_COST %q", v)
		}
		cfg.BcryptCost = n
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.SessionSecret = []byte(v)
	} else {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return cfg, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.SessionSecret = buf
		cfg.EphemeralSecret = true
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
