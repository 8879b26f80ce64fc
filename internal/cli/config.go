package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const defaultServerURL = "http://localhost:4000"

// Config is the resolved CLI configuration.
type Config struct {
	ServerURL  string
	Home       string
	BcryptCost int
}

// SessionPath is where the local session database lives.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Home, "session.db")
}

// homeDir is $REDACAO_HOME, else <user config dir>/redacao.
func homeDir() (string, error) {
	if dir := os.Getenv("REDACAO_HOME"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(base, "redacao"), nil
}

// LoadConfig resolves settings from flags already bound to v, REDACAO_*
// environment variables and <home>/config.yaml, in that order.
func LoadConfig(v *viper.Viper) (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}

	v.SetDefault("server", defaultServerURL)
	v.SetDefault("bcrypt_cost", 10)
	v.SetEnvPrefix("REDACAO")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(home)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return &Config{
		ServerURL:  v.GetString("server"),
		Home:       home,
		BcryptCost: v.GetInt("bcrypt_cost"),
	}, nil
}
