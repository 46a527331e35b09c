package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL      string
	Token          string
	TokenFile      string
	AdminToken     string
	AdminTokenFile string
	Output         string
	Verbose        bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:      getEnvOrDefault("YEARGAME_SERVER", "http://localhost:8080"),
		Token:          os.Getenv("YEARGAME_TOKEN"),
		TokenFile:      getEnvOrDefault("YEARGAME_TOKEN_FILE", defaultFile("token")),
		AdminToken:     os.Getenv("YEARGAME_ADMIN_TOKEN"),
		AdminTokenFile: getEnvOrDefault("YEARGAME_ADMIN_TOKEN_FILE", defaultFile("admin_token")),
		Output:         "text",
		Verbose:        false,
	}
}

// LoadTokens loads the player and admin tokens from their files if not already set
func (c *Config) LoadTokens() error {
	var err error
	if c.Token == "" {
		if c.Token, err = readToken(c.TokenFile); err != nil {
			return err
		}
	}
	if c.AdminToken == "" {
		if c.AdminToken, err = readToken(c.AdminTokenFile); err != nil {
			return err
		}
	}
	return nil
}

// SaveToken saves the player token to the token file
func (c *Config) SaveToken(token string) error {
	c.Token = token
	return writeToken(c.TokenFile, token)
}

// SaveAdminToken saves the admin token to the admin token file
func (c *Config) SaveAdminToken(token string) error {
	c.AdminToken = token
	return writeToken(c.AdminTokenFile, token)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // No token file is fine
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writeToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0600)
}

func defaultFile(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".yeargame", name)
	}
	return filepath.Join(home, ".yeargame", name)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
