package authhelper

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultExpiresIn = 30 * 60

// Config is what the helper needs to mint tokens: the server's public
// base URL, the repo-token secret, and the token lifetime in seconds.
type Config struct {
	BaseURL   string
	JWTSecret string
	ExpiresIn uint64
}

// LoadConfig reads the key=value .env file sitting next to the helper
// binary. BASE_URL and JWT_SECRET_FILE are required; EXPIRES_IN
// defaults to 30 minutes.
func LoadConfig() (*Config, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate current executable: %w", err)
	}
	return LoadConfigFile(filepath.Join(filepath.Dir(exe), ".env"))
}

// LoadConfigFile parses a specific .env-format file.
func LoadConfigFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open configuration file: %w", err)
	}

	values := map[string]string{}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("invalid line in configuration file: %s", line)
		}
		values[key] = value
	}

	baseURL, ok := values["BASE_URL"]
	if !ok {
		return nil, fmt.Errorf("missing key in configuration file: BASE_URL")
	}
	secretFile, ok := values["JWT_SECRET_FILE"]
	if !ok {
		return nil, fmt.Errorf("missing key in configuration file: JWT_SECRET_FILE")
	}
	secret, err := os.ReadFile(secretFile)
	if err != nil {
		return nil, fmt.Errorf("read jwt secret file: %w", err)
	}

	expiresIn := uint64(defaultExpiresIn)
	if raw, ok := values["EXPIRES_IN"]; ok {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			expiresIn = parsed
		}
	}

	return &Config{
		BaseURL:   baseURL,
		JWTSecret: strings.TrimSpace(string(secret)),
		ExpiresIn: expiresIn,
	}, nil
}
