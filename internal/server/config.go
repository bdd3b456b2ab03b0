// Package server composes a running LFS server out of one selected
// implementation per capability: file storage, link signing, and an
// optional locks store, driven by the CLI positionals and environment.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FileStorageImplementation selects the object storage backend.
type FileStorageImplementation int

const (
	LocalFileStorage FileStorageImplementation = iota
	SingleBucketStorage
)

// Environment variable names, one constant per key so misspellings
// fail at compile time rather than silently reading nothing.
const (
	fsRootPathKey             = "FS_ROOT_PATH"
	databaseHostKey           = "DATABASE_HOST"
	databaseNameKey           = "DATABASE_NAME"
	databaseUserKey           = "DATABASE_USER"
	databasePasswordFileKey   = "DATABASE_PASSWORD_FILE"
	sbsBucketNameKey          = "SBS_BUCKET_NAME"
	sbsAccessKeyFileKey       = "SBS_ACCESS_KEY_FILE"
	sbsSecretKeyFileKey       = "SBS_SECRET_KEY_FILE"
	sbsRegionKey              = "SBS_REGION"
	sbsHostKey                = "SBS_HOST"
	sbsPublicRegionKey        = "SBS_PUBLIC_REGION"
	sbsPublicHostKey          = "SBS_PUBLIC_HOST"
	jwtSecretFileKey          = "JWT_SECRET_FILE"
	jwtExpiresInKey           = "JWT_EXPIRES_IN"
	customSignerHostKey       = "CUSTOM_SIGNER_HOST"
	customSignerSecretFileKey = "CUSTOM_SIGNER_SECRET_FILE"
	customSignerExpiresInKey  = "CUSTOM_SIGNER_EXPIRES_IN"
)

// Config is the parsed deployment selection plus every environment
// value the selected implementations need. Values stay optional until
// an implementation actually requires them.
type Config struct {
	WithProxy bool
	WithLocks bool
	Storage   FileStorageImplementation

	FSRootPath string

	SBSBucketName   string
	SBSAccessKey    string
	SBSSecretKey    string
	SBSRegion       string
	SBSHost         string
	SBSPublicRegion string
	SBSPublicHost   string

	JWTSecretFile string
	JWTExpiresIn  uint64

	CustomSignerHost       string
	CustomSignerSecretFile string
	CustomSignerExpiresIn  uint64

	DatabaseHost     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string
}

// ParseArgs interprets the positional CLI grammar
// "<signer|proxy> <fs|sbs> [locks pg]"; no arguments means "proxy fs".
func (c *Config) ParseArgs(args []string) error {
	switch {
	case len(args) == 0:
		c.WithProxy = true
		c.Storage = LocalFileStorage
		return nil
	case len(args) != 2 && len(args) != 4:
		return fmt.Errorf("invalid arguments: %s", strings.Join(args, ", "))
	}

	switch args[0] {
	case "proxy":
		c.WithProxy = true
	case "signer":
		c.WithProxy = false
	default:
		return fmt.Errorf("invalid arguments: %s", strings.Join(args, ", "))
	}

	switch args[1] {
	case "fs":
		c.Storage = LocalFileStorage
	case "sbs":
		c.Storage = SingleBucketStorage
	default:
		return fmt.Errorf("invalid arguments: %s", strings.Join(args, ", "))
	}

	if len(args) == 4 {
		if args[2] != "locks" || args[3] != "pg" {
			return fmt.Errorf("invalid arguments: %s", strings.Join(args, ", "))
		}
		c.WithLocks = true
	}
	return nil
}

// ParseEnv reads every recognized environment variable into the config.
// Presence is not enforced here; requireString/requireUint fail later,
// naming the missing key, when an implementation needs the value.
func (c *Config) ParseEnv() error {
	c.FSRootPath = os.Getenv(fsRootPathKey)
	c.SBSBucketName = os.Getenv(sbsBucketNameKey)
	c.SBSRegion = os.Getenv(sbsRegionKey)
	c.SBSHost = os.Getenv(sbsHostKey)
	c.SBSPublicRegion = os.Getenv(sbsPublicRegionKey)
	c.SBSPublicHost = os.Getenv(sbsPublicHostKey)
	c.JWTSecretFile = os.Getenv(jwtSecretFileKey)
	c.CustomSignerHost = os.Getenv(customSignerHostKey)
	c.CustomSignerSecretFile = os.Getenv(customSignerSecretFileKey)
	c.DatabaseHost = os.Getenv(databaseHostKey)
	c.DatabaseName = os.Getenv(databaseNameKey)
	c.DatabaseUser = os.Getenv(databaseUserKey)

	var err error
	if c.SBSAccessKey, err = readEnvFile(sbsAccessKeyFileKey); err != nil {
		return err
	}
	if c.SBSSecretKey, err = readEnvFile(sbsSecretKeyFileKey); err != nil {
		return err
	}
	if c.DatabasePassword, err = readEnvFile(databasePasswordFileKey); err != nil {
		return err
	}
	if c.JWTExpiresIn, err = readEnvUint(jwtExpiresInKey); err != nil {
		return err
	}
	if c.CustomSignerExpiresIn, err = readEnvUint(customSignerExpiresInKey); err != nil {
		return err
	}
	return nil
}

// readEnvFile resolves a *_FILE variable to the trimmed contents of the
// file it names. Unset is not an error; an unreadable file is.
func readEnvFile(key string) (string, error) {
	path := os.Getenv(key)
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file described by env variable %s: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func readEnvUint(key string) (uint64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for env variable %s: %w", key, err)
	}
	return v, nil
}

func requireString(key, value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("missing environment variable: %s", key)
	}
	return value, nil
}

func requireUint(key string, value uint64) (uint64, error) {
	if value == 0 {
		return 0, fmt.Errorf("missing environment variable: %s", key)
	}
	return value, nil
}
