// Package config holds the runtime settings for the mcore components.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mcore-ai/mcore/pkg/charset"
)

// Environment variables recognized by FromEnv.
const (
	EnvStoragePath     = "MCORE_STORAGE_PATH"
	EnvDefaultFileExt  = "MCORE_DEFAULT_FILE_EXT"
	EnvDefaultEncoding = "MCORE_DEFAULT_ENCODING"
)

// Config holds the settings consumed by the storage component.
type Config struct {
	// StoragePath is the root directory relative file names resolve against.
	StoragePath string

	// DefaultFileExt is appended to logical names without an extension.
	// The leading dot is optional; FileExt normalizes it.
	DefaultFileExt string

	// DefaultEncoding is the charset used when writing text. Reads ignore it
	// and auto-detect the charset from the stored bytes instead.
	DefaultEncoding string
}

// Default returns the settings used when nothing is configured explicitly.
func Default() Config {
	return Config{
		StoragePath:     "storage",
		DefaultFileExt:  ".txt",
		DefaultEncoding: "utf-8",
	}
}

// FileExt returns the default extension normalized to carry a leading dot.
// An empty extension stays empty, meaning bare names are written as-is.
func (c Config) FileExt() string {
	ext := c.DefaultFileExt
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.StoragePath) == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	if c.DefaultEncoding != "" {
		if _, err := charset.Lookup(c.DefaultEncoding); err != nil {
			return fmt.Errorf("invalid default encoding: %w", err)
		}
	}
	return nil
}

// FromEnv builds a Config from the process environment, falling back to
// Default for unset variables.
func FromEnv() Config {
	cfg := Default()
	if v := os.Getenv(EnvStoragePath); v != "" {
		cfg.StoragePath = v
	}
	if v := os.Getenv(EnvDefaultFileExt); v != "" {
		cfg.DefaultFileExt = v
	}
	if v := os.Getenv(EnvDefaultEncoding); v != "" {
		cfg.DefaultEncoding = v
	}
	return cfg
}

// LoadEnvFile merges a dotenv file into the process environment. Variables
// already present in the environment keep their values.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Provider supplies the current configuration to a component. It is invoked
// on every operation, so implementations may return different values between
// calls and components pick the changes up immediately.
type Provider func() Config

// Static returns a Provider that always yields cfg.
func Static(cfg Config) Provider {
	return func() Config { return cfg }
}

// Env returns a Provider that re-reads the process environment on each call.
func Env() Provider {
	return FromEnv
}
