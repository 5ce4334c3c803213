// Package settings loads the operator-level configuration file: cache
// location, remote cache credentials, and execution defaults. Pipeline
// semantics live in the pipeline definition, not here.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/vk/gridci/internal/cache"
)

// CacheSettings selects where dependency snapshots are kept locally.
type CacheSettings struct {
	Dir string `toml:"dir"`
}

// S3Settings configures the remote snapshot store. Leaving Endpoint empty
// disables it.
type S3Settings struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Enabled reports whether a remote cache store is configured.
func (s S3Settings) Enabled() bool {
	return s.Endpoint != ""
}

// CacheConfig converts the settings block into the cache package's config.
func (s S3Settings) CacheConfig() cache.S3Config {
	return cache.S3Config{
		Endpoint:  s.Endpoint,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		Region:    s.Region,
		Bucket:    s.Bucket,
		UseSSL:    s.UseSSL,
	}
}

// Settings holds all operator configuration.
type Settings struct {
	Workers int           `toml:"workers"`
	Cache   CacheSettings `toml:"cache"`
	S3      S3Settings    `toml:"s3"`
}

const defaultWorkers = 4

// WorkersOrDefault returns Workers if set, otherwise defaultWorkers.
func (s Settings) WorkersOrDefault() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return defaultWorkers
}

// CacheDirOrDefault returns the configured local cache directory, or a
// per-user default under the home directory.
func (s Settings) CacheDirOrDefault() string {
	if s.Cache.Dir != "" {
		return s.Cache.Dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "gridci")
}

// LoadFrom reads settings from the given TOML file path. A missing file
// yields empty settings without error. Environment variables always take
// precedence over file values:
//   - GRIDCI_CACHE_DIR     overrides cache.dir
//   - GRIDCI_S3_ENDPOINT   overrides s3.endpoint
//   - GRIDCI_S3_ACCESS_KEY overrides s3.access_key
//   - GRIDCI_S3_SECRET_KEY overrides s3.secret_key
//   - GRIDCI_S3_REGION     overrides s3.region
//   - GRIDCI_S3_BUCKET     overrides s3.bucket
func LoadFrom(path string) (Settings, error) {
	var s Settings
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &s); err != nil {
			return Settings{}, fmt.Errorf("decoding settings file %s: %w", path, err)
		}
	}
	applyEnvOverrides(&s)
	return s, nil
}

// DefaultPath returns the default location of the settings file.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gridci", "config.toml")
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("GRIDCI_CACHE_DIR"); v != "" {
		s.Cache.Dir = v
	}
	if v := os.Getenv("GRIDCI_S3_ENDPOINT"); v != "" {
		s.S3.Endpoint = v
	}
	if v := os.Getenv("GRIDCI_S3_ACCESS_KEY"); v != "" {
		s.S3.AccessKey = v
	}
	if v := os.Getenv("GRIDCI_S3_SECRET_KEY"); v != "" {
		s.S3.SecretKey = v
	}
	if v := os.Getenv("GRIDCI_S3_REGION"); v != "" {
		s.S3.Region = v
	}
	if v := os.Getenv("GRIDCI_S3_BUCKET"); v != "" {
		s.S3.Bucket = v
	}
}
