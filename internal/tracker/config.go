package tracker

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultPrefix is the config key prefix for tracker options.
const DefaultPrefix = "tracker"

// Config holds configuration for a tracker integration.
// It wraps the config storage and provides a consistent interface
// for accessing tracker-specific settings.
type Config struct {
	// Prefix is the config key prefix for this tracker (e.g., "tracker")
	Prefix string

	// Store provides access to the config storage
	Store ConfigStore

	// Context for config operations
	Ctx context.Context
}

// ConfigStore provides access to a project's configuration.
type ConfigStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
	GetAllConfig(ctx context.Context) (map[string]string, error)
}

// NewConfig creates a new tracker config with the given prefix and store.
func NewConfig(ctx context.Context, prefix string, store ConfigStore) *Config {
	return &Config{
		Prefix: prefix,
		Store:  store,
		Ctx:    ctx,
	}
}

// Get retrieves a config value by key, checking both the config store
// and environment variables. The key should not include the tracker prefix.
// Example: cfg.Get("key") for "tracker" prefix looks up "tracker.key"
// and falls back to the "TRACKER_KEY" env var.
func (c *Config) Get(key string) (string, error) {
	fullKey := c.Prefix + "." + key

	if c.Store != nil {
		value, err := c.Store.GetConfig(c.Ctx, fullKey)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", fullKey, err)
		}
		if value = strings.TrimSpace(value); value != "" {
			return value, nil
		}
	}

	if value := strings.TrimSpace(os.Getenv(c.envVarName(key))); value != "" {
		return value, nil
	}

	return "", nil
}

// GetRequired is like Get but returns a ConfigurationError if the value is empty.
func (c *Config) GetRequired(key string) (string, error) {
	value, err := c.Get(key)
	if err != nil {
		return "", &ConfigurationError{Key: c.Prefix + "." + key, Err: err}
	}
	if value == "" {
		return "", &ConfigurationError{
			Key: c.Prefix + "." + key,
			Err: fmt.Errorf("%w (set %s.%s in the config file or export %s)", ErrNotConfigured, c.Prefix, key, c.envVarName(key)),
		}
	}
	return value, nil
}

// Set stores a config value.
func (c *Config) Set(key, value string) error {
	if c.Store == nil {
		return fmt.Errorf("config store not available")
	}
	fullKey := c.Prefix + "." + key
	return c.Store.SetConfig(c.Ctx, fullKey, value)
}

// GetAll returns all config values with the tracker's prefix.
func (c *Config) GetAll() (map[string]string, error) {
	if c.Store == nil {
		return make(map[string]string), nil
	}

	all, err := c.Store.GetAllConfig(c.Ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string)
	prefix := c.Prefix + "."
	for key, value := range all {
		if strings.HasPrefix(key, prefix) {
			result[strings.TrimPrefix(key, prefix)] = value
		}
	}
	return result, nil
}

// envVarName converts a config key to its environment variable name.
// Example: for prefix "tracker" and key "project_id", returns "TRACKER_PROJECT_ID"
func (c *Config) envVarName(key string) string {
	envKey := strings.ToUpper(c.Prefix + "_" + key)
	envKey = strings.ReplaceAll(envKey, ".", "_")
	return envKey
}

// MapStore is a ConfigStore backed by a plain map. Useful for hosts that
// already hold a project's options in memory, and for tests.
type MapStore map[string]string

// GetConfig implements ConfigStore.
func (m MapStore) GetConfig(_ context.Context, key string) (string, error) {
	return m[key], nil
}

// SetConfig implements ConfigStore.
func (m MapStore) SetConfig(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}

// GetAllConfig implements ConfigStore.
func (m MapStore) GetAllConfig(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

// StaticProjects serves the same store to every project.
type StaticProjects struct {
	Store ConfigStore
}

// ProjectConfig implements ProjectStore.
func (s StaticProjects) ProjectConfig(Project) ConfigStore {
	return s.Store
}
