// Package config loads issuebridge settings from a config file and the
// environment. Tracker options may be set globally under tracker.* and
// overridden per host project under projects.<slug>.tracker.*.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/steveyegge/issuebridge/internal/tracker"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// EnvPrefix prefixes every environment variable the config layer reads.
const EnvPrefix = "ISSUEBRIDGE"

// CacheSettings selects and tunes the label cache.
type CacheSettings struct {
	Backend  string
	RedisURL string
	TTL      time.Duration
}

// Config is the loaded configuration. It serves per-project tracker options
// to the adapter and implements tracker.ProjectStore.
type Config struct {
	v *viper.Viper

	mu        sync.RWMutex
	overrides map[string]string
}

var _ tracker.ProjectStore = (*Config)(nil)

// Load reads the config file at path. With an empty path it searches
// ./issuebridge.{yaml,toml,json} and then $HOME/.config/issuebridge/; no
// file at all is not an error. Environment variables ISSUEBRIDGE_<KEY>
// override file values, with dots in keys replaced by underscores.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, k := range Keys {
		if k.Default != "" {
			v.SetDefault(k.Key, k.Default)
		}
		_ = v.BindEnv(k.Key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("issuebridge")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "issuebridge"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	c := &Config{v: v, overrides: make(map[string]string)}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	for _, k := range Keys {
		if err := c.validateValue(k.Key, k.Key); err != nil {
			return err
		}
		if !k.PerProject {
			continue
		}
		for _, slug := range c.Projects() {
			if err := c.validateValue(k.Key, projectKey(slug, k.Key)); err != nil {
				return fmt.Errorf("project %s: %w", slug, err)
			}
		}
	}
	return nil
}

// validateValue checks the value stored at path against key's rules.
// Every key holds a single value; a YAML map or list would otherwise read
// back as "" and be dropped without notice.
func (c *Config) validateValue(key, path string) error {
	switch c.v.Get(path).(type) {
	case map[string]interface{}, []interface{}:
		return fmt.Errorf("%s must be a single value (write JSON options as a quoted string)", key)
	}
	return ValidateKey(key, c.v.GetString(path))
}

// File returns the config file that was read, or "" when none was found.
func (c *Config) File() string {
	return c.v.ConfigFileUsed()
}

// Cache returns the label cache settings.
func (c *Config) Cache() CacheSettings {
	ttl := c.v.GetDuration("cache.ttl")
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return CacheSettings{
		Backend:  strings.ToLower(c.v.GetString("cache.backend")),
		RedisURL: c.v.GetString("cache.redis_url"),
		TTL:      ttl,
	}
}

// Projects lists the slugs that have a projects.<slug> section, sorted.
func (c *Config) Projects() []string {
	section := c.v.GetStringMap("projects")
	slugs := make([]string, 0, len(section))
	for slug := range section {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Project resolves a slug to a host project. Unknown slugs are returned
// as-is and only see global options.
func (c *Config) Project(slug string) tracker.Project {
	p := tracker.Project{ID: slug, Slug: slug}
	if slug == "" {
		return p
	}
	if id := c.v.GetString("projects." + slug + ".id"); id != "" {
		p.ID = id
	}
	p.Name = c.v.GetString("projects." + slug + ".name")
	return p
}

// ProjectConfig implements tracker.ProjectStore.
func (c *Config) ProjectConfig(project tracker.Project) tracker.ConfigStore {
	return &projectStore{cfg: c, slug: strings.ToLower(project.Slug)}
}

func projectKey(slug, key string) string {
	return "projects." + slug + "." + key
}

func (c *Config) lookup(slug, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if slug != "" {
		pk := projectKey(slug, key)
		if v, ok := c.overrides[pk]; ok {
			return v
		}
		if v := c.v.GetString(pk); v != "" {
			return v
		}
	}
	if v, ok := c.overrides[key]; ok {
		return v
	}
	return c.v.GetString(key)
}

// projectStore is one project's view of the config.
type projectStore struct {
	cfg  *Config
	slug string
}

func (s *projectStore) GetConfig(_ context.Context, key string) (string, error) {
	return s.cfg.lookup(s.slug, key), nil
}

// SetConfig changes a value for the lifetime of the process. Nothing is
// written back to the config file.
func (s *projectStore) SetConfig(_ context.Context, key, value string) error {
	if err := ValidateKey(key, value); err != nil {
		return err
	}
	target := key
	if s.slug != "" {
		if k := LookupKey(key); k != nil && k.PerProject {
			target = projectKey(s.slug, key)
		}
	}

	s.cfg.mu.Lock()
	defer s.cfg.mu.Unlock()
	s.cfg.overrides[target] = value
	return nil
}

func (s *projectStore) GetAllConfig(_ context.Context) (map[string]string, error) {
	out := make(map[string]string)
	for _, k := range Keys {
		if !k.PerProject {
			continue
		}
		if v := s.cfg.lookup(s.slug, k.Key); v != "" {
			out[k.Key] = v
		}
	}
	return out, nil
}
