package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/issuebridge/internal/tracker/adapter"
)

// Key describes a known configuration key.
type Key struct {
	Key         string // Full key name (e.g., "tracker.host")
	Description string
	Secret      bool // Never printed in clear text
	PerProject  bool // May be overridden under projects.<slug>.
	Default     string
	Validate    func(string) error
}

// Keys defines every key the tool reads.
var Keys = []Key{
	{
		Key:         "tracker.host",
		Description: "Base URL of the tracker",
		PerProject:  true,
	},
	{
		Key:         "tracker.key",
		Description: "Tracker API key",
		Secret:      true,
		PerProject:  true,
	},
	{
		Key:         "tracker.project_id",
		Description: "Tracker project that receives new issues",
		PerProject:  true,
	},
	{
		Key:         "tracker.tracker_id",
		Description: "Tracker (issue category) for new issues",
		PerProject:  true,
	},
	{
		Key:         "tracker.default_priority",
		Description: "Priority id for new issues",
		PerProject:  true,
		Validate:    validateInt,
	},
	{
		Key:         "tracker.extra_fields",
		Description: "JSON object merged into every created issue",
		PerProject:  true,
		Validate:    validateExtraFields,
	},
	{
		Key:         "cache.backend",
		Description: "Label cache backend (memory, redis)",
		Default:     "memory",
		Validate:    validateBackend,
	},
	{
		Key:         "cache.redis_url",
		Description: "Redis connection URL for the redis backend",
		Secret:      true,
	},
	{
		Key:         "cache.ttl",
		Description: "Issue label cache lifetime",
		Default:     adapter.IssueCacheTimeout.String(),
		Validate:    validateDuration,
	},
}

var keyMap map[string]*Key

func init() {
	keyMap = make(map[string]*Key, len(Keys))
	for i := range Keys {
		keyMap[Keys[i].Key] = &Keys[i]
	}
}

// LookupKey returns the definition of key, or nil for unknown keys.
func LookupKey(key string) *Key {
	return keyMap[key]
}

// IsSecret reports whether values of key must be redacted.
func IsSecret(key string) bool {
	k := keyMap[key]
	return k != nil && k.Secret
}

// ValidateKey checks that key is known and value acceptable for it.
func ValidateKey(key, value string) error {
	k := keyMap[key]
	if k == nil {
		known := make([]string, 0, len(Keys))
		for _, k := range Keys {
			known = append(known, k.Key)
		}
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(known, ", "))
	}
	if k.Validate != nil && value != "" {
		if err := k.Validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}
	return nil
}

// Redact hides the value of secret keys.
func Redact(key, value string) string {
	if value == "" || !IsSecret(key) {
		return value
	}
	return "********"
}

func validateInt(value string) error {
	if _, err := strconv.Atoi(value); err != nil {
		return fmt.Errorf("must be a number, got %q", value)
	}
	return nil
}

func validateDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 60s, got %q", value)
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	return nil
}

func validateBackend(value string) error {
	switch strings.ToLower(value) {
	case BackendMemory, BackendRedis:
		return nil
	default:
		return fmt.Errorf("must be one of: %s, %s; got %q", BackendMemory, BackendRedis, value)
	}
}

func validateExtraFields(value string) error {
	_, err := adapter.ParseExtraFields(value)
	return err
}
