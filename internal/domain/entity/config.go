package entity

import (
	"encoding/json"
	"fmt"
)

// KeyMaxWorkers is the worker-pool size every stage configuration must
// carry.
const KeyMaxWorkers = "max_workers"

// StageConfig holds the configuration options for one stage instance,
// decoded from a JSON document. It is treated as immutable after
// construction.
type StageConfig map[string]any

// ParseStageConfig decodes a JSON document into a StageConfig.
func ParseStageConfig(data []byte) (StageConfig, error) {
	cfg := StageConfig{}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse stage config: %w", err)
	}
	return cfg, nil
}

// ConfigError reports a required configuration key that is missing or
// holds a value of the wrong kind. It aborts stage construction.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("stage config key %q: %s", e.Key, e.Reason)
}

// Int returns a required integer option. JSON numbers arrive as
// float64; values with a fractional part are rejected.
func (c StageConfig) Int(key string) (int, error) {
	v, ok := c[key]
	if !ok {
		return 0, &ConfigError{Key: key, Reason: "missing"}
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != float64(int(n)) {
			return 0, &ConfigError{Key: key, Reason: "not an integer"}
		}
		return int(n), nil
	default:
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("expected integer, got %T", v)}
	}
}

// IntOr returns an optional integer option, falling back to def when the
// key is absent.
func (c StageConfig) IntOr(key string, def int) (int, error) {
	if _, ok := c[key]; !ok {
		return def, nil
	}
	return c.Int(key)
}

// Bool returns a required boolean option.
func (c StageConfig) Bool(key string) (bool, error) {
	v, ok := c[key]
	if !ok {
		return false, &ConfigError{Key: key, Reason: "missing"}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ConfigError{Key: key, Reason: fmt.Sprintf("expected bool, got %T", v)}
	}
	return b, nil
}

// String returns a required string option.
func (c StageConfig) String(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", &ConfigError{Key: key, Reason: "missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ConfigError{Key: key, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

// MaxWorkers returns the validated worker-pool size.
func (c StageConfig) MaxWorkers() (int, error) {
	n, err := c.Int(KeyMaxWorkers)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, &ConfigError{Key: KeyMaxWorkers, Reason: "must be a positive integer"}
	}
	return n, nil
}
