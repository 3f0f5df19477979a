package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/formatkit/errors"
)

// EnvPrefix prefixes every environment override, e.g. FORMATKIT_HTTP_PORT.
const EnvPrefix = "FORMATKIT"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	getenv     func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: EnvPrefix,
		getenv:    os.Getenv,
	}
}

// AddLayer adds a configuration file layer (.json, .yaml or .yml)
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables Config.Validate at the end of Load
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, every layer and the environment.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("load layer %s", path))
		}
		if err := validateSchema(raw); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("schema check of %s", path))
		}
		parseDurations(raw)
		cfg, err = mergeFromMap(cfg, raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("merge layer %s", path))
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "environment overrides")
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, errors.WrapFatal(err, "Loader", "Load", "config validation")
		}
	}

	return cfg, nil
}

// loadRaw reads one layer into a generic map, dispatching on the extension.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
		}
	default:
		if err := checkJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// parseDurations rewrites duration strings as nanoseconds so they decode
// into time.Duration fields.
func parseDurations(raw map[string]any) {
	convert := func(section, key string) {
		m, ok := raw[section].(map[string]any)
		if !ok {
			return
		}
		if s, ok := m[key].(string); ok {
			if d, err := time.ParseDuration(s); err == nil {
				m[key] = d.Nanoseconds()
			}
		}
	}
	convert("http", "request_timeout")
	for _, key := range []string{"reconnect_wait", "ping_interval", "drain_timeout", "handler_timeout"} {
		convert("nats", key)
	}
}

// mergeFromMap overlays override onto base through their JSON map forms.
func mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

// applyEnvOverrides applies FORMATKIT_* variables on top of the file layers.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	var firstErr error
	get := func(name string) (string, bool) {
		key := l.envPrefix + "_" + name
		val := l.getenv(key)
		if val == "" {
			return "", false
		}
		if err := checkEnvValue(key, val); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return "", false
		}
		return val, true
	}
	setInt := func(name string, dst *int) {
		if val, ok := get(name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s_%s: %w", l.envPrefix, name, err)
				}
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if val, ok := get(name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s_%s: %w", l.envPrefix, name, err)
				}
				return
			}
			*dst = b
		}
	}
	setList := func(name string, dst *[]string) {
		if val, ok := get(name); ok {
			parts := strings.Split(val, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			*dst = out
		}
	}

	if val, ok := get("LOG_LEVEL"); ok {
		cfg.Log.Level = strings.ToLower(val)
	}
	if val, ok := get("LOG_FORMAT"); ok {
		cfg.Log.Format = strings.ToLower(val)
	}

	setBool("HTTP_ENABLED", &cfg.HTTP.Enabled)
	setInt("HTTP_PORT", &cfg.HTTP.Port)
	setBool("HTTP_ENABLE_CORS", &cfg.HTTP.EnableCORS)

	setBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("METRICS_PORT", &cfg.Metrics.Port)

	setBool("NATS_ENABLED", &cfg.NATS.Enabled)
	setList("NATS_URLS", &cfg.NATS.URLs)
	if val, ok := get("NATS_SUBJECT"); ok {
		cfg.NATS.Subject = val
	}
	if val, ok := get("NATS_USER"); ok {
		cfg.NATS.User = val
	}
	if val, ok := get("NATS_PASSWORD"); ok {
		cfg.NATS.Password = val
	}
	if val, ok := get("NATS_TOKEN"); ok {
		cfg.NATS.Token = val
	}

	setList("FORMATS_DISABLED", &cfg.Formats.Disabled)

	return firstErr
}
