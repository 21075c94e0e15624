package config

import (
	"os"
	"strings"

	"github.com/core-tools/hsu-gateway/pkg/errors"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override file settings.
// Nesting uses a double underscore:
// HSU_GATEWAY_SERVICE__REDIS_URL -> service.redis_url
const EnvPrefix = "HSU_GATEWAY_"

// ConfigPathEnvVar names a config file when no path is given explicitly.
const ConfigPathEnvVar = "HSU_GATEWAY_CONFIG"

// Load layers defaults, the optional YAML file at path, and environment
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, errors.NewInternalError("failed to load configuration defaults", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, errors.NewInternalError("failed to load environment overrides", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.NewValidationError("failed to decode configuration", err).WithContext("filename", path)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envTransformFunc(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
