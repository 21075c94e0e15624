package config

import (
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

// Dump renders cfg as YAML with secrets replaced.
func Dump(cfg *Config) ([]byte, error) {
	out := *cfg
	if out.Service.PayerPrivateKey != "" {
		out.Service.PayerPrivateKey = redacted
	}
	if len(cfg.Service.ExtraEnv) > 0 {
		out.Service.ExtraEnv = make(map[string]string, len(cfg.Service.ExtraEnv))
		for k := range cfg.Service.ExtraEnv {
			out.Service.ExtraEnv[k] = redacted
		}
	}
	return yaml.Marshal(&out)
}
