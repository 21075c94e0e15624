package config

import (
	"time"
)

// ServiceConfig is everything the gateway needs to launch. It is treated
// as immutable once passed to the supervisor.
type ServiceConfig struct {
	PayerPrivateKey       string `koanf:"payer_private_key" yaml:"payer_private_key" validate:"required"`
	RedisURL              string `koanf:"redis_url" yaml:"redis_url" validate:"required,url"`
	AppChainRPCURL        string `koanf:"app_chain_rpc_url" yaml:"app_chain_rpc_url" validate:"required,url"`
	AppChainWSSURL        string `koanf:"app_chain_wss_url" yaml:"app_chain_wss_url" validate:"required,url"`
	SettlementChainRPCURL string `koanf:"settlement_chain_rpc_url" yaml:"settlement_chain_rpc_url" validate:"required,url"`
	SettlementChainWSSURL string `koanf:"settlement_chain_wss_url" yaml:"settlement_chain_wss_url" validate:"required,url"`

	// Port pins the listening port. Zero means auto-select.
	Port        int    `koanf:"port" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	LogLevel    string `koanf:"log_level" yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogEncoding string `koanf:"log_encoding" yaml:"log_encoding,omitempty" validate:"omitempty,oneof=console json"`

	NodeSelectorStrategy string `koanf:"node_selector_strategy" yaml:"node_selector_strategy,omitempty"`

	// Contracts configuration. When several are set, environment wins over
	// inline JSON, which wins over file path.
	ContractsEnvironment    string `koanf:"contracts_environment" yaml:"contracts_environment,omitempty"`
	ContractsConfigJSON     string `koanf:"contracts_config_json" yaml:"contracts_config_json,omitempty" validate:"omitempty,json"`
	ContractsConfigFilePath string `koanf:"contracts_config_file_path" yaml:"contracts_config_file_path,omitempty"`

	// HealthCheckTimeout bounds the readiness wait. Zero means 30s.
	HealthCheckTimeout time.Duration `koanf:"health_check_timeout" yaml:"health_check_timeout,omitempty" validate:"gte=0"`
	// AutoRestart defaults to enabled when nil.
	AutoRestart *bool `koanf:"auto_restart" yaml:"auto_restart,omitempty"`

	// ExtraEnv entries are added to the child environment before the
	// gateway's own keys, which always take precedence.
	ExtraEnv map[string]string `koanf:"extra_env" yaml:"extra_env,omitempty"`
}

const DefaultHealthCheckTimeout = 30 * time.Second

// AutoRestartEnabled applies the enabled-by-default rule.
func (c ServiceConfig) AutoRestartEnabled() bool {
	return c.AutoRestart == nil || *c.AutoRestart
}

// EffectiveHealthCheckTimeout applies the default timeout.
func (c ServiceConfig) EffectiveHealthCheckTimeout() time.Duration {
	if c.HealthCheckTimeout <= 0 {
		return DefaultHealthCheckTimeout
	}
	return c.HealthCheckTimeout
}

// ContractsForm names the contracts option in effect after precedence.
type ContractsForm string

const (
	ContractsFormNone        ContractsForm = ""
	ContractsFormEnvironment ContractsForm = "environment"
	ContractsFormJSON        ContractsForm = "json"
	ContractsFormFilePath    ContractsForm = "file_path"
)

func (c ServiceConfig) ContractsForm() ContractsForm {
	switch {
	case c.ContractsEnvironment != "":
		return ContractsFormEnvironment
	case c.ContractsConfigJSON != "":
		return ContractsFormJSON
	case c.ContractsConfigFilePath != "":
		return ContractsFormFilePath
	}
	return ContractsFormNone
}

// BinaryConfig controls where the gateway executable comes from.
type BinaryConfig struct {
	// Path overrides platform package lookup entirely.
	Path       string   `koanf:"path" yaml:"path,omitempty"`
	SearchDirs []string `koanf:"search_dirs" yaml:"search_dirs,omitempty"`
}

// RestartGuardConfig caps automatic restarts. MaxRestarts zero is unlimited.
type RestartGuardConfig struct {
	MaxRestarts int           `koanf:"max_restarts" yaml:"max_restarts" validate:"gte=0"`
	Window      time.Duration `koanf:"window" yaml:"window" validate:"gte=0"`
}

// SupervisorOptions configures the host around the gateway.
type SupervisorOptions struct {
	ServiceID          string             `koanf:"service_id" yaml:"service_id" validate:"required,printascii,excludesall=/\\ "`
	LogLevel           string             `koanf:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat          string             `koanf:"log_format" yaml:"log_format" validate:"oneof=console json"`
	AdminAddress       string             `koanf:"admin_address" yaml:"admin_address,omitempty" validate:"omitempty,hostname_port"`
	ProcessFileDir     string             `koanf:"process_file_dir" yaml:"process_file_dir,omitempty"`
	WatchContractsFile bool               `koanf:"watch_contracts_file" yaml:"watch_contracts_file"`
	// ReadinessHTTPPath switches readiness from the port probe to an HTTP
	// 2xx check against this path on the gateway's port.
	ReadinessHTTPPath  string             `koanf:"readiness_http_path" yaml:"readiness_http_path,omitempty" validate:"omitempty,startswith=/"`
	ShutdownTimeout    time.Duration      `koanf:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gte=0"`
	Restart            RestartGuardConfig `koanf:"restart" yaml:"restart"`
}

// Config is the top-level configuration file structure.
type Config struct {
	Service    ServiceConfig     `koanf:"service" yaml:"service"`
	Binary     BinaryConfig      `koanf:"binary" yaml:"binary"`
	Supervisor SupervisorOptions `koanf:"supervisor" yaml:"supervisor"`
}

func defaultConfig() Config {
	return Config{
		Supervisor: SupervisorOptions{
			ServiceID:       "gateway",
			LogLevel:        "info",
			LogFormat:       "console",
			ShutdownTimeout: 10 * time.Second,
			Restart: RestartGuardConfig{
				Window: time.Minute,
			},
		},
	}
}
