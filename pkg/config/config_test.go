package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/core-tools/hsu-gateway/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validServiceYAML = `
service:
  payer_private_key: "0xabc"
  redis_url: "redis://localhost:6379"
  app_chain_rpc_url: "http://localhost:8545"
  app_chain_wss_url: "ws://localhost:8546"
  settlement_chain_rpc_url: "http://localhost:7545"
  settlement_chain_wss_url: "ws://localhost:7546"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name:       "minimal_service_uses_defaults",
			configYAML: validServiceYAML,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "gateway", cfg.Supervisor.ServiceID)
				assert.Equal(t, "info", cfg.Supervisor.LogLevel)
				assert.Equal(t, "console", cfg.Supervisor.LogFormat)
				assert.Equal(t, 0, cfg.Service.Port)
				assert.True(t, cfg.Service.AutoRestartEnabled())
				assert.Equal(t, DefaultHealthCheckTimeout, cfg.Service.EffectiveHealthCheckTimeout())
				assert.Equal(t, time.Minute, cfg.Supervisor.Restart.Window)
			},
		},
		{
			name: "explicit_options",
			configYAML: validServiceYAML + `  port: 5999
  log_level: debug
  log_encoding: json
  health_check_timeout: 5s
  auto_restart: false
  contracts_environment: dev
binary:
  path: /opt/gateway/bin/xmtpd-gateway
supervisor:
  service_id: payer-gateway
  admin_address: "127.0.0.1:9100"
  restart:
    max_restarts: 3
    window: 30s
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5999, cfg.Service.Port)
				assert.Equal(t, "debug", cfg.Service.LogLevel)
				assert.Equal(t, "json", cfg.Service.LogEncoding)
				assert.Equal(t, 5*time.Second, cfg.Service.EffectiveHealthCheckTimeout())
				assert.False(t, cfg.Service.AutoRestartEnabled())
				assert.Equal(t, ContractsFormEnvironment, cfg.Service.ContractsForm())
				assert.Equal(t, "/opt/gateway/bin/xmtpd-gateway", cfg.Binary.Path)
				assert.Equal(t, "payer-gateway", cfg.Supervisor.ServiceID)
				assert.Equal(t, "127.0.0.1:9100", cfg.Supervisor.AdminAddress)
				assert.Equal(t, 3, cfg.Supervisor.Restart.MaxRestarts)
				assert.Equal(t, 30*time.Second, cfg.Supervisor.Restart.Window)
			},
		},
		{
			name:        "missing_required_fields",
			configYAML:  "service:\n  redis_url: \"redis://localhost:6379\"\n",
			expectError: true,
		},
		{
			name:        "invalid_log_encoding",
			configYAML:  validServiceYAML + "  log_encoding: xml\n",
			expectError: true,
		},
		{
			name:        "invalid_contracts_json",
			configYAML:  validServiceYAML + "  contracts_config_json: \"{not json\"\n",
			expectError: true,
		},
		{
			name:        "invalid_yaml",
			configYAML:  "service: [unclosed",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.configYAML))
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.IsValidationError(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsIOError(err))
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("HSU_GATEWAY_SERVICE__PORT", "6100")
	t.Setenv("HSU_GATEWAY_SUPERVISOR__LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, validServiceYAML))
	require.NoError(t, err)
	assert.Equal(t, 6100, cfg.Service.Port)
	assert.Equal(t, "warn", cfg.Supervisor.LogLevel)
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := defaultConfig()
	err := Validate(&cfg)
	require.Error(t, err)

	var collection *errors.ErrorCollection
	require.ErrorAs(t, err, &collection)
	assert.Len(t, collection.Errors, 6)
	assert.Contains(t, err.Error(), "PayerPrivateKey")
}

func TestContractsFormPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ServiceConfig
		expected ContractsForm
	}{
		{name: "none", cfg: ServiceConfig{}, expected: ContractsFormNone},
		{name: "file_only", cfg: ServiceConfig{ContractsConfigFilePath: "/c.json"}, expected: ContractsFormFilePath},
		{name: "json_over_file", cfg: ServiceConfig{ContractsConfigJSON: "{}", ContractsConfigFilePath: "/c.json"}, expected: ContractsFormJSON},
		{name: "environment_over_all", cfg: ServiceConfig{ContractsEnvironment: "dev", ContractsConfigJSON: "{}", ContractsConfigFilePath: "/c.json"}, expected: ContractsFormEnvironment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.ContractsForm())
		})
	}
}

func TestDumpRedactsSecrets(t *testing.T) {
	cfg, err := Load(writeConfig(t, validServiceYAML+"  extra_env:\n    API_TOKEN: secret\n"))
	require.NoError(t, err)

	out, err := Dump(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "0xabc")
	assert.NotContains(t, string(out), "secret")
	assert.Contains(t, string(out), "redis://localhost:6379")
	assert.Equal(t, "0xabc", cfg.Service.PayerPrivateKey)
}

func TestReadinessHTTPPathMustBeAbsolute(t *testing.T) {
	cfg, err := Load(writeConfig(t, validServiceYAML+"supervisor:\n  readiness_http_path: /healthz\n"))
	require.NoError(t, err)
	assert.Equal(t, "/healthz", cfg.Supervisor.ReadinessHTTPPath)

	_, err = Load(writeConfig(t, validServiceYAML+"supervisor:\n  readiness_http_path: healthz\n"))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
