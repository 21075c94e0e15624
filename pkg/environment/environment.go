// Package environment derives the gateway's process environment from a
// ServiceConfig. The variable names are a contract with the gateway binary.
package environment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-gateway/pkg/config"
)

const (
	KeyAPIPort                 = "XMTPD_API_PORT"
	KeyAPIEnable               = "XMTPD_API_ENABLE"
	KeyPayerEnable             = "XMTPD_PAYER_ENABLE"
	KeyPayerPrivateKey         = "XMTPD_PAYER_PRIVATE_KEY"
	KeyRedisURL                = "XMTPD_REDIS_URL"
	KeyAppChainRPCURL          = "XMTPD_APP_CHAIN_RPC_URL"
	KeyAppChainWSSURL          = "XMTPD_APP_CHAIN_WSS_URL"
	KeySettlementChainRPCURL   = "XMTPD_SETTLEMENT_CHAIN_RPC_URL"
	KeySettlementChainWSSURL   = "XMTPD_SETTLEMENT_CHAIN_WSS_URL"
	KeyLogEncoding             = "XMTPD_LOG_ENCODING"
	KeyLogLevel                = "XMTPD_LOG_LEVEL"
	KeyContractsEnvironment    = "XMTPD_CONTRACTS_ENVIRONMENT"
	KeyContractsConfigJSON     = "XMTPD_CONTRACTS_CONFIG_JSON"
	KeyContractsConfigFilePath = "XMTPD_CONTRACTS_CONFIG_FILE_PATH"
	KeyNodeSelectorStrategy    = "XMTPD_PAYER_NODE_SELECTOR_STRATEGY"

	DefaultLogEncoding = "console"
	DefaultLogLevel    = "info"
)

// Build returns base (in KEY=VALUE form) overlaid with the gateway keys.
// Base is not modified.
func Build(cfg config.ServiceConfig, port int, base []string) map[string]string {
	env := make(map[string]string, len(base)+16)
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	for k, v := range cfg.ExtraEnv {
		env[k] = v
	}

	env[KeyAPIPort] = strconv.Itoa(port)
	env[KeyAPIEnable] = "true"
	env[KeyPayerEnable] = "true"
	env[KeyPayerPrivateKey] = cfg.PayerPrivateKey
	env[KeyRedisURL] = cfg.RedisURL
	env[KeyAppChainRPCURL] = cfg.AppChainRPCURL
	env[KeyAppChainWSSURL] = cfg.AppChainWSSURL
	env[KeySettlementChainRPCURL] = cfg.SettlementChainRPCURL
	env[KeySettlementChainWSSURL] = cfg.SettlementChainWSSURL
	env[KeyLogEncoding] = orDefault(cfg.LogEncoding, DefaultLogEncoding)
	env[KeyLogLevel] = orDefault(cfg.LogLevel, DefaultLogLevel)

	// Exactly one contracts key survives, even if the parent environment
	// carried others.
	delete(env, KeyContractsEnvironment)
	delete(env, KeyContractsConfigJSON)
	delete(env, KeyContractsConfigFilePath)
	switch cfg.ContractsForm() {
	case config.ContractsFormEnvironment:
		env[KeyContractsEnvironment] = cfg.ContractsEnvironment
	case config.ContractsFormJSON:
		env[KeyContractsConfigJSON] = cfg.ContractsConfigJSON
	case config.ContractsFormFilePath:
		env[KeyContractsConfigFilePath] = cfg.ContractsConfigFilePath
	}

	if cfg.NodeSelectorStrategy != "" {
		env[KeyNodeSelectorStrategy] = cfg.NodeSelectorStrategy
	}

	return env
}

// List flattens env into sorted KEY=VALUE entries for exec.Cmd.
func List(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

// URL is the address callers use to reach the gateway on port.
func URL(port int) string {
	return "http://localhost:" + strconv.Itoa(port)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
