package monitoring

import (
	"strings"

	"github.com/core-tools/hsu-gateway/pkg/errors"
)

// ValidateReadinessConfig validates a readiness configuration after
// defaults have been applied.
func ValidateReadinessConfig(config ReadinessConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return errors.NewValidationError("port must be between 1 and 65535", nil).WithContext("port", config.Port)
	}

	switch config.Type {
	case HealthCheckTypePort:
	case HealthCheckTypeHTTP:
		if !strings.HasPrefix(config.HTTP.Path, "/") {
			return errors.NewValidationError("HTTP health check path must start with '/'", nil).
				WithContext("path", config.HTTP.Path)
		}
	default:
		return errors.NewValidationError("unsupported health check type: "+string(config.Type), nil)
	}

	return nil
}
