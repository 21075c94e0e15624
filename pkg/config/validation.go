package config

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/core-tools/hsu-gateway/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the whole configuration and reports every violation.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.NewValidationError("configuration is nil", nil)
	}
	return collect(validatorInstance().Struct(cfg))
}

// ValidateServiceConfig checks only the gateway launch settings.
func ValidateServiceConfig(cfg ServiceConfig) error {
	return collect(validatorInstance().Struct(cfg))
}

func collect(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.NewValidationError("invalid configuration", err)
	}

	collection := errors.NewErrorCollection()
	for _, fe := range fieldErrs {
		msg := fmt.Sprintf("field %s failed '%s' check", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("field %s failed '%s=%s' check", fe.Namespace(), fe.Tag(), fe.Param())
		}
		collection.Add(errors.NewValidationError(msg, nil).WithContext("field", fe.Field()))
	}
	return collection.ToError()
}
