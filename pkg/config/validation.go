package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration using struct tags plus the rules that
// cannot be expressed declaratively.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if _, err := net.ResolveTCPAddr("tcp", cfg.Server.Address); err != nil {
		return fmt.Errorf("server.address: %q is not a valid TCP address: %w",
			cfg.Server.Address, err)
	}

	if cfg.Portmap.Enabled {
		if _, err := net.ResolveTCPAddr("tcp", cfg.Portmap.Address); err != nil {
			return fmt.Errorf("portmap.address: %q is not a valid TCP address: %w",
				cfg.Portmap.Address, err)
		}
	}

	return nil
}

// formatValidationError converts validator errors into readable messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
