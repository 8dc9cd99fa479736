package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates Config using struct tags plus the cross-field rule that
// JWT_SECRET is required exactly when JWT_ALG is HS256 and JWT_PRIVATE_KEY /
// JWT_PUBLIC_KEY are required exactly when JWT_ALG is RS256.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	return c.validateJWTKeyMaterial()
}

func (c *Config) validateJWTKeyMaterial() error {
	switch c.JWT.Alg {
	case "HS256":
		if c.JWT.Secret == "" {
			return errors.New("jwt: JWT_SECRET is required when JWT_ALG=HS256")
		}
	case "RS256":
		if c.JWT.PrivateKey == "" || c.JWT.PublicKey == "" {
			return errors.New("jwt: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are both required when JWT_ALG=RS256")
		}
	}
	return nil
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
