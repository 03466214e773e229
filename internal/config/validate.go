package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const minimumKeyValidity = time.Second

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	return validate
}

// Validate checks the semantic constraints of the configuration that cannot
// be expressed through defaults.
func Validate(cfg *Config) error {
	err := getValidator().Struct(cfg)
	if err == nil {
		return checkKeyRing(cfg.KeyRing)
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validating config: %w", err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s: failed on %q", e.Namespace(), e.Tag()))
	}

	return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
}

func checkKeyRing(cfg KeyRing) error {
	if cfg.Validity < minimumKeyValidity {
		return fmt.Errorf("invalid config: keyRing.validity must be at least %s", minimumKeyValidity)
	}
	if cfg.RotationWindow < 0 || cfg.RotationWindow >= cfg.Validity {
		return errors.New("invalid config: keyRing.rotationWindow must be within [0, keyRing.validity)")
	}

	return nil
}
