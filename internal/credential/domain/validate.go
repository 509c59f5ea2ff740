package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the settings bounds.
func (s Settings) Validate() error {
	return describe(validatorInstance().Struct(s))
}

// ValidateMappings checks that every mapping names both sides.
func ValidateMappings(mappings []PaymentMapping) error {
	for _, m := range mappings {
		if err := describe(validatorInstance().Struct(m)); err != nil {
			return err
		}
	}
	return nil
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(parts, ", "))
}
