package service

import (
	"fmt"

	"github.com/smallbiznis/ordersync/internal/credential/domain"
)

func missingField(name string) error {
	return fmt.Errorf("%w: %s is required", domain.ErrMissingField, name)
}
