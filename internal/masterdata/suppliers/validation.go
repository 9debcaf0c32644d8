package suppliers

import (
	"fmt"
	"net/mail"
	"strings"

	internalShared "github.com/greenstock-ops/greenstock/internal/shared"
)

func (s *Service) validate(sup Supplier) error {
	if strings.TrimSpace(sup.Code) == "" {
		return fmt.Errorf("%w: supplier code is required", internalShared.ErrValidation)
	}
	if strings.TrimSpace(sup.Name) == "" {
		return fmt.Errorf("%w: supplier name is required", internalShared.ErrValidation)
	}
	if sup.Email != "" {
		if _, err := mail.ParseAddress(sup.Email); err != nil {
			return fmt.Errorf("%w: invalid supplier email", internalShared.ErrValidation)
		}
	}
	return nil
}
