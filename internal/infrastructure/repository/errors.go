package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
)

// translate turns driver errors into domain errors where the caller can act on
// them and wraps everything else with the failing operation.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domain.ReferenceError{Reason: "referenced artwork or course does not exist"}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ConflictError{Code: domain.CodeConflict, Reason: "duplicate entry"}
	}

	return errors.Wrap(err, op)
}
