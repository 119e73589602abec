package inventory

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/talkincode/cafestock/internal/domain"
)

// ValidationError lists the rules a product failed
type ValidationError struct {
	Violations []domain.Violation
}

func (e *ValidationError) Error() string {
	return "invalid product: " + domain.JoinViolations(e.Violations)
}

// NotFoundError reports an unknown product id
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ID)
}

// PersistenceError reports that storage refused a write. The in-memory collection is left unchanged.
type PersistenceError struct {
	Op string
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("could not persist products during %s", e.Op)
}

// ImportParseError reports import text that is not a product list
type ImportParseError struct {
	Reason string
}

func (e *ImportParseError) Error() string {
	return "import failed: " + e.Reason
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}
