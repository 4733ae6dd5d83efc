package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ridehail/internal/repository"
)

const uniqueViolation pq.ErrorCode = "23505"

// mapWriteError converts driver errors into repository errors.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pqErr.Constraint)
	}
	return err
}
