package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when a unique constraint rejects a write
var ErrDuplicate = errors.New("duplicate key")

// IsNotFoundError reports whether err means the row does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err came from a unique constraint
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
