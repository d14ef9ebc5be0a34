package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isUniqueViolation matches unique-index failures from both postgres and
// the sqlite driver used in tests; gorm only translates them when the
// dialector opts in, so the message check stays as fallback.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint")
}
