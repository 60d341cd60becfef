package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by non-gorm repositories (identity provider) for missing records
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate signals a unique constraint violation
	ErrDuplicate = errors.New("duplicate record")
	// ErrStateChanged is returned when a conditional status update matched no row
	ErrStateChanged = errors.New("record state changed concurrently")
)

// IsNotFoundError reports whether err means the requested record does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound)
}

// IsDuplicateKeyError reports whether err is a unique constraint violation
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// Drivers without error translation surface the raw message
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// IsStateChangedError reports whether a conditional update lost a race
func IsStateChangedError(err error) bool {
	return errors.Is(err, ErrStateChanged)
}
