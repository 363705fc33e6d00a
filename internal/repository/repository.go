// Package repository holds the GORM implementations of the domain
// repository interfaces. Every constructor takes a *gorm.DB so services can
// build repositories bound to a transaction.
package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// mapError converts GORM errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, "already exists", err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) || isForeignKeyError(err) {
		return domain.NewAppError(domain.CodeConflict, "referenced by other records", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// notFound maps a missing row to a resource-specific error and leaves other
// errors to mapError.
func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(resource)
	}
	return mapError(err)
}

// isDuplicateKeyError detects unique constraint violations by examining the
// error message. Not every dialector translates driver errors to
// gorm.ErrDuplicatedKey.
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

func isForeignKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint") ||
		strings.Contains(msg, "violates foreign key")
}

// likePattern builds a case-insensitive LIKE argument for a LOWER(column)
// comparison.
func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
