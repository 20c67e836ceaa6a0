// Package repository holds the MySQL data access layer. The sentinel
// errors below let handlers tell failure scenarios apart without
// inspecting driver errors. ErrNotFound maps to 404, ErrSoldOut and
// ErrConflict to 409 and ErrForbidden to 403.
package repository

import (
	"database/sql"
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller may not see a resource owned
// by someone else, such as another agency's reservation.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write collides with existing state, for
// example a duplicate locator.
var ErrConflict = errors.New("conflict")

// ErrSoldOut is returned when a service has fewer free seats than
// requested.
var ErrSoldOut = errors.New("not enough seats available")

// notFound converts sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// isDuplicate reports a MySQL duplicate key violation (error 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
