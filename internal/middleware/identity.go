package middleware

// identity.go holds the helpers that read the authenticated caller back
// out of the Echo context once JWTAuth has run.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id, or false for anonymous
// requests.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role or "".
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// AgencyID returns the caller's agency, if the token carried one.
func AgencyID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxAgencyID).(uint64)
	return id, ok
}

// currentUserID is the user component of rate-limit keys; "anon" when
// nobody is logged in.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
