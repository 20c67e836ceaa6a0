// Package handler exposes the HTTP endpoints of the reservation API.
// Every error response is {"error": "<message>"} with a user-safe
// message; internal details only reach the logs.
package handler

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// validate is shared by every handler; validator caches struct metadata.
var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var locatorPattern = regexp.MustCompile(`^[A-Za-z0-9-]{4,20}$`)

// locatorParam reads and checks the :localizador path parameter.
func locatorParam(c echo.Context) (string, bool) {
	loc := strings.TrimSpace(c.Param("localizador"))
	return loc, locatorPattern.MatchString(loc)
}

// money renders a decimal as a JSON number with two decimals.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

// logFrom returns l or a no-op logger.
func logFrom(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// validationMessage turns validator errors into a short Spanish message
// naming the offending fields.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "datos no válidos"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "datos no válidos: " + strings.Join(fields, ", ")
}
