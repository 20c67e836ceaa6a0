package model

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Well-known configuration keys.
const (
	ConfigDefaultAdultPrice    = "precio_adulto_defecto"
	ConfigDefaultChildPrice    = "precio_nino_defecto"
	ConfigDefaultResidentPrice = "precio_residente_defecto"
	ConfigDefaultSeats         = "plazas_defecto"
	ConfigMinAdvanceDays       = "dias_anticipacion_minima"
	ConfigCurrency             = "moneda"
	ConfigCurrencySymbol       = "simbolo_moneda"
	ConfigTimezone             = "zona_horaria"
	ConfigSenderName           = "nombre_remitente"
)

// Settings is a snapshot of the key/value `configuration` table.
type Settings map[string]string

// String returns the value for key or def when missing.
func (s Settings) String(key, def string) string {
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return def
}

// Int returns the integer value for key or def when missing or malformed.
func (s Settings) Int(key string, def int) int {
	n, err := strconv.Atoi(s[key])
	if err != nil {
		return def
	}
	return n
}

// Decimal returns the decimal value for key or def when missing or malformed.
func (s Settings) Decimal(key string, def decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(s[key])
	if err != nil {
		return def
	}
	return d
}
