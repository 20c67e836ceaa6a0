package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service discount modes as stored in servicios.descuento_tipo.
const (
	DiscountModeFlat  = "fijo"      // always applies
	DiscountModeGroup = "por_grupo" // applies from MinimumPersons paying seats
)

// Priorities decide which discount survives when the two are exclusive.
const (
	PriorityService = "servicio"
	PriorityGroup   = "grupo"
)

// ServiceStatusActive marks a bookable service row.
const ServiceStatusActive = "active"

// Service is one bookable departure (date + time slot) as stored in the
// `servicios` table.
type Service struct {
	ID             uint64
	Date           time.Time // servicios.fecha, midnight UTC
	DepartureTime  string    // servicios.hora, HH:MM:SS
	ReturnTime     string    // servicios.hora_vuelta, empty when unset
	TotalSeats     int
	AvailableSeats int
	BlockedSeats   int
	PriceAdult     decimal.Decimal
	PriceChild     decimal.Decimal
	PriceResident  decimal.Decimal
	Discount       ServiceDiscount
	Status         string
	Enabled        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ServiceDiscount is the discount attached to a single service.
//
// Fields:
//
//	Enabled        – servicios.tiene_descuento
//	Percentage     – servicios.porcentaje_descuento, 0..100
//	Mode           – DiscountModeFlat or DiscountModeGroup
//	MinimumPersons – paying seats required in DiscountModeGroup
//	Accumulable    – whether it stacks with a group rule
//	Priority       – PriorityService or PriorityGroup when not accumulable
type ServiceDiscount struct {
	Enabled        bool
	Percentage     decimal.Decimal
	Mode           string
	MinimumPersons int
	Accumulable    bool
	Priority       string
}

// Bookable reports whether the service accepts reservations at all.
func (s *Service) Bookable() bool {
	return s.Enabled && s.Status == ServiceStatusActive && s.AvailableSeats > 0
}

// DepartsAt combines the service date and departure time in loc.
func (s *Service) DepartsAt(loc *time.Location) (time.Time, error) {
	clock, err := ParseClock(s.DepartureTime)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, loc), nil
}

// ParseClock parses a TIME column value (HH:MM:SS or HH:MM).
func ParseClock(v string) (time.Time, error) {
	if t, err := time.Parse("15:04:05", v); err == nil {
		return t, nil
	}
	return time.Parse("15:04", v)
}

// ShortClock renders a TIME column value as HH:MM, returning the input
// unchanged when it cannot be parsed.
func ShortClock(v string) string {
	t, err := ParseClock(v)
	if err != nil {
		return v
	}
	return t.Format("15:04")
}
