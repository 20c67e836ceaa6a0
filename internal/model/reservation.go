package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reservation states (reservas.estado).
const (
	ReservationPending   = "pendiente"
	ReservationConfirmed = "confirmada"
	ReservationCancelled = "cancelada"
)

// PaymentDirect is the payment method of bookings made without a gateway.
const PaymentDirect = "directo"

// Reservation is a booking of one service as stored in the `reservas`
// table. Every monetary field is frozen at booking time and never
// recomputed afterwards; tickets always print these values.
type Reservation struct {
	ID            uint64
	Locator       string
	ServiceID     uint64
	VisitDate     time.Time // reservas.fecha
	DepartureTime string    // reservas.hora
	ReturnTime    string    // reservas.hora_vuelta, empty when unset

	FirstName string
	LastName  string
	Email     string
	Phone     string

	Adults         int
	Residents      int
	Children5to12  int
	ChildrenUnder5 int
	TotalTravelers int

	PriceAdult    decimal.Decimal
	PriceChild    decimal.Decimal
	PriceResident decimal.Decimal
	BasePrice     decimal.Decimal
	TotalDiscount decimal.Decimal
	FinalPrice    decimal.Decimal
	AppliedRule   *AppliedRule // nil when no group rule applied

	Status        string
	PaymentMethod string
	AgencyID      *uint64
	ReminderSent  bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AppliedRule records the group rule that contributed to a price. It is
// stored as JSON in reservas.regla_descuento_aplicada.
type AppliedRule struct {
	RuleName           string          `json:"rule_name"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	MinimumPersons     int             `json:"minimum_persons"`
}

// FullName joins first and last name for display.
func (r *Reservation) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// PayingSeats counts the travelers occupying a priced seat.
func (r *Reservation) PayingSeats() int {
	return r.Adults + r.Residents + r.Children5to12
}
