// Package queue defines the reservation events exchanged over RabbitMQ and
// the consumer that turns them into delivered tickets.
package queue

import (
	"time"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

// ReservationConfirmedQueue is the durable queue carrying
// ReservationConfirmedEvent messages.
const ReservationConfirmedQueue = "reservation.confirmed"

// ReservationConfirmedEvent is published once a reservation is committed.
// It carries enough to log or notify without querying the database; the
// ticket itself is always rendered from the stored record.
type ReservationConfirmedEvent struct {
	ReservationID uint64 `json:"reserva_id"`
	Locator       string `json:"localizador"`
	Email         string `json:"email"`
	FirstName     string `json:"nombre"`
	LastName      string `json:"apellidos"`
	VisitDate     string `json:"fecha"` // YYYY-MM-DD
	DepartureTime string `json:"hora"`
	Travelers     int    `json:"total_personas"`
	FinalPrice    string `json:"precio_final"`
	ConfirmedAt   string `json:"confirmed_at"` // RFC3339, UTC
}

// NewReservationConfirmed builds the event for a stored reservation.
func NewReservationConfirmed(res *model.Reservation) ReservationConfirmedEvent {
	confirmed := res.CreatedAt
	if confirmed.IsZero() {
		confirmed = time.Now()
	}
	return ReservationConfirmedEvent{
		ReservationID: res.ID,
		Locator:       res.Locator,
		Email:         res.Email,
		FirstName:     res.FirstName,
		LastName:      res.LastName,
		VisitDate:     res.VisitDate.Format("2006-01-02"),
		DepartureTime: res.DepartureTime,
		Travelers:     res.TotalTravelers,
		FinalPrice:    res.FinalPrice.StringFixed(2),
		ConfirmedAt:   confirmed.UTC().Format(time.RFC3339),
	}
}
