package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

// ReservationRepo stores bookings in the reservas table. Every amount is
// written once at booking time and read back unchanged.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, localizador, servicio_id, fecha, hora, hora_vuelta,
       nombre, apellidos, email, telefono,
       adultos, residentes, ninos_5_12, ninos_menores, total_personas,
       precio_adulto, precio_nino, precio_residente, precio_base, descuento_total, precio_final,
       regla_descuento_aplicada, estado, metodo_pago, agency_id, recordatorio_enviado,
       created_at, updated_at`

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		res        model.Reservation
		returnTime sql.NullString
		rule       sql.NullString
		agencyID   sql.NullInt64
	)
	err := row.Scan(
		&res.ID, &res.Locator, &res.ServiceID, &res.VisitDate, &res.DepartureTime, &returnTime,
		&res.FirstName, &res.LastName, &res.Email, &res.Phone,
		&res.Adults, &res.Residents, &res.Children5to12, &res.ChildrenUnder5, &res.TotalTravelers,
		&res.PriceAdult, &res.PriceChild, &res.PriceResident, &res.BasePrice, &res.TotalDiscount, &res.FinalPrice,
		&rule, &res.Status, &res.PaymentMethod, &agencyID, &res.ReminderSent,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.ReturnTime = returnTime.String
	if agencyID.Valid {
		id := uint64(agencyID.Int64)
		res.AgencyID = &id
	}
	if rule.Valid && rule.String != "" && rule.String != "null" {
		var ar model.AppliedRule
		if err := json.Unmarshal([]byte(rule.String), &ar); err != nil {
			return nil, fmt.Errorf("decode applied rule of %s: %w", res.Locator, err)
		}
		res.AppliedRule = &ar
	}
	return &res, nil
}

// CreateTx inserts res within tx and populates its ID and timestamps. The
// caller must commit or rollback the transaction. A duplicate locator
// yields ErrConflict.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	var rule any
	if res.AppliedRule != nil {
		b, err := json.Marshal(res.AppliedRule)
		if err != nil {
			return err
		}
		rule = string(b)
	}
	var returnTime any
	if res.ReturnTime != "" {
		returnTime = res.ReturnTime
	}
	var agencyID any
	if res.AgencyID != nil {
		agencyID = *res.AgencyID
	}
	if res.Status == "" {
		res.Status = model.ReservationConfirmed
	}
	if res.PaymentMethod == "" {
		res.PaymentMethod = model.PaymentDirect
	}

	const q = `INSERT INTO reservas (
        localizador, servicio_id, fecha, hora, hora_vuelta,
        nombre, apellidos, email, telefono,
        adultos, residentes, ninos_5_12, ninos_menores, total_personas,
        precio_adulto, precio_nino, precio_residente, precio_base, descuento_total, precio_final,
        regla_descuento_aplicada, estado, metodo_pago, agency_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.Locator, res.ServiceID, res.VisitDate.Format("2006-01-02"), res.DepartureTime, returnTime,
		res.FirstName, res.LastName, res.Email, res.Phone,
		res.Adults, res.Residents, res.Children5to12, res.ChildrenUnder5, res.TotalTravelers,
		res.PriceAdult, res.PriceChild, res.PriceResident, res.BasePrice, res.TotalDiscount, res.FinalPrice,
		rule, res.Status, res.PaymentMethod, agencyID,
	)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)

	// read back defaults and timestamps
	return tx.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM reservas WHERE id = ?`, res.ID).
		Scan(&res.CreatedAt, &res.UpdatedAt)
}

// GetByLocator returns the confirmed reservation with the given locator.
func (r *ReservationRepo) GetByLocator(ctx context.Context, locator string) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservas WHERE localizador = ? AND estado = 'confirmada' LIMIT 1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, locator))
	if err != nil {
		return nil, notFound(err)
	}
	return res, nil
}

// GetByID returns a reservation in any state.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservas WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return res, nil
}

// MostRecentConfirmed returns the latest confirmed reservation.
func (r *ReservationRepo) MostRecentConfirmed(ctx context.Context) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservas WHERE estado = 'confirmada' ORDER BY created_at DESC, id DESC LIMIT 1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q))
	if err != nil {
		return nil, notFound(err)
	}
	return res, nil
}
