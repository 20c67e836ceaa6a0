package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

// ServiceRepo reads and updates bus departures in the servicios table.
type ServiceRepo struct {
	db *sql.DB
}

// NewServiceRepo returns a ServiceRepo bound to db.
func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceColumns = `id, fecha, hora, hora_vuelta, plazas_totales, plazas_disponibles, plazas_bloqueadas,
       precio_adulto, precio_nino, precio_residente,
       tiene_descuento, porcentaje_descuento, descuento_tipo, descuento_minimo_personas,
       descuento_acumulable, descuento_prioridad, status, enabled, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*model.Service, error) {
	var (
		s          model.Service
		returnTime sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.Date, &s.DepartureTime, &returnTime,
		&s.TotalSeats, &s.AvailableSeats, &s.BlockedSeats,
		&s.PriceAdult, &s.PriceChild, &s.PriceResident,
		&s.Discount.Enabled, &s.Discount.Percentage, &s.Discount.Mode, &s.Discount.MinimumPersons,
		&s.Discount.Accumulable, &s.Discount.Priority, &s.Status, &s.Enabled,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if returnTime.Valid {
		s.ReturnTime = returnTime.String
	}
	return &s, nil
}

// GetByID loads a service regardless of its status.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (*model.Service, error) {
	q := `SELECT ` + serviceColumns + ` FROM servicios WHERE id = ?`
	s, err := scanService(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// GetForUpdateTx loads a service and locks its row until tx ends.
func (r *ServiceRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Service, error) {
	q := `SELECT ` + serviceColumns + ` FROM servicios WHERE id = ? FOR UPDATE`
	s, err := scanService(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// ListBookable returns enabled, active services with free seats whose date
// falls in [from, to], ordered by date and departure time.
func (r *ServiceRepo) ListBookable(ctx context.Context, from, to time.Time) ([]model.Service, error) {
	q := `SELECT ` + serviceColumns + `
          FROM servicios
          WHERE fecha BETWEEN ? AND ?
            AND enabled = 1 AND status = 'active' AND plazas_disponibles > 0
          ORDER BY fecha, hora`
	rows, err := r.db.QueryContext(ctx, q, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// DecrementSeatsTx takes n seats from a service inside tx. It returns
// ErrSoldOut when fewer than n seats are free.
func (r *ServiceRepo) DecrementSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, n int) error {
	if n <= 0 {
		return fmt.Errorf("decrement seats: invalid count %d", n)
	}
	const q = `UPDATE servicios
               SET plazas_disponibles = plazas_disponibles - ?
               WHERE id = ? AND plazas_disponibles >= ?`
	res, err := tx.ExecContext(ctx, q, n, id, n)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSoldOut
	}
	return nil
}
