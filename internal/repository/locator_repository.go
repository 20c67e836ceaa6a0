package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrLocatorsExhausted is returned once a year's counter passes 999999.
var ErrLocatorsExhausted = errors.New("locator counter exhausted for year")

const maxLocatorSeq = 999999

// LocatorRepo hands out reservation locators from a per-year counter kept
// in the configuration table under ultimo_localizador_<YYYY>.
type LocatorRepo struct {
	db *sql.DB
}

// NewLocatorRepo returns a LocatorRepo bound to db.
func NewLocatorRepo(db *sql.DB) *LocatorRepo { return &LocatorRepo{db: db} }

// LocatorKey is the configuration key holding the counter for year.
func LocatorKey(year int) string { return fmt.Sprintf("ultimo_localizador_%d", year) }

// FormatLocator renders the two-digit year followed by the six-digit
// sequence, e.g. 26000042.
func FormatLocator(year, seq int) string { return fmt.Sprintf("%02d%06d", year%100, seq) }

// NextTx increments the counter for now's year and returns the new
// locator. The counter row stays locked until tx ends, so concurrent
// bookings are serialized.
func (r *LocatorRepo) NextTx(ctx context.Context, tx *sql.Tx, now time.Time) (string, error) {
	year := now.Year()
	key := LocatorKey(year)

	const ensure = `INSERT INTO configuration (config_key, config_value, config_group, description)
                    VALUES (?, '0', 'localizadores', ?)
                    ON DUPLICATE KEY UPDATE config_key = config_key`
	if _, err := tx.ExecContext(ctx, ensure, key,
		fmt.Sprintf("Último número de localizador usado en el año %d", year)); err != nil {
		return "", err
	}

	var raw sql.NullString
	if err := tx.QueryRowContext(ctx,
		`SELECT config_value FROM configuration WHERE config_key = ? FOR UPDATE`, key).Scan(&raw); err != nil {
		return "", notFound(err)
	}
	last := 0
	if raw.Valid && raw.String != "" {
		n, err := strconv.Atoi(raw.String)
		if err != nil {
			return "", fmt.Errorf("locator counter %s: %w", key, err)
		}
		last = n
	}
	next := last + 1
	if next > maxLocatorSeq {
		return "", fmt.Errorf("%w %d", ErrLocatorsExhausted, year)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE configuration SET config_value = ? WHERE config_key = ?`, strconv.Itoa(next), key); err != nil {
		return "", err
	}
	return FormatLocator(year, next), nil
}
