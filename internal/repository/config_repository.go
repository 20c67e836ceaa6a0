package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

// ConfigRepo reads the key/value configuration table.
type ConfigRepo struct {
	db *sql.DB
}

// NewConfigRepo returns a ConfigRepo bound to db.
func NewConfigRepo(db *sql.DB) *ConfigRepo { return &ConfigRepo{db: db} }

// All returns every configuration entry. NULL values read as "".
func (r *ConfigRepo) All(ctx context.Context) (model.Settings, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT config_key, config_value FROM configuration`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := model.Settings{}
	for rows.Next() {
		var (
			key   string
			value sql.NullString
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value.String
	}
	return out, rows.Err()
}
