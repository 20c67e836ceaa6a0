package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

// DiscountRuleRepo reads the global group discount rules.
type DiscountRuleRepo struct {
	db *sql.DB
}

// NewDiscountRuleRepo returns a DiscountRuleRepo bound to db.
func NewDiscountRuleRepo(db *sql.DB) *DiscountRuleRepo { return &DiscountRuleRepo{db: db} }

// ListActive returns active rules, highest threshold first. Rules sharing
// a threshold keep their creation order, which the resolver relies on to
// break ties.
func (r *DiscountRuleRepo) ListActive(ctx context.Context) ([]model.DiscountRule, error) {
	const q = `SELECT id, rule_name, minimum_persons, discount_percentage, apply_to,
                      rule_description, is_active, created_at, updated_at
               FROM discount_rules
               WHERE is_active = 1
               ORDER BY minimum_persons DESC, id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DiscountRule
	for rows.Next() {
		var (
			rule model.DiscountRule
			desc sql.NullString
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.MinimumPersons, &rule.Percentage, &rule.Scope,
			&desc, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		rule.Description = desc.String
		out = append(out, rule)
	}
	return out, rows.Err()
}
