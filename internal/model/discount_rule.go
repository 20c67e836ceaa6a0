package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scopes a group discount rule can apply to (discount_rules.apply_to).
const (
	ScopeTotal      = "total"
	ScopeAdultsOnly = "adults_only"
	ScopeAllPaid    = "all_paid"
)

// DiscountRule is a global, headcount-threshold group discount as stored
// in the `discount_rules` table.
type DiscountRule struct {
	ID             uint64
	Name           string
	MinimumPersons int
	Percentage     decimal.Decimal
	Scope          string
	Description    string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
