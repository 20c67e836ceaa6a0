package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

var hundred = decimal.NewFromInt(100)

// GroupDiscount is the outcome of resolving group rules for a headcount.
type GroupDiscount struct {
	Applied        bool
	Amount         decimal.Decimal
	RuleName       string
	Percentage     decimal.Decimal
	MinimumPersons int
}

// Rule returns the applied rule descriptor, or nil when nothing applied.
func (g GroupDiscount) Rule() *model.AppliedRule {
	if !g.Applied {
		return nil
	}
	return &model.AppliedRule{
		RuleName:           g.RuleName,
		DiscountPercentage: g.Percentage,
		MinimumPersons:     g.MinimumPersons,
	}
}

// Resolver picks the group discount rule for a headcount. Rules are kept
// in the order given; among rules sharing the highest qualifying
// threshold the first one wins.
type Resolver struct {
	rules []model.DiscountRule
}

// NewResolver returns a Resolver over a copy of rules.
func NewResolver(rules []model.DiscountRule) *Resolver {
	cp := make([]model.DiscountRule, len(rules))
	copy(cp, rules)
	return &Resolver{rules: cp}
}

// Resolve selects the active rule for scope with the highest
// minimum-persons not exceeding headcount and applies its percentage to
// subtotal. A nil Resolver never applies anything.
func (r *Resolver) Resolve(headcount int, subtotal decimal.Decimal, scope string) GroupDiscount {
	if r == nil || headcount <= 0 {
		return GroupDiscount{}
	}

	var best *model.DiscountRule
	for i := range r.rules {
		rule := &r.rules[i]
		if !rule.Active || rule.Scope != scope || rule.MinimumPersons > headcount {
			continue
		}
		// strictly greater keeps the first of equal thresholds
		if best == nil || rule.MinimumPersons > best.MinimumPersons {
			best = rule
		}
	}
	if best == nil {
		return GroupDiscount{}
	}

	return GroupDiscount{
		Applied:        true,
		Amount:         percentOf(subtotal, best.Percentage),
		RuleName:       best.Name,
		Percentage:     best.Percentage,
		MinimumPersons: best.MinimumPersons,
	}
}

// percentOf returns amount × pct / 100 rounded to cents.
func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(2)
}
