package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

// Breakdown is the immutable result of a price calculation. All amounts
// are rounded to cents, so Total equals BasePrice minus AllDiscounts
// unless the floor at zero kicked in.
type Breakdown struct {
	BasePrice        decimal.Decimal
	ResidentDiscount decimal.Decimal
	ChildDiscount    decimal.Decimal
	GroupDiscount    decimal.Decimal // applied amount, zero when dropped
	ServiceDiscount  decimal.Decimal // applied amount, zero when dropped
	Total            decimal.Decimal

	// Subtotal is the base after per-category discounts; both group and
	// service percentages are taken from it.
	Subtotal    decimal.Decimal
	PayingSeats int
	Travelers   Travelers

	PriceAdult    decimal.Decimal
	PriceChild    decimal.Decimal
	PriceResident decimal.Decimal

	AppliedRule *model.AppliedRule
	Outcome     Outcome

	// audit data
	GroupCandidate     decimal.Decimal
	ServiceCandidate   decimal.Decimal
	ServiceDiscountSet model.ServiceDiscount
	ServiceApplicable  bool
	Priority           string
}

// ChannelDiscount is the sum of the group and service discounts actually
// applied, excluding per-category reductions.
func (b Breakdown) ChannelDiscount() decimal.Decimal {
	return b.GroupDiscount.Add(b.ServiceDiscount)
}

// AllDiscounts is every applied discount term.
func (b Breakdown) AllDiscounts() decimal.Decimal {
	return b.ResidentDiscount.Add(b.ChildDiscount).Add(b.ChannelDiscount())
}
