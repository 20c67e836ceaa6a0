package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

// Options carries the settings that would otherwise be global: the rule
// scope used for group discounts, the fallback priority for services
// without one and the per-category traveler cap.
type Options struct {
	GroupScope      string
	DefaultPriority string
	MaxPerCategory  int
}

// DefaultOptions mirrors the production configuration.
func DefaultOptions() Options {
	return Options{
		GroupScope:      model.ScopeTotal,
		DefaultPriority: model.PriorityService,
		MaxPerCategory:  999,
	}
}

// Calculator computes price breakdowns. It holds no mutable state and is
// safe for concurrent use.
type Calculator struct {
	opts Options
}

// NewCalculator fills unset options with their defaults.
func NewCalculator(opts Options) *Calculator {
	def := DefaultOptions()
	if opts.GroupScope == "" {
		opts.GroupScope = def.GroupScope
	}
	if opts.DefaultPriority != model.PriorityService && opts.DefaultPriority != model.PriorityGroup {
		opts.DefaultPriority = def.DefaultPriority
	}
	return &Calculator{opts: opts}
}

// Options returns the effective options.
func (c *Calculator) Options() Options { return c.opts }

// Calculate prices t on svc. Every paying seat starts at the adult rate;
// residents and children 5-12 are discounted to their own rate; the group
// rule and the service discount are both computed on the resulting
// subtotal and combined according to the service's accumulation policy.
func (c *Calculator) Calculate(svc *model.Service, rules *Resolver, t Travelers) (Breakdown, error) {
	if svc == nil {
		return Breakdown{}, ErrServiceNotFound
	}
	if err := t.Validate(c.opts.MaxPerCategory); err != nil {
		return Breakdown{}, err
	}
	if err := validateService(svc); err != nil {
		return Breakdown{}, err
	}

	paying := t.PayingSeats()
	adult := svc.PriceAdult

	base := adult.Mul(decimal.NewFromInt(int64(paying))).Round(2)
	residentDiscount := adult.Sub(svc.PriceResident).Mul(decimal.NewFromInt(int64(t.Residents))).Round(2)
	childDiscount := adult.Sub(svc.PriceChild).Mul(decimal.NewFromInt(int64(t.Children5to12))).Round(2)
	subtotal := base.Sub(residentDiscount).Sub(childDiscount)

	var group GroupDiscount
	if paying > 0 {
		group = rules.Resolve(paying, subtotal, c.opts.GroupScope)
	}
	groupCandidate := group.Applied && group.Amount.IsPositive()

	serviceCandidate := serviceDiscountApplies(svc.Discount, paying)
	serviceAmount := decimal.Zero
	if serviceCandidate {
		serviceAmount = percentOf(subtotal, svc.Discount.Percentage)
	}

	priority := svc.Discount.Priority
	if priority != model.PriorityService && priority != model.PriorityGroup {
		priority = c.opts.DefaultPriority
	}
	outcome := decide(groupCandidate, serviceCandidate, svc.Discount.Accumulable, priority)

	b := Breakdown{
		BasePrice:          base,
		ResidentDiscount:   residentDiscount,
		ChildDiscount:      childDiscount,
		GroupDiscount:      decimal.Zero,
		ServiceDiscount:    decimal.Zero,
		Subtotal:           subtotal,
		PayingSeats:        paying,
		Travelers:          t,
		PriceAdult:         svc.PriceAdult,
		PriceChild:         svc.PriceChild,
		PriceResident:      svc.PriceResident,
		Outcome:            outcome,
		GroupCandidate:     group.Amount,
		ServiceCandidate:   serviceAmount,
		ServiceDiscountSet: svc.Discount,
		ServiceApplicable:  serviceCandidate,
		Priority:           priority,
	}
	if outcome.AppliesGroup() {
		b.GroupDiscount = group.Amount
		b.AppliedRule = group.Rule()
	}
	if outcome.AppliesService() {
		b.ServiceDiscount = serviceAmount
	}

	total := base.Sub(b.AllDiscounts())
	if total.IsNegative() {
		total = decimal.Zero
	}
	b.Total = total
	return b, nil
}

func serviceDiscountApplies(d model.ServiceDiscount, paying int) bool {
	if !d.Enabled || !d.Percentage.IsPositive() {
		return false
	}
	switch d.Mode {
	case model.DiscountModeFlat, "":
		return true
	case model.DiscountModeGroup:
		return paying >= d.MinimumPersons
	default:
		return false
	}
}

func validateService(svc *model.Service) error {
	if svc.PriceAdult.IsNegative() || svc.PriceChild.IsNegative() || svc.PriceResident.IsNegative() {
		return fmt.Errorf("%w: service %d has a negative price", ErrInvalidService, svc.ID)
	}
	pct := svc.Discount.Percentage
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return fmt.Errorf("%w: service %d discount %s%% out of range", ErrInvalidService, svc.ID, pct.String())
	}
	return nil
}
