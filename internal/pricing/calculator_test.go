package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s = %s, want %s", field, got.StringFixed(2), want)
}

func baseService() *model.Service {
	return &model.Service{
		ID:             1,
		PriceAdult:     d("10"),
		PriceResident:  d("5"),
		PriceChild:     d("5"),
		Status:         model.ServiceStatusActive,
		Enabled:        true,
		AvailableSeats: 50,
		Discount:       model.ServiceDiscount{Mode: model.DiscountModeFlat, Priority: model.PriorityService},
	}
}

func groupRules() *Resolver {
	return NewResolver([]model.DiscountRule{
		{ID: 1, Name: "Descuento Grupo Grande", MinimumPersons: 10, Percentage: d("15"), Scope: model.ScopeTotal, Active: true},
	})
}

func TestCalculate_ScenarioA_PerCategoryOnly(t *testing.T) {
	c := NewCalculator(DefaultOptions())

	b, err := c.Calculate(baseService(), NewResolver(nil), Travelers{Adults: 2, Children5to12: 1})
	require.NoError(t, err)

	assertMoney(t, "30", b.BasePrice, "base")
	assertMoney(t, "0", b.ResidentDiscount, "resident")
	assertMoney(t, "5", b.ChildDiscount, "child")
	assertMoney(t, "0", b.GroupDiscount, "group")
	assertMoney(t, "0", b.ServiceDiscount, "service")
	assertMoney(t, "25", b.Total, "total")
	assert.Equal(t, 3, b.PayingSeats)
	assert.Equal(t, NoDiscount, b.Outcome)
	assert.Nil(t, b.AppliedRule)
}

func TestCalculate_ScenarioB_GroupRule(t *testing.T) {
	c := NewCalculator(DefaultOptions())

	b, err := c.Calculate(baseService(), groupRules(), Travelers{Adults: 10})
	require.NoError(t, err)

	assertMoney(t, "100", b.Subtotal, "subtotal")
	assertMoney(t, "15", b.GroupDiscount, "group")
	assertMoney(t, "85", b.Total, "total")
	assert.Equal(t, GroupOnly, b.Outcome)
	require.NotNil(t, b.AppliedRule)
	assert.Equal(t, "Descuento Grupo Grande", b.AppliedRule.RuleName)
	assert.Equal(t, 10, b.AppliedRule.MinimumPersons)
}

func TestCalculate_AccumulationTable(t *testing.T) {
	tests := []struct {
		name         string
		discount     model.ServiceDiscount
		travelers    Travelers
		wantOutcome  Outcome
		wantGroup    string
		wantService  string
		wantTotal    string
		wantRuleName string
	}{
		{
			name:        "scenario C: exclusive, service priority drops group rule",
			discount:    model.ServiceDiscount{Enabled: true, Percentage: d("10"), Mode: model.DiscountModeFlat, Priority: model.PriorityService},
			travelers:   Travelers{Adults: 10},
			wantOutcome: ServiceOnly,
			wantGroup:   "0",
			wantService: "10",
			wantTotal:   "90",
		},
		{
			name:         "exclusive, group priority drops service discount",
			discount:     model.ServiceDiscount{Enabled: true, Percentage: d("10"), Mode: model.DiscountModeFlat, Priority: model.PriorityGroup},
			travelers:    Travelers{Adults: 10},
			wantOutcome:  GroupOnly,
			wantGroup:    "15",
			wantService:  "0",
			wantTotal:    "85",
			wantRuleName: "Descuento Grupo Grande",
		},
		{
			name:         "accumulable applies both off the same subtotal",
			discount:     model.ServiceDiscount{Enabled: true, Percentage: d("10"), Mode: model.DiscountModeFlat, Accumulable: true},
			travelers:    Travelers{Adults: 10},
			wantOutcome:  Both,
			wantGroup:    "15",
			wantService:  "10",
			wantTotal:    "75",
			wantRuleName: "Descuento Grupo Grande",
		},
		{
			name:        "empty priority falls back to service",
			discount:    model.ServiceDiscount{Enabled: true, Percentage: d("10"), Mode: model.DiscountModeFlat},
			travelers:   Travelers{Adults: 10},
			wantOutcome: ServiceOnly,
			wantGroup:   "0",
			wantService: "10",
			wantTotal:   "90",
		},
		{
			name:        "service only below group threshold",
			discount:    model.ServiceDiscount{Enabled: true, Percentage: d("20"), Mode: model.DiscountModeFlat},
			travelers:   Travelers{Adults: 3},
			wantOutcome: ServiceOnly,
			wantGroup:   "0",
			wantService: "6",
			wantTotal:   "24",
		},
		{
			name:         "group-threshold service discount not reached",
			discount:     model.ServiceDiscount{Enabled: true, Percentage: d("20"), Mode: model.DiscountModeGroup, MinimumPersons: 12},
			travelers:    Travelers{Adults: 10},
			wantOutcome:  GroupOnly,
			wantGroup:    "15",
			wantService:  "0",
			wantTotal:    "85",
			wantRuleName: "Descuento Grupo Grande",
		},
		{
			name:        "group-threshold service discount reached",
			discount:    model.ServiceDiscount{Enabled: true, Percentage: d("20"), Mode: model.DiscountModeGroup, MinimumPersons: 12},
			travelers:   Travelers{Adults: 12},
			wantOutcome: ServiceOnly,
			wantGroup:   "0",
			wantService: "24",
			wantTotal:   "96",
		},
		{
			name:        "disabled service discount is ignored",
			discount:    model.ServiceDiscount{Enabled: false, Percentage: d("50"), Mode: model.DiscountModeFlat},
			travelers:   Travelers{Adults: 2},
			wantOutcome: NoDiscount,
			wantGroup:   "0",
			wantService: "0",
			wantTotal:   "20",
		},
		{
			name:        "zero percentage is not a candidate",
			discount:    model.ServiceDiscount{Enabled: true, Percentage: d("0"), Mode: model.DiscountModeFlat},
			travelers:   Travelers{Adults: 2},
			wantOutcome: NoDiscount,
			wantGroup:   "0",
			wantService: "0",
			wantTotal:   "20",
		},
	}

	c := NewCalculator(DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := baseService()
			svc.Discount = tt.discount

			b, err := c.Calculate(svc, groupRules(), tt.travelers)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOutcome, b.Outcome)
			assertMoney(t, tt.wantGroup, b.GroupDiscount, "group")
			assertMoney(t, tt.wantService, b.ServiceDiscount, "service")
			assertMoney(t, tt.wantTotal, b.Total, "total")
			if tt.wantRuleName == "" {
				assert.Nil(t, b.AppliedRule)
			} else {
				require.NotNil(t, b.AppliedRule)
				assert.Equal(t, tt.wantRuleName, b.AppliedRule.RuleName)
			}
		})
	}
}

func TestCalculate_AccumulableSumsExactly(t *testing.T) {
	svc := baseService()
	svc.PriceAdult = d("12.35")
	svc.PriceResident = d("7.10")
	svc.PriceChild = d("6.45")
	svc.Discount = model.ServiceDiscount{Enabled: true, Percentage: d("7.5"), Mode: model.DiscountModeFlat, Accumulable: true}

	b, err := NewCalculator(DefaultOptions()).Calculate(svc, groupRules(), Travelers{Adults: 6, Residents: 3, Children5to12: 2})
	require.NoError(t, err)

	assert.Equal(t, Both, b.Outcome)
	assert.True(t, b.ChannelDiscount().Equal(b.GroupCandidate.Add(b.ServiceCandidate)))
	assert.True(t, b.Total.Equal(b.BasePrice.Sub(b.AllDiscounts())))
	assert.Equal(t, b.Total.StringFixed(2), b.Total.Round(2).StringFixed(2))
}

func TestCalculate_ChildrenUnderFiveAreFree(t *testing.T) {
	svc := baseService()
	svc.Discount = model.ServiceDiscount{Enabled: true, Percentage: d("10"), Mode: model.DiscountModeGroup, MinimumPersons: 10}
	c := NewCalculator(DefaultOptions())

	without, err := c.Calculate(svc, groupRules(), Travelers{Adults: 6, Residents: 2})
	require.NoError(t, err)
	with, err := c.Calculate(svc, groupRules(), Travelers{Adults: 6, Residents: 2, ChildrenUnder5: 5})
	require.NoError(t, err)

	assert.Equal(t, 8, with.PayingSeats)
	assert.Equal(t, NoDiscount, with.Outcome, "under-5 children must not reach group thresholds")
	assert.True(t, without.BasePrice.Equal(with.BasePrice))
	assert.True(t, without.AllDiscounts().Equal(with.AllDiscounts()))
	assert.True(t, without.Total.Equal(with.Total))
}

func TestCalculate_RoundsEachTerm(t *testing.T) {
	svc := baseService()
	svc.PriceAdult = d("9.99")
	svc.PriceResident = d("9.99")
	svc.PriceChild = d("9.99")
	rules := NewResolver([]model.DiscountRule{
		{Name: "Tres", MinimumPersons: 3, Percentage: d("15"), Scope: model.ScopeTotal, Active: true},
	})

	b, err := NewCalculator(DefaultOptions()).Calculate(svc, rules, Travelers{Adults: 3})
	require.NoError(t, err)

	// 29.97 * 15% = 4.4955
	assert.Equal(t, "29.97", b.BasePrice.StringFixed(2))
	assert.Equal(t, "4.50", b.GroupDiscount.StringFixed(2))
	assert.Equal(t, "25.47", b.Total.StringFixed(2))
}

func TestCalculate_TotalFlooredAtZero(t *testing.T) {
	svc := baseService()
	svc.Discount = model.ServiceDiscount{Enabled: true, Percentage: d("100"), Mode: model.DiscountModeFlat, Accumulable: true}
	rules := NewResolver([]model.DiscountRule{
		{Name: "Gratis", MinimumPersons: 1, Percentage: d("100"), Scope: model.ScopeTotal, Active: true},
	})

	b, err := NewCalculator(DefaultOptions()).Calculate(svc, rules, Travelers{Adults: 2})
	require.NoError(t, err)

	assert.Equal(t, Both, b.Outcome)
	assert.True(t, b.Total.IsZero())
}

func TestCalculate_ZeroGroupAmountIsNotACandidate(t *testing.T) {
	svc := baseService()
	svc.Discount = model.ServiceDiscount{Enabled: true, Percentage: d("10"), Mode: model.DiscountModeFlat, Priority: model.PriorityGroup}
	rules := NewResolver([]model.DiscountRule{
		{Name: "Cero", MinimumPersons: 1, Percentage: d("0"), Scope: model.ScopeTotal, Active: true},
	})

	b, err := NewCalculator(DefaultOptions()).Calculate(svc, rules, Travelers{Adults: 2})
	require.NoError(t, err)

	assert.Equal(t, ServiceOnly, b.Outcome)
	assertMoney(t, "2", b.ServiceDiscount, "service")
}

func TestCalculate_NoPayingSeats(t *testing.T) {
	b, err := NewCalculator(DefaultOptions()).Calculate(baseService(), groupRules(), Travelers{ChildrenUnder5: 2})
	require.NoError(t, err)

	assert.Equal(t, 0, b.PayingSeats)
	assert.True(t, b.Total.IsZero())
	assert.Equal(t, NoDiscount, b.Outcome)
}

func TestCalculate_Errors(t *testing.T) {
	c := NewCalculator(DefaultOptions())

	_, err := c.Calculate(nil, groupRules(), Travelers{Adults: 1})
	assert.ErrorIs(t, err, ErrServiceNotFound)

	_, err = c.Calculate(baseService(), groupRules(), Travelers{Adults: -1})
	assert.ErrorIs(t, err, ErrInvalidTravelers)

	_, err = c.Calculate(baseService(), groupRules(), Travelers{Residents: 1000})
	assert.ErrorIs(t, err, ErrInvalidTravelers)

	svc := baseService()
	svc.PriceChild = d("-1")
	_, err = c.Calculate(svc, groupRules(), Travelers{Adults: 1})
	assert.ErrorIs(t, err, ErrInvalidService)

	svc = baseService()
	svc.Discount.Percentage = d("150")
	_, err = c.Calculate(svc, groupRules(), Travelers{Adults: 1})
	assert.ErrorIs(t, err, ErrInvalidService)
}

func TestCalculate_Invariants(t *testing.T) {
	c := NewCalculator(DefaultOptions())
	rules := NewResolver([]model.DiscountRule{
		{Name: "Cinco", MinimumPersons: 5, Percentage: d("5"), Scope: model.ScopeTotal, Active: true},
		{Name: "Diez", MinimumPersons: 10, Percentage: d("15"), Scope: model.ScopeTotal, Active: true},
		{Name: "Apagada", MinimumPersons: 2, Percentage: d("90"), Scope: model.ScopeTotal, Active: false},
	})
	discounts := []model.ServiceDiscount{
		{},
		{Enabled: true, Percentage: d("12.5"), Mode: model.DiscountModeFlat, Priority: model.PriorityService},
		{Enabled: true, Percentage: d("12.5"), Mode: model.DiscountModeFlat, Priority: model.PriorityGroup},
		{Enabled: true, Percentage: d("33"), Mode: model.DiscountModeGroup, MinimumPersons: 6, Accumulable: true},
	}

	for _, disc := range discounts {
		svc := baseService()
		svc.PriceAdult = d("14.90")
		svc.PriceResident = d("9.95")
		svc.PriceChild = d("7.45")
		svc.Discount = disc
		for a := 0; a <= 6; a++ {
			for r := 0; r <= 4; r++ {
				for k := 0; k <= 4; k++ {
					tr := Travelers{Adults: a, Residents: r, Children5to12: k, ChildrenUnder5: (a + r) % 3}
					b, err := c.Calculate(svc, rules, tr)
					require.NoError(t, err)

					assert.False(t, b.Total.IsNegative())
					assert.True(t, b.Total.Equal(b.BasePrice.Sub(b.AllDiscounts())), "total drift for %+v", tr)
					if b.AppliedRule != nil {
						assert.NotEqual(t, "Apagada", b.AppliedRule.RuleName)
						assert.LessOrEqual(t, b.AppliedRule.MinimumPersons, tr.PayingSeats())
					}
					if !disc.Accumulable && b.Outcome.AppliesGroup() {
						assert.False(t, b.Outcome.AppliesService())
					}
				}
			}
		}
	}
}

func TestDecide(t *testing.T) {
	assert.Equal(t, NoDiscount, decide(false, false, true, model.PriorityGroup))
	assert.Equal(t, GroupOnly, decide(true, false, false, model.PriorityService))
	assert.Equal(t, ServiceOnly, decide(false, true, false, model.PriorityGroup))
	assert.Equal(t, Both, decide(true, true, true, model.PriorityService))
	assert.Equal(t, ServiceOnly, decide(true, true, false, model.PriorityService))
	assert.Equal(t, GroupOnly, decide(true, true, false, model.PriorityGroup))
}

func TestNewCalculatorDefaults(t *testing.T) {
	c := NewCalculator(Options{DefaultPriority: "bogus"})
	assert.Equal(t, model.ScopeTotal, c.Options().GroupScope)
	assert.Equal(t, model.PriorityService, c.Options().DefaultPriority)
	assert.Equal(t, 0, c.Options().MaxPerCategory)
}
